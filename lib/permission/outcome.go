// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"github.com/weft-foundation/weft/lib/covalue"
)

// Outcome is the engine's verdict on one transaction.
type Outcome struct {
	// Validated reports whether the engine has judged the transaction.
	// An unvalidated transaction may become valid on a later pass; a
	// validated one never changes.
	Validated bool

	// Valid reports whether the transaction passed. Only meaningful
	// when Validated is true.
	Valid bool

	// InvalidChanges marks a transaction whose payload failed to
	// parse. Distinct from a well-formed-but-unauthorized payload:
	// downstream layers must not attempt to reinterpret the payload of
	// a transaction with invalid changes, ever.
	InvalidChanges bool
}

// Resolution accumulates per-transaction outcomes for exactly one
// CoValue across resolution passes. Transaction IDs are session-scoped
// rather than value-scoped, so a table mixing two values' transactions
// could conflate them; the engine therefore never shares a Resolution
// across values — parent groups folded during inheritance get scratch
// tables, and a parent's authoritative verdicts exist only in the
// resolution run on the parent itself.
//
// Outcomes are write-once: once a transaction is validated its verdict
// is fixed, which is what lets a live session re-resolve after appends
// by judging only the new suffix.
//
// A Resolution is not safe for concurrent use; the caller serializes
// resolution per value.
type Resolution struct {
	outcomes map[covalue.TransactionID]Outcome
}

// NewResolution creates an empty outcome table.
func NewResolution() *Resolution {
	return &Resolution{outcomes: make(map[covalue.TransactionID]Outcome)}
}

// Outcome returns the recorded outcome for a transaction. The zero
// Outcome (not validated) is returned for transactions not yet judged.
func (r *Resolution) Outcome(id covalue.TransactionID) Outcome {
	return r.outcomes[id]
}

// Valid reports whether a transaction has been judged valid.
func (r *Resolution) Valid(id covalue.TransactionID) bool {
	outcome := r.outcomes[id]
	return outcome.Validated && outcome.Valid
}

// record stores a verdict. If the transaction already has a validated
// outcome, the existing verdict stands — determinism guarantees a
// recomputation would agree, and write-once keeps a half-finished
// observer from ever seeing a flip.
func (r *Resolution) record(id covalue.TransactionID, valid bool) {
	if existing, ok := r.outcomes[id]; ok && existing.Validated {
		return
	}
	r.outcomes[id] = Outcome{Validated: true, Valid: valid}
}

// recordInvalidChanges stores a rejection for a transaction whose
// payload could not be parsed.
func (r *Resolution) recordInvalidChanges(id covalue.TransactionID) {
	if existing, ok := r.outcomes[id]; ok && existing.Validated {
		return
	}
	r.outcomes[id] = Outcome{Validated: true, Valid: false, InvalidChanges: true}
}
