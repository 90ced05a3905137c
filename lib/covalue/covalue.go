// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package covalue

import (
	"fmt"
	"sort"

	"github.com/weft-foundation/weft/lib/codec"
	"github.com/weft-foundation/weft/lib/ref"
)

// Header is the immutable part of a CoValue, fixed at creation. The
// CoValue's ID is the hash of the deterministic CBOR encoding of the
// header, so any change to a header is a different value.
type Header struct {
	// Type is the CRDT shape of the value: "comap", "colist",
	// "costream". Groups and accounts are comaps.
	Type string `json:"type" cbor:"type"`

	// Ruleset declares the access-control mode.
	Ruleset Ruleset `json:"ruleset" cbor:"ruleset"`

	// Meta carries application metadata. A group whose meta has
	// "type": "account" is an account — a group-shaped value backing a
	// user identity.
	Meta map[string]any `json:"meta,omitempty" cbor:"meta,omitempty"`

	// CreatedAt is the creation timestamp in Unix milliseconds.
	CreatedAt int64 `json:"createdAt" cbor:"createdAt"`

	// Uniqueness distinguishes otherwise-identical headers so that two
	// independently created values with the same shape get distinct
	// IDs. Opaque; the platform uses random base64url strings.
	Uniqueness string `json:"uniqueness,omitempty" cbor:"uniqueness,omitempty"`
}

// IsAccount reports whether the header marks the value as an account.
func (h Header) IsAccount() bool {
	kind, _ := h.Meta["type"].(string)
	return kind == "account"
}

// CoValue is a loaded collaboratively-edited value: an immutable
// header plus per-session transaction logs. A CoValue is not safe for
// concurrent mutation; the sync layer serializes appends per value.
type CoValue struct {
	id       ref.CoID
	header   Header
	sessions map[ref.SessionID][]Transaction

	// sessionOrder preserves first-append order for deterministic
	// iteration independent of map ordering.
	sessionOrder []ref.SessionID
}

// New creates a CoValue from its header, deriving the ID from the
// header's deterministic CBOR encoding.
func New(header Header) (*CoValue, error) {
	encoded, err := codec.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	return &CoValue{
		id:       ref.DeriveCoID(encoded),
		header:   header,
		sessions: make(map[ref.SessionID][]Transaction),
	}, nil
}

// ID returns the value's content-addressed ID.
func (v *CoValue) ID() ref.CoID { return v.id }

// Header returns the value's immutable header.
func (v *CoValue) Header() Header { return v.header }

// Ruleset returns the header's access-control mode.
func (v *CoValue) Ruleset() Ruleset { return v.header.Ruleset }

// IsGroup reports whether the value is a group (a comap with a group
// ruleset).
func (v *CoValue) IsGroup() bool {
	return v.header.Ruleset.Type() == RulesetGroup && v.header.Type == "comap"
}

// IsAccount reports whether the value is an account (a group whose
// header meta marks it as one).
func (v *CoValue) IsAccount() bool {
	return v.IsGroup() && v.header.IsAccount()
}

// Append adds a transaction to the end of a session's log. The
// transaction's privacy mode must be valid and match its payload
// fields. Returns the new transaction's ID.
func (v *CoValue) Append(session ref.SessionID, tx Transaction) (TransactionID, error) {
	if session.IsZero() {
		return TransactionID{}, fmt.Errorf("transaction requires a session")
	}
	switch tx.Privacy {
	case Trusting:
		if tx.EncryptedChanges != nil || !tx.KeyUsed.IsZero() {
			return TransactionID{}, fmt.Errorf("trusting transaction carries encrypted payload fields")
		}
	case Private:
		if tx.Changes != nil {
			return TransactionID{}, fmt.Errorf("private transaction carries plaintext changes")
		}
		if tx.KeyUsed.IsZero() {
			return TransactionID{}, fmt.Errorf("private transaction requires keyUsed")
		}
	default:
		return TransactionID{}, fmt.Errorf("unknown privacy mode %q", tx.Privacy)
	}

	if _, seen := v.sessions[session]; !seen {
		v.sessionOrder = append(v.sessionOrder, session)
	}
	v.sessions[session] = append(v.sessions[session], tx)
	return TransactionID{Session: session, Index: len(v.sessions[session]) - 1}, nil
}

// SessionIDs returns the value's session IDs in first-append order.
func (v *CoValue) SessionIDs() []ref.SessionID {
	out := make([]ref.SessionID, len(v.sessionOrder))
	copy(out, v.sessionOrder)
	return out
}

// Session returns a copy of one session's transaction log.
func (v *CoValue) Session(id ref.SessionID) []Transaction {
	log := v.sessions[id]
	out := make([]Transaction, len(log))
	copy(out, log)
	return out
}

// Entries returns every transaction across all sessions, sorted for
// the permission fold: ascending by MadeAt, with ties broken by
// session ID and then in-session index. The tie-break makes the order
// a pure function of the transaction set — independent nodes that hold
// the same transactions fold them identically regardless of arrival
// order.
func (v *CoValue) Entries() []Entry {
	var entries []Entry
	for _, sessionID := range v.sessionOrder {
		author := sessionID.Author()
		for i, tx := range v.sessions[sessionID] {
			entries = append(entries, Entry{
				ID:     TransactionID{Session: sessionID, Index: i},
				Author: author,
				Tx:     tx,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Tx.MadeAt != b.Tx.MadeAt {
			return a.Tx.MadeAt < b.Tx.MadeAt
		}
		if a.ID.Session != b.ID.Session {
			return a.ID.Session.String() < b.ID.Session.String()
		}
		return a.ID.Index < b.ID.Index
	})
	return entries
}

// TransactionCount returns the total number of transactions across all
// sessions.
func (v *CoValue) TransactionCount() int {
	n := 0
	for _, log := range v.sessions {
		n += len(log)
	}
	return n
}
