// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package covalue

import (
	"encoding/json"
	"fmt"

	"github.com/weft-foundation/weft/lib/ref"
)

// Privacy is a transaction's privacy mode.
type Privacy string

const (
	// Trusting transactions carry plaintext JSON changes, readable and
	// auditable by every replica that holds the value.
	Trusting Privacy = "trusting"

	// Private transactions carry changes encrypted under a symmetric
	// key named by KeyUsed. The permission engine decides who may have
	// authored them; it never decrypts them.
	Private Privacy = "private"
)

// IsValid reports whether p is a known privacy mode.
func (p Privacy) IsValid() bool {
	return p == Trusting || p == Private
}

// Transaction is one signed entry in a session log. The author is the
// session's identity and is authenticated upstream; the engine trusts
// MadeAt and the payload fields as delivered.
type Transaction struct {
	// Privacy selects which payload field is populated.
	Privacy Privacy `json:"privacy" cbor:"privacy"`

	// MadeAt is the author's logical timestamp in Unix milliseconds.
	// The permission fold sorts by it; it is not wall-clock-trusted
	// beyond that.
	MadeAt int64 `json:"madeAt" cbor:"madeAt"`

	// Changes is the plaintext JSON change list for trusting
	// transactions. Nil for private transactions.
	Changes json.RawMessage `json:"changes,omitempty" cbor:"changes,omitempty"`

	// EncryptedChanges is the ciphertext for private transactions.
	// Nil for trusting transactions.
	EncryptedChanges []byte `json:"encryptedChanges,omitempty" cbor:"encryptedChanges,omitempty"`

	// KeyUsed names the symmetric key a private transaction was
	// encrypted under. Zero for trusting transactions.
	KeyUsed ref.KeyID `json:"keyUsed,omitempty" cbor:"keyUsed,omitempty"`
}

// TransactionID identifies a transaction within a CoValue: the session
// it belongs to and its zero-based index in that session's log.
type TransactionID struct {
	Session ref.SessionID
	Index   int
}

// String returns "session[index]" for diagnostics.
func (t TransactionID) String() string {
	return fmt.Sprintf("%s[%d]", t.Session, t.Index)
}

// Entry is one transaction with its identity and author, as handed to
// the permission engine. Author is derived from the session ID, which
// the sync layer has already verified against the transaction
// signature.
type Entry struct {
	ID     TransactionID
	Author ref.Identity
	Tx     Transaction
}
