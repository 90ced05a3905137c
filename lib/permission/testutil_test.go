// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
)

// Test identities. currentNodeIdentity is what the test registry
// reports as the node's own identity, for the self-revocation
// exception.
var (
	currentNodeIdentity = ref.MustParseIdentity("co_zMe")

	alice = ref.MustParseIdentity("co_zAlice")
	bob   = ref.MustParseIdentity("co_zBob")
	carol = ref.MustParseIdentity("co_zCarol")
	dave  = ref.MustParseIdentity("co_zDave")
)

// testNode builds a registry acting as currentNodeIdentity.
func testNode(values ...*covalue.CoValue) *covalue.Registry {
	registry := covalue.NewRegistry(currentNodeIdentity)
	for _, value := range values {
		registry.Add(value)
	}
	return registry
}

// newGroup creates a group CoValue with the given initial admin.
func newGroup(t *testing.T, initialAdmin ref.Identity) *covalue.CoValue {
	t.Helper()
	ruleset, err := covalue.NewGroupRuleset(initialAdmin)
	if err != nil {
		t.Fatalf("NewGroupRuleset: %v", err)
	}
	value, err := covalue.New(covalue.Header{
		Type:       "comap",
		Ruleset:    ruleset,
		CreatedAt:  1,
		Uniqueness: fmt.Sprintf("%s/%s", t.Name(), initialAdmin),
	})
	if err != nil {
		t.Fatalf("covalue.New: %v", err)
	}
	return value
}

// session returns the author's test session for a value (nonce "s1",
// so each author has exactly one session per value).
func session(t *testing.T, author ref.Identity) ref.SessionID {
	t.Helper()
	id, err := ref.NewSessionID(author, "s1")
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	return id
}

// setRaw appends a trusting transaction with a single raw {key, set,
// value} change and returns its ID.
func setRaw(t *testing.T, value *covalue.CoValue, author ref.Identity, madeAt int64, key string, rawValue string) covalue.TransactionID {
	t.Helper()
	changes := fmt.Sprintf(`[{"op":"set","key":%q,"value":%s}]`, key, rawValue)
	id, err := value.Append(session(t, author), covalue.Transaction{
		Privacy: covalue.Trusting,
		MadeAt:  madeAt,
		Changes: json.RawMessage(changes),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return id
}

// setRole appends a role-assignment transaction.
func setRole(t *testing.T, value *covalue.CoValue, author ref.Identity, madeAt int64, member string, role string) covalue.TransactionID {
	t.Helper()
	return setRaw(t, value, author, madeAt, member, fmt.Sprintf("%q", role))
}

// appendTrusting appends a trusting transaction with an arbitrary
// payload (possibly malformed).
func appendTrusting(t *testing.T, value *covalue.CoValue, author ref.Identity, madeAt int64, payload string) covalue.TransactionID {
	t.Helper()
	id, err := value.Append(session(t, author), covalue.Transaction{
		Privacy: covalue.Trusting,
		MadeAt:  madeAt,
		Changes: json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return id
}

// appendPrivate appends a private transaction.
func appendPrivate(t *testing.T, value *covalue.CoValue, author ref.Identity, madeAt int64) covalue.TransactionID {
	t.Helper()
	id, err := value.Append(session(t, author), covalue.Transaction{
		Privacy:          covalue.Private,
		MadeAt:           madeAt,
		EncryptedChanges: []byte{0xde, 0xad},
		KeyUsed:          ref.MustParseKeyID("key_zTest"),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return id
}

// resolveGroup runs a full group resolution and returns the member
// table and the resolution.
func resolveGroup(t *testing.T, node Node, group *covalue.CoValue) (MemberState, *Resolution) {
	t.Helper()
	res := NewResolution()
	members, err := ResolveGroupMembers(node, group, res, Options{})
	if err != nil {
		t.Fatalf("ResolveGroupMembers: %v", err)
	}
	return members, res
}

// wantValid asserts a transaction's verdict.
func wantValid(t *testing.T, res *Resolution, id covalue.TransactionID, want bool) {
	t.Helper()
	outcome := res.Outcome(id)
	if !outcome.Validated {
		t.Fatalf("transaction %s was not validated", id)
	}
	if outcome.Valid != want {
		t.Errorf("transaction %s valid = %v, want %v", id, outcome.Valid, want)
	}
}
