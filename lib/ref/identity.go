// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// Everyone is the wildcard member key. It is not an Identity — no
// transaction is ever authored by "everyone" — but it may appear as the
// affected member of a role assignment, granting a default role to any
// identity not listed explicitly.
const Everyone = "everyone"

// agentSealerPrefix and agentSignerPrefix tag the two halves of a raw
// agent reference.
const (
	agentSealerPrefix = "sealer_z"
	agentSignerPrefix = "signer_z"
)

// Identity is a validated reference to a transaction author: either an
// account (a stable content-addressed ID for a user, itself backed by a
// group-shaped CoValue) or a raw agent (a sealer/signer keypair used
// before an account exists, e.g. during invite redemption).
//
// Identities are opaque and totally ordered by their string form. The
// permission engine keys member-state tables on that order and assumes
// no further structure.
//
// Identity is an immutable value type. The zero value is not valid; use
// IsZero to check.
type Identity struct {
	id string
}

// ParseIdentity validates and wraps a raw identity string. Accepts
// account IDs ("co_z…") and agent IDs ("sealer_z…/signer_z…").
func ParseIdentity(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("empty identity")
	}
	if strings.HasPrefix(raw, coIDPrefix) {
		if _, err := ParseCoID(raw); err != nil {
			return Identity{}, err
		}
		return Identity{id: raw}, nil
	}
	if strings.HasPrefix(raw, agentSealerPrefix) {
		sealer, signer, ok := strings.Cut(raw, "/")
		if !ok || len(sealer) <= len(agentSealerPrefix) {
			return Identity{}, fmt.Errorf("malformed agent ID: %q", raw)
		}
		if !strings.HasPrefix(signer, agentSignerPrefix) || len(signer) <= len(agentSignerPrefix) {
			return Identity{}, fmt.Errorf("agent ID missing signer half: %q", raw)
		}
		return Identity{id: raw}, nil
	}
	return Identity{}, fmt.Errorf("identity must be an account ID (co_z…) or agent ID (sealer_z…/signer_z…): %q", raw)
}

// MustParseIdentity is like ParseIdentity but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseIdentity(raw string) Identity {
	identity, err := ParseIdentity(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseIdentity(%q): %v", raw, err))
	}
	return identity
}

// AccountIdentity wraps an account CoID as an Identity.
func AccountIdentity(id CoID) Identity {
	return Identity{id: id.String()}
}

// String returns the canonical identity string.
func (i Identity) String() string { return i.id }

// IsZero reports whether the Identity is the zero value (uninitialized).
func (i Identity) IsZero() bool { return i.id == "" }

// IsAccount reports whether the identity is an account ID.
func (i Identity) IsAccount() bool { return strings.HasPrefix(i.id, coIDPrefix) }

// IsAgent reports whether the identity is a raw agent keypair reference.
func (i Identity) IsAgent() bool { return strings.HasPrefix(i.id, agentSealerPrefix) }

// AccountCoID returns the identity's backing CoValue ID when the
// identity is an account, and false otherwise.
func (i Identity) AccountCoID() (CoID, bool) {
	if !i.IsAccount() {
		return CoID{}, false
	}
	return CoID{id: i.id}, true
}

// MarshalText implements encoding.TextMarshaler.
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Validates the
// identity format.
func (i *Identity) UnmarshalText(data []byte) error {
	parsed, err := ParseIdentity(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
