// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package covalue

import (
	"encoding/json"
	"fmt"

	"github.com/weft-foundation/weft/lib/codec"
	"github.com/weft-foundation/weft/lib/ref"
)

// RulesetType discriminates the access-control mode declared in a
// CoValue's header.
type RulesetType string

const (
	// RulesetGroup means the value is a group: its own transactions
	// define its membership, and validity is decided by the group
	// transaction validator.
	RulesetGroup RulesetType = "group"

	// RulesetOwnedByGroup means every transaction's validity is
	// decided by the author's role in the owning group at the
	// transaction's timestamp.
	RulesetOwnedByGroup RulesetType = "ownedByGroup"

	// RulesetUnsafeAllowAll accepts every transaction unconditionally.
	// Bootstrap and test escape hatch only — see NewUnsafeAllowAllRuleset.
	RulesetUnsafeAllowAll RulesetType = "unsafeAllowAll"
)

// Ruleset is the header-declared access-control mode of a CoValue. It
// is a tagged union: exactly one of the mode-specific fields is set,
// according to Type.
//
// Construct with NewGroupRuleset, NewOwnedByGroupRuleset, or
// NewUnsafeAllowAllRuleset; the zero value is not a valid ruleset.
type Ruleset struct {
	kind         RulesetType
	initialAdmin ref.Identity
	group        ref.CoID
}

// NewGroupRuleset declares a group ruleset. initialAdmin is the one
// identity allowed to self-promote to admin or superAdmin with no prior
// authorization, bootstrapping a freshly created group.
func NewGroupRuleset(initialAdmin ref.Identity) (Ruleset, error) {
	if initialAdmin.IsZero() {
		return Ruleset{}, fmt.Errorf("group ruleset requires an initial admin")
	}
	return Ruleset{kind: RulesetGroup, initialAdmin: initialAdmin}, nil
}

// NewOwnedByGroupRuleset declares an owned-by-group ruleset deferring
// all access decisions to the referenced group.
func NewOwnedByGroupRuleset(group ref.CoID) (Ruleset, error) {
	if group.IsZero() {
		return Ruleset{}, fmt.Errorf("ownedByGroup ruleset requires a group ID")
	}
	return Ruleset{kind: RulesetOwnedByGroup, group: group}, nil
}

// NewUnsafeAllowAllRuleset declares a ruleset that accepts every
// transaction from anyone. It exists for bootstrap values and tests;
// nothing inside a production trust boundary may be created with it,
// and the permission engine makes no attempt to contain the damage if
// one is.
func NewUnsafeAllowAllRuleset() Ruleset {
	return Ruleset{kind: RulesetUnsafeAllowAll}
}

// Type returns the ruleset discriminator.
func (r Ruleset) Type() RulesetType { return r.kind }

// InitialAdmin returns the bootstrap admin identity. Only meaningful
// for group rulesets; zero otherwise.
func (r Ruleset) InitialAdmin() ref.Identity { return r.initialAdmin }

// Group returns the owning group's ID. Only meaningful for
// ownedByGroup rulesets; zero otherwise.
func (r Ruleset) Group() ref.CoID { return r.group }

// rulesetWire is the serialized form shared by JSON and CBOR.
type rulesetWire struct {
	Type         string `json:"type" cbor:"type"`
	InitialAdmin string `json:"initialAdmin,omitempty" cbor:"initialAdmin,omitempty"`
	Group        string `json:"group,omitempty" cbor:"group,omitempty"`
}

func (r Ruleset) wire() rulesetWire {
	return rulesetWire{
		Type:         string(r.kind),
		InitialAdmin: r.initialAdmin.String(),
		Group:        r.group.String(),
	}
}

func (r *Ruleset) fromWire(w rulesetWire) error {
	switch RulesetType(w.Type) {
	case RulesetGroup:
		// A group header without an initialAdmin is malformed, but
		// flagging that is the dispatcher's job (it is a fatal
		// resolution error, not a parse error), so it is preserved
		// here rather than rejected.
		var initialAdmin ref.Identity
		if w.InitialAdmin != "" {
			parsed, err := ref.ParseIdentity(w.InitialAdmin)
			if err != nil {
				return fmt.Errorf("group ruleset: %w", err)
			}
			initialAdmin = parsed
		}
		*r = Ruleset{kind: RulesetGroup, initialAdmin: initialAdmin}
		return nil
	case RulesetOwnedByGroup:
		group, err := ref.ParseCoID(w.Group)
		if err != nil {
			return fmt.Errorf("ownedByGroup ruleset: %w", err)
		}
		*r = Ruleset{kind: RulesetOwnedByGroup, group: group}
		return nil
	case RulesetUnsafeAllowAll:
		*r = Ruleset{kind: RulesetUnsafeAllowAll}
		return nil
	default:
		// Unknown ruleset types are preserved so the dispatcher can
		// fail resolution with ErrUnknownRuleset instead of the value
		// failing to load at all.
		*r = Ruleset{kind: RulesetType(w.Type)}
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (r Ruleset) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ruleset) UnmarshalJSON(data []byte) error {
	var w rulesetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return r.fromWire(w)
}

// MarshalCBOR implements cbor.Marshaler. Uses the deterministic codec
// so the ruleset contributes stable bytes to header hashing.
func (r Ruleset) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(r.wire())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (r *Ruleset) UnmarshalCBOR(data []byte) error {
	var w rulesetWire
	if err := codec.Unmarshal(data, &w); err != nil {
		return err
	}
	return r.fromWire(w)
}
