// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"sort"

	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/role"
)

// MemberState is a group's resolved member→role table at a point in
// its transaction history. Keys are identity strings, plus optionally
// the ref.Everyone wildcard. The table is a pure function of the
// folded transaction prefix: it is rebuilt on every resolution and
// never mutated outside the fold.
type MemberState map[string]role.Role

// RoleOf returns the resolved role of an identity, or the zero role if
// the identity has no entry. The Everyone wildcard is not consulted;
// use EffectiveRoleOf where wildcard fallback applies.
func (m MemberState) RoleOf(identity ref.Identity) role.Role {
	return m[identity.String()]
}

// EffectiveRoleOf returns the identity's direct role, falling back to
// the Everyone wildcard entry when the identity has none. This is the
// lookup owned-value validation uses: a group that granted everyone
// writer lets any identity write its owned values.
func (m MemberState) EffectiveRoleOf(identity ref.Identity) role.Role {
	if r, ok := m[identity.String()]; ok {
		return r
	}
	return m[ref.Everyone]
}

// Member is one row of a sorted member table.
type Member struct {
	Key  string
	Role role.Role
}

// Sorted returns the table as rows ordered by member key. Identities
// are totally ordered strings, so this order is identical on every
// node that computed the same table.
func (m MemberState) Sorted() []Member {
	members := make([]Member, 0, len(m))
	for key, r := range m {
		members = append(members, Member{Key: key, Role: r})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Key < members[j].Key })
	return members
}

// clone returns an independent copy of the table.
func (m MemberState) clone() MemberState {
	out := make(MemberState, len(m))
	for key, r := range m {
		out[key] = r
	}
	return out
}
