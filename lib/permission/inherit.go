// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"fmt"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/role"
)

// applyParentExtend handles a parent_<id> directive: authorize it,
// recursively resolve the parent group, and merge its inheritable
// roles into this group's member table.
//
// Returned errors are structural (parent not loaded, parent malformed)
// and abort the whole fold. Cycles are not errors: the directive that
// closes a cycle is rejected, the group does not gain that
// inheritance, and the rest of the fold continues.
func (f *groupFold) applyParentExtend(id covalue.TransactionID, transactorRole role.Role, c change) error {
	if !transactorRole.CanAdmin() {
		f.reject(id, "only admins can set parent extensions")
		return nil
	}
	if c.parent.IsZero() || !c.mappingOK {
		f.reject(id, "malformed parent extension", "key", c.key)
		return nil
	}

	cycle, err := f.resolveParentExtension(c)
	if err != nil {
		return err
	}
	if cycle {
		f.reject(id, "circular extend detected, dropping the transaction",
			"parent", c.parent.String())
		return nil
	}

	f.res.record(id, true)
	return nil
}

// resolveParentExtension resolves the parent group's member state —
// running the full group fold on it — and merges inheritable roles
// into this fold's table. Reports whether the directive closed a
// cycle, in which case nothing was merged.
//
// Two structures bound the recursion. The extend chain is the shared
// visited set: a parent already in it has been resolved somewhere in
// this pass and is never folded again, which is what makes diamond
// extend graphs (two paths to one ancestor) cheap and cyclic ones
// finite. The path is the ancestor stack of the current recursion,
// and is what tells those two cases apart: a visited parent that is
// also an ancestor means the graph loops back; a visited parent that
// is not is just a diamond with nothing further to merge.
func (f *groupFold) resolveParentExtension(c change) (cycle bool, err error) {
	parentValue, err := f.node.ExpectCoValueLoaded(c.parent)
	if err != nil {
		return false, fmt.Errorf("%w: parent group %s: %v", ErrNotLoaded, c.parent, err)
	}

	// A parent that is not a group contributes nothing; the directive
	// itself is still judged on the transactor's authority alone.
	if parentValue.Ruleset().Type() != covalue.RulesetGroup {
		return false, nil
	}

	if f.extendChain == nil {
		f.extendChain = make(map[ref.CoID]struct{})
	}

	if _, visited := f.extendChain[parentValue.ID()]; visited {
		return f.onPath(parentValue.ID()), nil
	}

	parentAdmin := parentValue.Ruleset().InitialAdmin()
	if parentAdmin.IsZero() {
		return false, fmt.Errorf("parent group %s: %w", parentValue.ID(), ErrMissingInitialAdmin)
	}

	// Whether the subtree below this directive reaches back to this
	// group is detectable afterwards as our own ID newly appearing in
	// the chain. An ID put there before this directive ran was added
	// by whoever is resolving us and is not a cycle.
	_, selfWasInChain := f.extendChain[f.value.ID()]
	f.extendChain[parentValue.ID()] = struct{}{}

	// The nested fold gets its own outcome table. Transaction IDs are
	// session-scoped, not value-scoped, so the same author and nonce
	// name a transaction in both the parent and this group; sharing
	// one table would let a parent verdict shadow this group's own.
	// The parent's authoritative verdicts come from its own
	// resolution, not from what this recursion computed in passing.
	parentResult, err := validateGroup(f.node, parentValue, parentAdmin, NewResolution(), f.extendChain, f.path, f.until, f.logger)
	if err != nil {
		return false, err
	}

	if _, selfInChain := f.extendChain[f.value.ID()]; selfInChain && !selfWasInChain {
		return true, nil
	}

	f.mergeInherited(parentResult.members, c.mapping)
	return false, nil
}

// onPath reports whether id is an ancestor of this fold, the current
// group included.
func (f *groupFold) onPath(id ref.CoID) bool {
	for _, ancestor := range f.path {
		if ancestor == id {
			return true
		}
	}
	return false
}

// mergeInherited merges a parent's member table into this fold's. The
// merge is monotonic: a member's role can only move up as parents fold
// in, never regress an already-higher entry from another parent or
// from the group's own transactions. A non-extend mapping caps what is
// inherited — the cap itself wins over the raw parent role, so "extend
// this parent but nobody gets more than reader" is expressible.
func (f *groupFold) mergeInherited(parent MemberState, mapping role.ParentMapping) {
	for member, parentRole := range parent {
		if !parentRole.IsInheritable() {
			continue
		}
		current := f.members[member]
		if !mapping.IsExtend() && role.IsHigher(mapping.Cap, current) {
			f.members[member] = mapping.Cap
		} else if role.IsHigher(parentRole, current) {
			f.members[member] = parentRole
		}
	}
}
