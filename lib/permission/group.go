// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"log/slog"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/role"
)

// groupResult is what a group fold produces: the resolved member table
// and the account bookkeeping the owned-value validator needs.
type groupResult struct {
	members MemberState

	// lastAgent is the most recent agent identity granted an account
	// role, for resolving an account's current agent. Zero when the
	// group has no agent members or the last one lost its account
	// role again.
	lastAgent ref.Identity
}

// groupFold is the state of one left fold over a group's transactions.
// Everything here is scoped to a single resolution pass; the member
// table is rebuilt from scratch each time validity is determined and
// discarded afterwards.
type groupFold struct {
	node         Node
	value        *covalue.CoValue
	initialAdmin ref.Identity
	res          *Resolution
	logger       *slog.Logger

	// until bounds the fold to transactions with MadeAt <= until,
	// for temporal snapshots. math.MaxInt64 folds everything.
	until int64

	members MemberState

	// writeOnlyKeys records which write-only key was assigned to each
	// member earlier in this fold, to arbitrate own-key revelations.
	// Deliberately fold-local: keys obtained through parent-group
	// inheritance do not authorize revelation here.
	writeOnlyKeys map[string]ref.KeyID

	// writeKeys records write-key entries already set in this fold so
	// a non-admin invite holder cannot clobber another member's key.
	writeKeys map[string]struct{}

	// extendChain is the visited set shared across the whole
	// recursive extend graph. It is threaded by reference through
	// every recursive call so cycles spanning multiple hops are
	// caught, not just direct back-references.
	extendChain map[ref.CoID]struct{}

	// path is the ancestor stack of this fold: every group currently
	// being resolved above it, plus this group itself. Unlike the
	// chain it is scoped to one recursion branch, which is what lets
	// the resolver tell a cycle from a diamond.
	path []ref.CoID

	lastAgent ref.Identity
}

// validateGroup folds a group's transactions into a member table,
// recording a verdict for every transaction at or before until. Fatal
// structural errors (an extended parent not loaded or malformed) abort
// the fold; every transaction-attributable problem is a recorded
// rejection and the fold continues.
func validateGroup(node Node, value *covalue.CoValue, initialAdmin ref.Identity, res *Resolution, extendChain map[ref.CoID]struct{}, path []ref.CoID, until int64, logger *slog.Logger) (*groupResult, error) {
	fold := &groupFold{
		node:          node,
		value:         value,
		initialAdmin:  initialAdmin,
		res:           res,
		logger:        logger,
		until:         until,
		members:       make(MemberState),
		writeOnlyKeys: make(map[string]ref.KeyID),
		writeKeys:     make(map[string]struct{}),
		extendChain:   extendChain,
		path:          append(path[:len(path):len(path)], value.ID()),
	}

	for _, entry := range value.Entries() {
		if entry.Tx.MadeAt > until {
			break
		}
		if err := fold.apply(entry); err != nil {
			return nil, err
		}
	}

	return &groupResult{members: fold.members, lastAgent: fold.lastAgent}, nil
}

// reject records a rejection with a diagnostic. The diagnostic goes to
// the injected sink at debug level; rejections are the dominant error
// path and must stay cheap and non-fatal.
func (f *groupFold) reject(id covalue.TransactionID, message string, attrs ...any) {
	if f.logger != nil {
		attrs = append(attrs, "coValue", f.value.ID().String(), "tx", id.String())
		f.logger.Debug("permission error: "+message, attrs...)
	}
	f.res.record(id, false)
}

// apply judges one transaction against the member table built from
// all prior transactions. Pure left-to-right causality: a role
// assigned later never influences an earlier verdict.
func (f *groupFold) apply(entry covalue.Entry) error {
	id := entry.ID
	transactor := entry.Author
	transactorRole := f.members[transactor.String()]

	// Private transactions are opaque control writes; only admins may
	// author them, because group-map semantics must stay auditable by
	// every reader.
	if entry.Tx.Privacy == covalue.Private {
		if transactorRole.CanAdmin() {
			f.res.record(id, true)
		} else {
			f.reject(id, "only admins can make private transactions in groups")
		}
		return nil
	}

	changes, err := parseChanges(entry.Tx.Changes)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("permission error: invalid JSON in transaction",
				"coValue", f.value.ID().String(), "tx", id.String(), "error", err.Error())
		}
		f.res.recordInvalidChanges(id)
		return nil
	}
	if len(changes) != 1 {
		f.reject(id, "group transaction must have exactly one change", "changes", len(changes))
		return nil
	}
	if changes[0].Op != "set" {
		f.reject(id, "group transaction must set a role or readKey", "op", changes[0].Op)
		return nil
	}

	c := classifyChange(changes[0])

	switch c.kind {
	case changeReadKey:
		if !transactorRole.CanAdmin() {
			f.reject(id, "only admins can set readKeys")
			return nil
		}
		f.res.record(id, true)

	case changeProfile:
		if !transactorRole.CanAdmin() {
			f.reject(id, "only admins can set profile")
			return nil
		}
		f.res.record(id, true)

	case changeRoot:
		if !transactorRole.CanAdmin() {
			f.reject(id, "only admins can set root")
			return nil
		}
		f.res.record(id, true)

	case changeKeyRevelation:
		// Invite holders may reveal keys even before holding a
		// standing role — an invited member has to be able to
		// distribute the keys needed to actually read and write. A
		// write-only member may also re-reveal the key that was
		// assigned to them earlier in this fold.
		if !f.mayRevealKeys(transactorRole) && !f.isOwnWriteKeyRevelation(c, transactor) {
			f.reject(id, "only admins can reveal keys")
			return nil
		}
		f.res.record(id, true)

	case changeParentExtend:
		return f.applyParentExtend(id, transactorRole, c)

	case changeChildRecord:
		// Informational back-reference; no permission consequence.
		f.res.record(id, true)

	case changeWriteKey:
		f.applyWriteKey(id, transactor, transactorRole, c)

	case changeRoleAssignment:
		f.applyRoleAssignment(id, transactor, transactorRole, c)
	}

	return nil
}

// mayRevealKeys reports whether a role can author key revelations.
func (f *groupFold) mayRevealKeys(r role.Role) bool {
	return r.CanAdmin() || r.IsInvite()
}

// isOwnWriteKeyRevelation reports whether the transactor is revealing
// the write-only key previously assigned specifically to them in this
// same fold.
func (f *groupFold) isOwnWriteKeyRevelation(c change, transactor ref.Identity) bool {
	if len(f.writeOnlyKeys) == 0 || c.revealedKey == "" {
		return false
	}
	assigned, ok := f.writeOnlyKeys[transactor.String()]
	return ok && assigned.String() == c.revealedKey
}

// applyWriteKey handles writeKeyFor_<identity> assignments.
func (f *groupFold) applyWriteKey(id covalue.TransactionID, transactor ref.Identity, transactorRole role.Role, c change) {
	if !c.writeKeyOK {
		f.reject(id, "write key value must be a key ID", "key", c.key)
		return
	}

	mayAssign := transactorRole.CanAdmin() ||
		transactorRole == role.SuperAdminInvite ||
		transactorRole == role.WriteOnlyInvite ||
		c.writeKeyMember == transactor.String()
	if !mayAssign {
		f.reject(id, "only admins can set writeKeys")
		return
	}

	// A write key already recorded in this fold cannot be overwritten
	// by a non-admin: an invite redeemer must not be able to clobber
	// another member's key and lock them out.
	if _, exists := f.writeKeys[c.key]; exists && !transactorRole.CanAdmin() {
		f.reject(id, "write key already exists and can't be overridden by invite")
		return
	}

	f.writeKeys[c.key] = struct{}{}
	f.writeOnlyKeys[c.writeKeyMember] = c.writeKey
	f.res.record(id, true)
}

// applyRoleAssignment handles direct member→role assignments, the
// heart of the decision table: (transactor role, target change) maps
// to accept or reject, and acceptance updates the member table.
func (f *groupFold) applyRoleAssignment(id covalue.TransactionID, transactor ref.Identity, transactorRole role.Role, c change) {
	accept := func() {
		f.members[c.member] = c.assigned
		f.trackAgent(c.member, c.assigned)
		f.res.record(id, true)
	}

	if !c.assignedOK || !c.assigned.IsValid() {
		f.reject(id, "group transaction must set a valid role", "member", c.member)
		return
	}

	if c.member == ref.Everyone && !c.assigned.AssignableToEveryone() {
		f.reject(id, "everyone can only be set to reader, writer, writeOnly or revoked",
			"role", string(c.assigned))
		return
	}

	// Bootstrap: the initial admin's first self-promotion needs no
	// prior authorization — it is how a freshly created group gets
	// its first admin.
	if transactorRole == "" &&
		transactor == f.initialAdmin &&
		c.member == transactor.String() &&
		(c.assigned == role.Admin || c.assigned == role.SuperAdmin) {
		accept()
		return
	}

	// Self-revocation: this node's own identity may always remove
	// itself, whatever its role.
	if currentIdentity := f.node.CurrentIdentity(); c.member == currentIdentity.String() &&
		transactor.String() == c.member &&
		c.assigned == role.Revoked {
		accept()
		return
	}

	affectedRole := f.members[c.member]

	if transactorRole == role.SuperAdmin {
		accept()
		return
	}

	if transactorRole == role.Admin {
		if c.assigned == role.SuperAdmin {
			f.reject(id, "admins can't promote to super-admin")
			return
		}
		if affectedRole == role.SuperAdmin {
			f.reject(id, "admins can't demote super-admins")
			return
		}
		if c.assigned == role.SuperAdminInvite {
			f.reject(id, "admins can't create super-admin invites")
			return
		}
		if affectedRole == role.Admin && c.assigned != role.Admin && c.member != transactor.String() {
			f.reject(id, "admins can't demote admins")
			return
		}
		accept()
		return
	}

	if mints, isInvite := transactorRole.Mints(); isInvite {
		if c.assigned != mints {
			f.reject(id, "invite can only create its own role",
				"invite", string(transactorRole), "role", string(c.assigned))
			return
		}
		accept()
		return
	}

	f.reject(id, "group transaction must be made by current admin or invite")
}

// trackAgent notes the latest agent identity holding an account role,
// so an account value can resolve its current agent.
func (f *groupFold) trackAgent(member string, assigned role.Role) {
	identity, err := ref.ParseIdentity(member)
	if err != nil || !identity.IsAgent() {
		return
	}
	if assigned.IsAccountRole() {
		f.lastAgent = identity
	} else if f.lastAgent == identity {
		f.lastAgent = ref.Identity{}
	}
}
