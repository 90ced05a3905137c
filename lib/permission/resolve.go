// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/role"
)

// Node is what the engine needs from the surrounding node: access to
// already-loaded dependency values and the node's own identity (for
// the self-revocation exception). covalue.Registry satisfies it.
type Node interface {
	// ExpectCoValueLoaded returns the loaded value with the given ID.
	// The engine treats a miss as a structural error — loading is the
	// sync layer's responsibility and happens before resolution.
	ExpectCoValueLoaded(id ref.CoID) (*covalue.CoValue, error)

	// CurrentIdentity returns the identity this node operates as.
	CurrentIdentity() ref.Identity
}

// Options configures a resolution pass.
type Options struct {
	// Logger receives per-transaction rejection diagnostics at debug
	// level. Nil discards them — tests exercising expected failures
	// pass nil rather than toggling any global state.
	Logger *slog.Logger
}

// allTime folds the complete history.
const allTime = int64(math.MaxInt64)

// DetermineValidTransactions judges every not-yet-validated
// transaction of a loaded value according to its header ruleset,
// recording verdicts into res. The resolution may be re-invoked after
// new transactions append; previously recorded verdicts are never
// changed.
//
// Resolution is synchronous and single-threaded per value. Distinct
// top-level resolutions share no mutable state and may run in
// parallel; resolving the same value concurrently is the caller's bug.
func DetermineValidTransactions(node Node, value *covalue.CoValue, res *Resolution, opts Options) error {
	switch value.Ruleset().Type() {
	case covalue.RulesetGroup:
		initialAdmin := value.Ruleset().InitialAdmin()
		if initialAdmin.IsZero() {
			return fmt.Errorf("group %s: %w", value.ID(), ErrMissingInitialAdmin)
		}
		_, err := validateGroup(node, value, initialAdmin, res, nil, nil, allTime, opts.Logger)
		return err

	case covalue.RulesetOwnedByGroup:
		return validateOwned(node, value, res, opts.Logger)

	case covalue.RulesetUnsafeAllowAll:
		for _, entry := range value.Entries() {
			res.record(entry.ID, true)
		}
		return nil

	default:
		return fmt.Errorf("value %s: %w %q", value.ID(), ErrUnknownRuleset, value.Ruleset().Type())
	}
}

// ResolveGroupMembers resolves a group's current member table,
// recording verdicts for its transactions into res along the way.
// This is the entry point for "what is X's role right now" callers
// and for feeding inheritance.
func ResolveGroupMembers(node Node, group *covalue.CoValue, res *Resolution, opts Options) (MemberState, error) {
	if group.Ruleset().Type() != covalue.RulesetGroup {
		return nil, fmt.Errorf("value %s: %w", group.ID(), ErrNotAGroup)
	}
	initialAdmin := group.Ruleset().InitialAdmin()
	if initialAdmin.IsZero() {
		return nil, fmt.Errorf("group %s: %w", group.ID(), ErrMissingInitialAdmin)
	}
	result, err := validateGroup(node, group, initialAdmin, res, nil, nil, allTime, opts.Logger)
	if err != nil {
		return nil, err
	}
	return result.members, nil
}

// GroupMembersAt resolves a group's member table as of a logical
// timestamp — the temporal snapshot owned-value validation is built
// on. The fold runs on a scratch outcome table so snapshots never
// disturb a live Resolution.
func GroupMembersAt(node Node, group *covalue.CoValue, madeAt int64, opts Options) (MemberState, error) {
	result, err := groupStateAt(node, group, madeAt, opts.Logger)
	if err != nil {
		return nil, err
	}
	return result.members, nil
}

// groupStateAt is GroupMembersAt plus the current-agent bookkeeping.
func groupStateAt(node Node, group *covalue.CoValue, madeAt int64, logger *slog.Logger) (*groupResult, error) {
	if group.Ruleset().Type() != covalue.RulesetGroup {
		return nil, fmt.Errorf("value %s: %w", group.ID(), ErrNotAGroup)
	}
	initialAdmin := group.Ruleset().InitialAdmin()
	if initialAdmin.IsZero() {
		return nil, fmt.Errorf("group %s: %w", group.ID(), ErrMissingInitialAdmin)
	}
	return validateGroup(node, group, initialAdmin, NewResolution(), nil, nil, madeAt, logger)
}

// validateOwned judges an owned value's transactions by the author's
// role in the owning group at each transaction's timestamp. Roles are
// temporal: a member revoked at time t still has their writes before t
// accepted, and a member promoted later does not retroactively gain
// earlier writes.
func validateOwned(node Node, value *covalue.CoValue, res *Resolution, logger *slog.Logger) error {
	group, err := node.ExpectCoValueLoaded(value.Ruleset().Group())
	if err != nil {
		return fmt.Errorf("%w: owning group %s: %v", ErrNotLoaded, value.Ruleset().Group(), err)
	}
	if group.Header().Type != "comap" {
		return fmt.Errorf("owning group %s: %w", group.ID(), ErrNotAGroup)
	}

	for _, entry := range value.Entries() {
		if res.Outcome(entry.ID).Validated {
			continue
		}

		state, err := groupStateAt(node, group, entry.Tx.MadeAt, logger)
		if err != nil {
			return err
		}

		// When the owning group is an account and the author is the
		// account itself, the effective transactor is the account's
		// agent at that time — so account-level agent changes are
		// reflected in what the account may write.
		transactor := entry.Author
		if group.IsAccount() && transactor.String() == group.ID().String() {
			if state.lastAgent.IsZero() {
				if logger != nil {
					logger.Debug("permission error: account has no current agent",
						"coValue", value.ID().String(), "tx", entry.ID.String())
				}
				res.record(entry.ID, false)
				continue
			}
			transactor = state.lastAgent
		}

		switch state.members.EffectiveRoleOf(transactor) {
		case role.Admin, role.SuperAdmin, role.Writer, role.WriteOnly:
			res.record(entry.ID, true)
		default:
			// Readers (and everyone else) cannot write.
			if logger != nil {
				logger.Debug("permission error: transactor cannot write to owned value",
					"coValue", value.ID().String(), "tx", entry.ID.String(),
					"transactor", transactor.String())
			}
			res.record(entry.ID, false)
		}
	}

	return nil
}
