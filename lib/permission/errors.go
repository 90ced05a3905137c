// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import "errors"

// Structural resolution errors. These abort the whole resolution: they
// indicate a bug in the caller's loading or ordering discipline, not a
// bad actor's transaction, so no per-transaction verdict can absorb
// them. Match with errors.Is.
var (
	// ErrMissingInitialAdmin means a group ruleset has no initial
	// admin. The header is malformed; no transaction in such a group
	// can ever be judged.
	ErrMissingInitialAdmin = errors.New("group ruleset missing initial admin")

	// ErrUnknownRuleset means the header declares a ruleset type this
	// engine does not know.
	ErrUnknownRuleset = errors.New("unknown ruleset type")

	// ErrNotAGroup means an ownedByGroup ruleset references a value
	// that is not a group-shaped map.
	ErrNotAGroup = errors.New("referenced value is not a group")

	// ErrNotLoaded means a dependency value (owning group or extended
	// parent) is not loaded on this node. The sync layer must load
	// dependencies before resolution is invoked.
	ErrNotLoaded = errors.New("dependency CoValue not loaded")
)
