// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission is the access-control core of Weft: given a
// CoValue's causally-ordered transactions and its header ruleset, it
// decides which transactions are valid and reconstructs the effective
// member→role table of a group at any point in its history.
//
// The model is circular by construction — a group's own membership
// transactions determine who may author later membership transactions —
// and is resolved by a strict left fold over the transactions sorted by
// logical timestamp: each transaction is judged by the member table as
// built from all prior transactions, never by anything assigned later.
// The fold is a pure function of the transaction sequence, so every
// replica that holds the same transactions computes identical verdicts
// and identical member tables with no coordinator.
//
// Groups may extend other groups ("parent_<id>" entries), forming a
// capability lattice: resolving a group recursively resolves its
// parents and merges inheritable roles upward monotonically, with an
// extend-chain visited set guaranteeing termination across cyclic
// references.
//
// Verdicts are recorded in a Resolution — a table of per-transaction
// outcomes parallel to the transaction logs — rather than mutated onto
// shared transaction records. Outcomes are write-once: re-resolving a
// grown log re-judges only the new suffix and never changes an
// already-recorded verdict.
//
// Signature and hash verification happen upstream; the engine trusts
// each entry's author and timestamp. Structural problems (malformed
// headers, unloaded dependency values, unknown rulesets) are errors
// that abort resolution: they indicate bugs in the caller's loading
// discipline, not bad transactions. Everything attributable to a single
// transaction — forged roles, malformed payloads, replayed capabilities
// — is rejected locally and the fold continues.
package permission
