// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package covalue models a loaded CoValue: its immutable header (with
// the access-control ruleset), its per-session transaction logs, and a
// registry of loaded values.
//
// A CoValue's history is a set of signed per-session logs. Each session
// belongs to one authoring identity and is strictly ordered; across
// sessions there is no total order except the logical timestamps the
// permission engine sorts by. This package holds transactions exactly
// as delivered by the sync layer — signature and hash verification have
// already happened upstream, so the author and timestamp on each entry
// are taken as authentic.
//
// The package performs no validity decisions itself; that is
// lib/permission's job. It also performs no I/O — lib/storage loads
// values from disk into these structures.
package covalue
