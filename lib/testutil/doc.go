// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Weft packages.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// header uniqueness strings or session nonces; two CoValues created
// with identical headers are the same value, which is rarely what a
// test means to set up.
//
// Helpers call t.Fatalf on failure rather than returning errors, since
// test setup failures are not recoverable.
package testutil
