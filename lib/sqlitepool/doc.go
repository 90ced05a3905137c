// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the Weft-standard SQLite connection
// pool. It wraps zombiezen.com/go/sqlite with the defaults the
// CoValue store runs on: WAL journal mode, NORMAL synchronous, a busy
// timeout for write contention, and memory-mapped reads.
//
// The pool is built on zombiezen's sqlitex.Pool. Callers [Pool.Take]
// a connection, do their work, and [Pool.Put] it back. Connections
// are not safe for concurrent use; each goroutine holds its own for
// the duration of its work.
//
// The package is deliberately thin: it applies pragmas and exposes
// the zombiezen types directly. Storage code writes SQL, uses
// sqlitex.Execute for cached statements, and wraps writes in
// sqlitex.ImmediateTransaction.
package sqlitepool
