// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage persists CoValues in SQLite: one row per header,
// one row per transaction, keyed by (value, session, index).
//
// Headers are stored as deterministic CBOR, and a stored ID must
// equal the ID re-derived from its header bytes — verified on both
// store and load, so silent corruption surfaces as an error instead
// of a value that resolves differently from its replicas.
//
// Transaction payloads above a size threshold are zstd-compressed
// transparently. Session logs are append-only; storing a value again
// writes only the rows it does not already have.
package storage
