// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Weft's standard CBOR encoding and decoding.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. This is
// load-bearing, not cosmetic — CoValue IDs are derived by hashing the
// encoded header (ref.DeriveCoID), so two nodes must produce identical
// bytes for the same logical header or they will disagree about which
// value is which.
//
// Decoding accepts standard CBOR and silently ignores unknown fields
// for forward compatibility with newer writers.
package codec
