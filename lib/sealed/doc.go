// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed wraps filippo.io/age for the key-distribution
// payloads carried by group key revelations: a symmetric read or
// write key sealed to one or more member sealer keys so only they can
// recover it.
//
// Ciphertext is base64-encoded for embedding in transaction JSON.
// Callers pass plaintext []byte to [Seal] and receive a base64
// string; [Unseal] accepts a base64 string and returns plaintext.
//
// The permission engine itself never opens these payloads — validity
// of a revelation depends on who authored it, not on what it
// contains. This package exists for the storage layer and tests to
// carry realistic revelation values, and for tooling that constructs
// them.
package sealed
