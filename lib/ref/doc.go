// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identity references for
// Weft CoValues and the parties that edit them. Every identifier that
// crosses a package boundary — CoValue IDs, account IDs, agent IDs,
// symmetric key IDs, session IDs — is represented by a validated value
// type rather than a bare string.
//
// Reference formats:
//   - CoValue ID: "co_z" followed by the base64url digest of the value's
//     header (see DeriveCoID). Account IDs share this format because an
//     account is itself a group-shaped CoValue.
//   - Agent ID: "sealer_z<...>/signer_z<...>" — a raw keypair reference
//     used before an account exists (e.g. during invite redemption).
//   - Key ID: "key_z<...>" — names a symmetric read or write key.
//   - Session ID: "<identity>_session_z<...>" — one authoring identity's
//     ordered transaction stream for a CoValue.
//
// All constructors validate their inputs and return errors for invalid
// strings. Once constructed, a ref is immutable; the zero value is never
// valid and IsZero reports it. Identities are opaque, totally ordered by
// their string form — the permission engine keys member tables on that
// order and assumes nothing else about their structure.
//
// JSON and CBOR marshaling use the canonical string form via
// encoding.TextMarshaler.
package ref
