// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// coIDPrefix marks a content-addressed CoValue ID. The "z" after the
// underscore tags the encoding alphabet, following multibase convention.
const coIDPrefix = "co_z"

// CoID is a validated CoValue ID (e.g. "co_zXj4k…"). A CoID is derived
// from the value's immutable header (DeriveCoID), so two values with the
// same header are the same value on every node.
//
// CoID is an immutable value type. The zero value is not valid; use
// IsZero to check.
type CoID struct {
	id string
}

// ParseCoID validates and wraps a raw CoValue ID string. Returns an
// error if the string does not start with "co_z" or has no content
// after the prefix.
func ParseCoID(raw string) (CoID, error) {
	if raw == "" {
		return CoID{}, fmt.Errorf("empty CoValue ID")
	}
	if !strings.HasPrefix(raw, coIDPrefix) {
		return CoID{}, fmt.Errorf("CoValue ID must start with %q: %q", coIDPrefix, raw)
	}
	if len(raw) == len(coIDPrefix) {
		return CoID{}, fmt.Errorf("CoValue ID has no content after %q: %q", coIDPrefix, raw)
	}
	return CoID{id: raw}, nil
}

// MustParseCoID is like ParseCoID but panics on error. Use in tests and
// static initialization where the input is known-valid.
func MustParseCoID(raw string) CoID {
	id, err := ParseCoID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseCoID(%q): %v", raw, err))
	}
	return id
}

// DeriveCoID computes the content-addressed ID for a CoValue header. The
// header bytes must be the deterministic CBOR encoding of the header —
// the caller is responsible for encoding with lib/codec so that every
// node derives the identical ID from the same logical header.
func DeriveCoID(headerBytes []byte) CoID {
	digest := blake3.Sum256(headerBytes)
	return CoID{id: coIDPrefix + base64.RawURLEncoding.EncodeToString(digest[:])}
}

// String returns the full CoValue ID string.
func (c CoID) String() string { return c.id }

// IsZero reports whether the CoID is the zero value (uninitialized).
func (c CoID) IsZero() bool { return c.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (c CoID) MarshalText() ([]byte, error) {
	return []byte(c.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Validates the
// CoValue ID format.
func (c *CoID) UnmarshalText(data []byte) error {
	parsed, err := ParseCoID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
