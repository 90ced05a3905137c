// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// keyIDPrefix marks a symmetric key ID.
const keyIDPrefix = "key_z"

// KeyID is a validated symmetric key ID (e.g. "key_zA8f…"). Key IDs name
// read keys and per-member write-only keys inside a group's map; the
// permission engine treats the key material itself as opaque.
//
// KeyID is an immutable value type. The zero value is not valid; use
// IsZero to check.
type KeyID struct {
	id string
}

// ParseKeyID validates and wraps a raw key ID string.
func ParseKeyID(raw string) (KeyID, error) {
	if raw == "" {
		return KeyID{}, fmt.Errorf("empty key ID")
	}
	if !strings.HasPrefix(raw, keyIDPrefix) {
		return KeyID{}, fmt.Errorf("key ID must start with %q: %q", keyIDPrefix, raw)
	}
	if len(raw) == len(keyIDPrefix) {
		return KeyID{}, fmt.Errorf("key ID has no content after %q: %q", keyIDPrefix, raw)
	}
	return KeyID{id: raw}, nil
}

// MustParseKeyID is like ParseKeyID but panics on error. Use in tests
// and static initialization where the input is known-valid.
func MustParseKeyID(raw string) KeyID {
	id, err := ParseKeyID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseKeyID(%q): %v", raw, err))
	}
	return id
}

// String returns the full key ID string.
func (k KeyID) String() string { return k.id }

// IsZero reports whether the KeyID is the zero value (uninitialized).
func (k KeyID) IsZero() bool { return k.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (k KeyID) MarshalText() ([]byte, error) {
	if k.id == "" {
		return nil, nil
	}
	return []byte(k.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset key ID) — transactions in trusting
// privacy mode carry no key.
func (k *KeyID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*k = KeyID{}
		return nil
	}
	parsed, err := ParseKeyID(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
