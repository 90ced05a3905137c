// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// sessionMarker separates the authoring identity from the session
// nonce in a session ID.
const sessionMarker = "_session_z"

// SessionID is a validated session ID (e.g. "co_zAbc…_session_zXy9…").
// A session is one authoring identity's private, strictly-ordered
// transaction stream for a CoValue; the identity may open any number of
// sessions, each with a distinct nonce.
//
// SessionID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type SessionID struct {
	id string
}

// ParseSessionID validates and wraps a raw session ID string. The
// portion before "_session_z" must be a valid Identity.
func ParseSessionID(raw string) (SessionID, error) {
	if raw == "" {
		return SessionID{}, fmt.Errorf("empty session ID")
	}
	idx := strings.LastIndex(raw, sessionMarker)
	if idx < 0 {
		return SessionID{}, fmt.Errorf("session ID missing %q marker: %q", sessionMarker, raw)
	}
	if idx+len(sessionMarker) == len(raw) {
		return SessionID{}, fmt.Errorf("session ID has no nonce after %q: %q", sessionMarker, raw)
	}
	if _, err := ParseIdentity(raw[:idx]); err != nil {
		return SessionID{}, fmt.Errorf("session ID has invalid authoring identity: %w", err)
	}
	return SessionID{id: raw}, nil
}

// MustParseSessionID is like ParseSessionID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseSessionID(raw string) SessionID {
	id, err := ParseSessionID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseSessionID(%q): %v", raw, err))
	}
	return id
}

// NewSessionID builds a session ID for an authoring identity and a
// caller-supplied nonce. The nonce must be non-empty; its content is
// otherwise opaque (the platform uses random base64url strings).
func NewSessionID(author Identity, nonce string) (SessionID, error) {
	if author.IsZero() {
		return SessionID{}, fmt.Errorf("session ID requires an authoring identity")
	}
	if nonce == "" {
		return SessionID{}, fmt.Errorf("session ID requires a nonce")
	}
	return SessionID{id: author.String() + sessionMarker + nonce}, nil
}

// Author returns the authoring identity embedded in the session ID.
func (s SessionID) Author() Identity {
	idx := strings.LastIndex(s.id, sessionMarker)
	if idx < 0 {
		return Identity{}
	}
	// Already validated at construction.
	return Identity{id: s.id[:idx]}
}

// String returns the full session ID string.
func (s SessionID) String() string { return s.id }

// IsZero reports whether the SessionID is the zero value (uninitialized).
func (s SessionID) IsZero() bool { return s.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (s SessionID) MarshalText() ([]byte, error) {
	return []byte(s.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Validates the
// session ID format.
func (s *SessionID) UnmarshalText(data []byte) error {
	parsed, err := ParseSessionID(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
