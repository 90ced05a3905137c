// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package role

import "fmt"

// MappingExtend is the parent-reference role mapping meaning "inherit
// the parent's member roles unchanged".
const MappingExtend = "extend"

// ParentMapping is the role mapping carried by a parent-extension
// entry in a group's map. It is either the literal "extend" (inherit
// parent roles verbatim) or a concrete role acting as a cap: every
// inherited member gets at most that role, however privileged they are
// in the parent.
type ParentMapping struct {
	// Cap is the capping role. Zero when the mapping is "extend".
	Cap Role
}

// ParseParentMapping validates a raw parent-mapping value. Accepts
// "extend" or any standing role usable as a cap.
func ParseParentMapping(raw string) (ParentMapping, error) {
	if raw == MappingExtend {
		return ParentMapping{}, nil
	}
	r := Role(raw)
	if !r.IsValid() || r.IsInvite() {
		return ParentMapping{}, fmt.Errorf("parent mapping must be %q or a standing role: %q", MappingExtend, raw)
	}
	return ParentMapping{Cap: r}, nil
}

// IsExtend reports whether the mapping inherits parent roles unchanged.
func (m ParentMapping) IsExtend() bool { return m.Cap == "" }

// String returns the wire form of the mapping.
func (m ParentMapping) String() string {
	if m.IsExtend() {
		return MappingExtend
	}
	return string(m.Cap)
}
