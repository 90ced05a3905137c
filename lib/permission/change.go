// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/role"
)

// A group's map is overloaded: its keys carry membership, key
// management, and inheritance all at once. Classification turns a raw
// {key, op, value} change into a closed variant set before the
// permission fold runs, so the fold is an exhaustive switch instead of
// a chain of string-prefix checks scattered through the rules.
type changeKind int

const (
	// changeRoleAssignment sets an identity (or the everyone
	// wildcard) to a role. Any key that matches none of the special
	// forms below is a role assignment — member keys are opaque.
	changeRoleAssignment changeKind = iota

	// changeReadKey sets the group's current symmetric read key ID.
	changeReadKey

	// changeProfile and changeRoot set pointers to other values.
	changeProfile
	changeRoot

	// changeParentExtend declares group inheritance from a parent
	// group, with a role mapping ("extend" or a cap role).
	changeParentExtend

	// changeChildRecord is the informational back-reference a parent
	// keeps to a child. No permission effect.
	changeChildRecord

	// changeKeyRevelation wraps a symmetric key for another key or
	// identity ("<key>_for_<key>", "<key>_for_<identity>",
	// "<key>_for_everyone").
	changeKeyRevelation

	// changeWriteKey assigns a per-member write-only key
	// ("writeKeyFor_<identity>").
	changeWriteKey
)

const (
	keyReadKey        = "readKey"
	keyProfile        = "profile"
	keyRoot           = "root"
	parentPrefix      = "parent_"
	childPrefix       = "child_"
	writeKeyForPrefix = "writeKeyFor_"
	forMarker         = "_for_"
)

// mapOp is one decoded change of a trusting transaction's payload.
type mapOp struct {
	Op    string          `json:"op"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// parseChanges decodes a trusting payload. The payload must be a JSON
// array of changes; content constraints (exactly one change, op "set")
// are checked by the fold, not here, so the two failure modes stay
// distinguishable.
func parseChanges(raw json.RawMessage) ([]mapOp, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty changes payload")
	}
	var changes []mapOp
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// change is a classified group-map change.
type change struct {
	kind  changeKind
	key   string
	value json.RawMessage

	// Role assignment fields. assignedOK is false when the value did
	// not decode as a string; the raw value can never name a valid
	// role in that case.
	member     string
	assigned   role.Role
	assignedOK bool

	// Parent extension fields. parent stays zero when the key's
	// suffix is not a well-formed CoValue ID; mappingOK is false when
	// the value is not a recognized role mapping. Either way the fold
	// rejects the transaction rather than guessing.
	parent    ref.CoID
	mapping   role.ParentMapping
	mappingOK bool

	// Key revelation: the revealed key's ID portion (before "_for_"),
	// compared against the fold's write-only key table for the
	// own-write-key-revelation allowance.
	revealedKey string

	// Write-key assignment fields. writeKeyOK is false when the value
	// is not a well-formed key ID.
	writeKeyMember string
	writeKey       ref.KeyID
	writeKeyOK     bool
}

// isKeyForKeyField reports whether key names a key-for-key revelation.
func isKeyForKeyField(key string) bool {
	return strings.HasPrefix(key, "key_") && strings.Contains(key, "_for_key")
}

// isKeyForAccountField reports whether key names a key-for-identity or
// key-for-everyone revelation.
func isKeyForAccountField(key string) bool {
	if strings.HasPrefix(key, "key_") &&
		(strings.Contains(key, "_for_sealer") || strings.Contains(key, "_for_co")) {
		return true
	}
	return strings.Contains(key, "_for_everyone")
}

// decodeString decodes a JSON string value, reporting failure instead
// of erroring — a non-string where a string belongs is a per-
// transaction rejection, never a resolution error.
func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// classifyChange maps a raw change onto the closed variant set. The
// precedence mirrors the group-map key grammar: fixed metadata keys
// first, then revelation and extension forms, and anything left is a
// role assignment for an opaque member key.
func classifyChange(op mapOp) change {
	c := change{key: op.Key, value: op.Value}

	switch {
	case op.Key == keyReadKey:
		c.kind = changeReadKey

	case op.Key == keyProfile:
		c.kind = changeProfile

	case op.Key == keyRoot:
		c.kind = changeRoot

	case isKeyForKeyField(op.Key) || isKeyForAccountField(op.Key):
		c.kind = changeKeyRevelation
		if idx := strings.Index(op.Key, forMarker); idx > 0 {
			c.revealedKey = op.Key[:idx]
		}

	case strings.HasPrefix(op.Key, parentPrefix):
		c.kind = changeParentExtend
		if parent, err := ref.ParseCoID(op.Key[len(parentPrefix):]); err == nil {
			c.parent = parent
		}
		if value, ok := decodeString(op.Value); ok {
			if mapping, err := role.ParseParentMapping(value); err == nil {
				c.mapping = mapping
				c.mappingOK = true
			}
		}

	case strings.HasPrefix(op.Key, childPrefix):
		c.kind = changeChildRecord

	case strings.HasPrefix(op.Key, writeKeyForPrefix):
		c.kind = changeWriteKey
		c.writeKeyMember = op.Key[len(writeKeyForPrefix):]
		if value, ok := decodeString(op.Value); ok {
			if keyID, err := ref.ParseKeyID(value); err == nil {
				c.writeKey = keyID
				c.writeKeyOK = true
			}
		}

	default:
		c.kind = changeRoleAssignment
		c.member = op.Key
		if value, ok := decodeString(op.Value); ok {
			c.assigned = role.Role(value)
			c.assignedOK = true
		}
	}

	return c
}
