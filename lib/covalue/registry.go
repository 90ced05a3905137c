// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package covalue

import (
	"fmt"
	"sync"

	"github.com/weft-foundation/weft/lib/ref"
)

// Registry holds the CoValues a node currently has loaded, plus the
// node's own identity. It satisfies the permission engine's Node
// collaborator interface.
//
// Registry is safe for concurrent lookups and adds. The CoValues it
// hands out are not — resolving the same value from two goroutines at
// once is the caller's bug, per the engine's concurrency contract.
type Registry struct {
	mu       sync.RWMutex
	values   map[ref.CoID]*CoValue
	identity ref.Identity
}

// NewRegistry creates a registry for a node operating as the given
// identity. The identity is what the permission engine consults for
// the self-revocation exception.
func NewRegistry(identity ref.Identity) *Registry {
	return &Registry{
		values:   make(map[ref.CoID]*CoValue),
		identity: identity,
	}
}

// Add registers a loaded CoValue. Re-adding the same ID replaces the
// previous instance (the sync layer does this when a value is
// reloaded with more sessions).
func (r *Registry) Add(value *CoValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[value.ID()] = value
}

// ExpectCoValueLoaded returns the loaded value with the given ID, or
// an error if the node does not hold it. A miss indicates a bug in the
// caller's loading discipline — dependency values must be loaded
// before resolution is invoked — so callers treat it as fatal.
func (r *Registry) ExpectCoValueLoaded(id ref.CoID) (*CoValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.values[id]
	if !ok {
		return nil, fmt.Errorf("CoValue %s is not loaded", id)
	}
	return value, nil
}

// CurrentIdentity returns the identity this node operates as.
func (r *Registry) CurrentIdentity() ref.Identity {
	return r.identity
}
