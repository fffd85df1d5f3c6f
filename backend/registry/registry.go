// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package registry defines the tree registry, the store mapping tree
// identifiers to tree states. It is the leaf dependency of the whole module:
// membership, bonds, and teardown all resolve trees through it.
package registry

import (
	"errors"

	"github.com/0xsoniclabs/grove/common"
)

// ErrNotFound is returned when a requested tree id has no registry entry.
var ErrNotFound = errors.New("tree does not exist")

// Registry is a store of tree states indexed by tree id.
//
// Implementations are not required to be thread-safe; the state machine
// driving them is single-threaded by contract.
type Registry interface {
	// Get provides the state registered under the given id, or ErrNotFound.
	Get(id common.TreeId) (common.TreeState, error)

	// Contains reports whether an entry exists for the given id.
	Contains(id common.TreeId) (bool, error)

	// Put registers the given state under its id, replacing any previous
	// entry.
	Put(state common.TreeState) error

	// Remove drops the entry of the given id. Removing a missing entry is a
	// no-op.
	Remove(id common.TreeId) error

	// Counter provides the persisted low-water mark for id allocation.
	// Identifier allocation scans forward from it for the smallest free id;
	// the counter itself is never advanced by allocations.
	Counter() (common.TreeId, error)

	// ForEach visits every registered tree state. This is a full scan; its
	// cost is bounded by the module-level depth and branching limits of the
	// forest stored in it. Visitors must not mutate the registry.
	ForEach(visit func(common.TreeState) error) error

	// GetStateHash provides a rolling hash over all mutations applied to the
	// registry since its creation.
	GetStateHash() (common.Hash, error)

	common.FlushAndCloser
	common.MemoryFootprintProvider
}
