// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"fmt"
	"slices"
	"unsafe"

	"golang.org/x/exp/maps"

	"github.com/0xsoniclabs/grove/backend/registry"
	"github.com/0xsoniclabs/grove/common"
)

const initCapacity = 1024

// Registry is an in-memory implementation of registry.Registry.
type Registry struct {
	data    map[common.TreeId]common.TreeState
	counter common.TreeId
	hash    common.Hash
}

// NewRegistry constructs a new empty Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		data: make(map[common.TreeId]common.TreeState, initCapacity),
	}
}

func (m *Registry) Get(id common.TreeId) (common.TreeState, error) {
	state, exists := m.data[id]
	if !exists {
		return state, registry.ErrNotFound
	}
	return state, nil
}

func (m *Registry) Contains(id common.TreeId) (bool, error) {
	_, exists := m.data[id]
	return exists, nil
}

func (m *Registry) Put(state common.TreeState) error {
	m.data[state.Id] = state
	m.hash = common.HashAdd(m.hash, registry.PutDigest(state))
	return nil
}

func (m *Registry) Remove(id common.TreeId) error {
	if _, exists := m.data[id]; !exists {
		return nil
	}
	delete(m.data, id)
	m.hash = common.HashAdd(m.hash, registry.RemoveDigest(id))
	return nil
}

func (m *Registry) Counter() (common.TreeId, error) {
	return m.counter, nil
}

// ForEach visits all entries ordered by tree id, matching the key order of
// the persistent implementation.
func (m *Registry) ForEach(visit func(common.TreeState) error) error {
	ids := maps.Keys(m.data)
	slices.Sort(ids)
	for _, id := range ids {
		if err := visit(m.data[id]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Registry) GetStateHash() (common.Hash, error) {
	return m.hash, nil
}

// Flush does nothing.
func (m *Registry) Flush() error {
	return nil
}

// Close does nothing.
func (m *Registry) Close() error {
	return nil
}

// GetMemoryFootprint provides the size of the registry in memory in bytes.
func (m *Registry) GetMemoryFootprint() *common.MemoryFootprint {
	entrySize := unsafe.Sizeof(struct {
		id    common.TreeId
		state common.TreeState
	}{})
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*m) + uintptr(len(m.data))*entrySize)
	mf.SetNote(fmt.Sprintf("(trees: %d)", len(m.data)))
	return mf
}
