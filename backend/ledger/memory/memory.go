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

	"github.com/0xsoniclabs/grove/backend/ledger"
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
)

// Ledger is an in-memory implementation of ledger.Ledger.
type Ledger struct {
	data map[common.TreeId]map[common.Address]amount.Amount
	hash common.Hash
}

// NewLedger constructs a new empty Ledger instance.
func NewLedger() *Ledger {
	return &Ledger{
		data: make(map[common.TreeId]map[common.Address]amount.Amount),
	}
}

func (m *Ledger) Get(tree common.TreeId, account common.Address) (amount.Amount, bool, error) {
	value, exists := m.data[tree][account]
	return value, exists, nil
}

func (m *Ledger) Put(tree common.TreeId, account common.Address, value amount.Amount) error {
	members, exists := m.data[tree]
	if !exists {
		members = make(map[common.Address]amount.Amount)
		m.data[tree] = members
	}
	members[account] = value
	m.hash = common.HashAdd(m.hash, ledger.PutDigest(tree, account, value))
	return nil
}

func (m *Ledger) Remove(tree common.TreeId, account common.Address) error {
	members, exists := m.data[tree]
	if !exists {
		return nil
	}
	if _, exists := members[account]; !exists {
		return nil
	}
	delete(members, account)
	if len(members) == 0 {
		delete(m.data, tree)
	}
	m.hash = common.HashAdd(m.hash, ledger.RemoveDigest(tree, account))
	return nil
}

// ForEach visits all entries of the tree ordered by account, matching the key
// order of the persistent implementation.
func (m *Ledger) ForEach(tree common.TreeId, visit func(common.Address, amount.Amount) error) error {
	members := m.data[tree]
	accounts := maps.Keys(members)
	slices.SortFunc(accounts, func(a, b common.Address) int {
		return a.Compare(&b)
	})
	for _, account := range accounts {
		if err := visit(account, members[account]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Ledger) GetStateHash() (common.Hash, error) {
	return m.hash, nil
}

// Flush does nothing.
func (m *Ledger) Flush() error {
	return nil
}

// Close does nothing.
func (m *Ledger) Close() error {
	return nil
}

// GetMemoryFootprint provides the size of the ledger in memory in bytes.
func (m *Ledger) GetMemoryFootprint() *common.MemoryFootprint {
	entrySize := unsafe.Sizeof(struct {
		account common.Address
		value   amount.Amount
	}{})
	entries := 0
	for _, members := range m.data {
		entries += len(members)
	}
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*m) + uintptr(entries)*entrySize)
	mf.SetNote(fmt.Sprintf("(entries: %d)", entries))
	return mf
}
