// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package common provides the basic value types shared by all grove packages:
// account addresses, tree identifiers, tree states, hashes, and the
// serializers needed to move them in and out of persistent key-value stores.
package common

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address is a 20-byte account identifier. Accounts own trees, hold
// memberships, and post bonds.
type Address [20]byte

// AddressFromBytes creates an address from the given bytes, which must be at
// most 20 bytes long. Shorter inputs are left-padded with zeros.
func AddressFromBytes(data []byte) (Address, error) {
	var res Address
	if len(data) > len(res) {
		return res, fmt.Errorf("invalid address length %d", len(data))
	}
	copy(res[len(res)-len(data):], data)
	return res, nil
}

// Compare defines a total order on addresses.
func (a Address) Compare(b *Address) int {
	return bytes.Compare(a[:], b[:])
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// TreeId is the unique identifier of a tree in the forest. Identifiers are
// allocated monotonically and are never reused while the tree exists.
type TreeId uint64

// TreeState holds the registry entry of a single tree: its position in the
// delegation forest and the counters the module-level bounds are checked
// against.
type TreeState struct {
	// Id is the identifier this state is registered under.
	Id TreeId

	// Parent refers to the tree this one was delegated from; nil marks a root.
	Parent *TreeId

	// Bonded is the account that created the tree. It cannot be removed from
	// the tree's membership and is the sole authority for revocation.
	Bonded Address

	// Height is 0 for roots and parent height + 1 for children.
	Height uint32

	// Kids counts the direct child trees currently registered.
	Kids uint32

	// Size counts the distinct accounts with a membership entry in the tree.
	Size uint32
}

// IsRoot reports whether the tree has no parent.
func (t *TreeState) IsRoot() bool {
	return t.Parent == nil
}

func (t TreeState) String() string {
	parent := "none"
	if t.Parent != nil {
		parent = fmt.Sprintf("%d", *t.Parent)
	}
	return fmt.Sprintf("tree %d (parent %s, bonded %v, height %d, kids %d, size %d)",
		t.Id, parent, t.Bonded, t.Height, t.Kids, t.Size)
}

// FlushAndCloser defines the lifecycle operations shared by all stores.
type FlushAndCloser interface {
	// Flush writes all buffered modifications to disk.
	Flush() error

	// Close flushes and releases held resources. No other operation may be
	// called afterwards.
	Close() error
}

// MemoryFootprintProvider is implemented by components capable of reporting
// their in-memory size.
type MemoryFootprintProvider interface {
	GetMemoryFootprint() *MemoryFootprint
}

// TreeIdKey encodes a tree identifier as a big-endian key fragment, ordering
// iteration by numeric value.
func TreeIdKey(id TreeId) [8]byte {
	var res [8]byte
	binary.BigEndian.PutUint64(res[:], uint64(id))
	return res
}
