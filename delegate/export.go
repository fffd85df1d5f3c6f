// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package delegate

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
)

// Magic number of the snapshot format.
const snapshotMagic uint32 = 0x6742DB01

// Export writes a snappy-compressed snapshot of the forest's registry and
// ledger contents. Entries are sorted by key, so the output is deterministic
// for a given state. Account balances are not part of the snapshot; the
// currency collaborator owns those.
func (f *Forest) Export(out io.Writer) error {
	w := snappy.NewBufferedWriter(out)
	if err := f.store(w); err != nil {
		return err
	}
	return w.Close()
}

// Import reads a snapshot into the forest's registry and ledger. The target
// stores are expected to be empty; importing over existing state overwrites
// colliding entries and keeps the rest.
func (f *Forest) Import(in io.Reader) error {
	return f.load(snappy.NewReader(in))
}

func (f *Forest) store(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, snapshotMagic); err != nil {
		return err
	}

	// Both stores iterate in key order already; entries only need to be
	// collected to write the counts first.
	var trees []common.TreeState
	err := f.trees.ForEach(func(state common.TreeState) error {
		trees = append(trees, state)
		return nil
	})
	if err != nil {
		return err
	}
	serializer := common.TreeStateSerializer{}
	if err := binary.Write(w, binary.BigEndian, uint32(len(trees))); err != nil {
		return err
	}
	for _, state := range trees {
		if _, err := w.Write(serializer.ToBytes(state)); err != nil {
			return err
		}
	}

	type entry struct {
		tree    common.TreeId
		account common.Address
		bond    amount.Amount
	}
	var members []entry
	for _, state := range trees {
		err := f.members.ForEach(state.Id, func(account common.Address, bond amount.Amount) error {
			members = append(members, entry{state.Id, account, bond})
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(members))); err != nil {
		return err
	}
	for _, member := range members {
		key := common.TreeIdKey(member.tree)
		if _, err := w.Write(key[:]); err != nil {
			return err
		}
		if _, err := w.Write(member.account[:]); err != nil {
			return err
		}
		bond := member.bond.Bytes32()
		if _, err := w.Write(bond[:]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Forest) load(r io.Reader) error {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return err
	}
	if magic != snapshotMagic {
		return fmt.Errorf("invalid snapshot magic number: %x", magic)
	}

	var treeCount uint32
	if err := binary.Read(r, binary.BigEndian, &treeCount); err != nil {
		return err
	}
	serializer := common.TreeStateSerializer{}
	buffer := make([]byte, serializer.Size())
	for i := uint32(0); i < treeCount; i++ {
		if _, err := io.ReadFull(r, buffer); err != nil {
			return err
		}
		if err := f.trees.Put(serializer.FromBytes(buffer)); err != nil {
			return err
		}
	}

	var memberCount uint32
	if err := binary.Read(r, binary.BigEndian, &memberCount); err != nil {
		return err
	}
	for i := uint32(0); i < memberCount; i++ {
		var key [8]byte
		var account common.Address
		var bond [32]byte
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, account[:]); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, bond[:]); err != nil {
			return err
		}
		tree := common.TreeId(binary.BigEndian.Uint64(key[:]))
		if err := f.members.Put(tree, account, amount.NewFromBytes(bond[:]...)); err != nil {
			return err
		}
	}
	return nil
}
