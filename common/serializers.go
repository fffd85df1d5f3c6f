// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"encoding/binary"

	"github.com/0xsoniclabs/grove/common/amount"
)

// Serializer converts a fixed-size value to and from its binary form.
type Serializer[T any] interface {
	// ToBytes serializes the value into a newly allocated slice.
	ToBytes(T) []byte
	// CopyBytes serializes the value into the provided slice, whose length
	// must match Size().
	CopyBytes(T, []byte)
	// FromBytes deserializes the value from the slice.
	FromBytes([]byte) T
	// Size provides the length of the binary form in bytes.
	Size() int
}

// AddressSerializer is a Serializer of the Address type.
type AddressSerializer struct{}

func (a AddressSerializer) ToBytes(address Address) []byte {
	return address[:]
}
func (a AddressSerializer) CopyBytes(address Address, out []byte) {
	copy(out, address[:])
}
func (a AddressSerializer) FromBytes(bytes []byte) Address {
	var address Address
	copy(address[:], bytes)
	return address
}
func (a AddressSerializer) Size() int {
	return 20
}

// TreeIdSerializer is a Serializer of the TreeId type, big-endian so that
// lexicographic key order matches numeric order.
type TreeIdSerializer struct{}

func (t TreeIdSerializer) ToBytes(id TreeId) []byte {
	res := make([]byte, t.Size())
	t.CopyBytes(id, res)
	return res
}
func (t TreeIdSerializer) CopyBytes(id TreeId, out []byte) {
	binary.BigEndian.PutUint64(out, uint64(id))
}
func (t TreeIdSerializer) FromBytes(bytes []byte) TreeId {
	return TreeId(binary.BigEndian.Uint64(bytes))
}
func (t TreeIdSerializer) Size() int {
	return 8
}

// AmountSerializer is a Serializer of 256-bit amounts.
type AmountSerializer struct{}

func (s AmountSerializer) ToBytes(value amount.Amount) []byte {
	bytes := value.Bytes32()
	return bytes[:]
}
func (s AmountSerializer) CopyBytes(value amount.Amount, out []byte) {
	bytes := value.Bytes32()
	copy(out, bytes[:])
}
func (s AmountSerializer) FromBytes(bytes []byte) amount.Amount {
	return amount.NewFromBytes(bytes...)
}
func (s AmountSerializer) Size() int {
	return 32
}

// TreeStateSerializer is a Serializer of the TreeState type. The encoding is
// fixed-size: id (8), parent flag (1), parent id (8, zero for roots), bonded
// account (20), height (4), kids (4), size (4).
type TreeStateSerializer struct{}

const (
	treeStateSize = 8 + 1 + 8 + 20 + 4 + 4 + 4
)

func (s TreeStateSerializer) ToBytes(state TreeState) []byte {
	res := make([]byte, s.Size())
	s.CopyBytes(state, res)
	return res
}

func (s TreeStateSerializer) CopyBytes(state TreeState, out []byte) {
	binary.BigEndian.PutUint64(out[0:8], uint64(state.Id))
	if state.Parent != nil {
		out[8] = 1
		binary.BigEndian.PutUint64(out[9:17], uint64(*state.Parent))
	} else {
		out[8] = 0
		binary.BigEndian.PutUint64(out[9:17], 0)
	}
	copy(out[17:37], state.Bonded[:])
	binary.BigEndian.PutUint32(out[37:41], state.Height)
	binary.BigEndian.PutUint32(out[41:45], state.Kids)
	binary.BigEndian.PutUint32(out[45:49], state.Size)
}

func (s TreeStateSerializer) FromBytes(bytes []byte) TreeState {
	state := TreeState{
		Id:     TreeId(binary.BigEndian.Uint64(bytes[0:8])),
		Height: binary.BigEndian.Uint32(bytes[37:41]),
		Kids:   binary.BigEndian.Uint32(bytes[41:45]),
		Size:   binary.BigEndian.Uint32(bytes[45:49]),
	}
	if bytes[8] != 0 {
		parent := TreeId(binary.BigEndian.Uint64(bytes[9:17]))
		state.Parent = &parent
	}
	copy(state.Bonded[:], bytes[17:37])
	return state
}

func (s TreeStateSerializer) Size() int {
	return treeStateSize
}
