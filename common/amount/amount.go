// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package amount provides the 256-bit unsigned balance type used for bonds.
// All arithmetic is checked: overflows are reported, never wrapped, since a
// silently wrapped bond would undermine the economic bounds of the module.
package amount

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned when an arithmetic operation exceeds the 256-bit
// value range.
var ErrOverflow = errors.New("amount overflow")

// Amount is a 256-bit unsigned integer balance value.
type Amount struct {
	internal uint256.Int
}

// New creates a new amount from up to four uint64 arguments, given in
// big-endian order (the first argument holds the most significant bits).
func New(args ...uint64) Amount {
	if len(args) > 4 {
		panic("too many arguments for amount.New")
	}
	res := Amount{}
	for _, arg := range args {
		res.internal.Lsh(&res.internal, 64)
		res.internal.Add(&res.internal, uint256.NewInt(arg))
	}
	return res
}

// NewFromUint256 creates a new amount from an uint256 value.
func NewFromUint256(value *uint256.Int) Amount {
	res := Amount{}
	res.internal.Set(value)
	return res
}

// NewFromBytes creates a new amount from up to 32 big-endian bytes.
func NewFromBytes(bytes ...byte) Amount {
	res := Amount{}
	res.internal.SetBytes(bytes)
	return res
}

// Max provides the largest representable amount.
func Max() Amount {
	res := Amount{}
	res.internal.SetAllOne()
	return res
}

// Uint64 provides the low 64 bits of the amount.
func (a Amount) Uint64() uint64 {
	return a.internal.Uint64()
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.internal.IsZero()
}

// IsUint64 reports whether the amount fits into an uint64.
func (a Amount) IsUint64() bool {
	return a.internal.IsUint64()
}

// Bytes32 provides the 32-byte big-endian form of the amount.
func (a Amount) Bytes32() [32]byte {
	return a.internal.Bytes32()
}

// ToBig provides the amount as a big.Int.
func (a Amount) ToBig() *big.Int {
	return a.internal.ToBig()
}

func (a Amount) String() string {
	return a.internal.Dec()
}

// Cmp compares two amounts, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int {
	return a.internal.Cmp(&b.internal)
}

// Add sums two amounts, reporting ErrOverflow if the result does not fit.
func Add(a, b Amount) (Amount, error) {
	res := Amount{}
	if _, overflow := res.internal.AddOverflow(&a.internal, &b.internal); overflow {
		return Amount{}, ErrOverflow
	}
	return res, nil
}

// Sub subtracts b from a, reporting ErrOverflow on underflow.
func Sub(a, b Amount) (Amount, error) {
	res := Amount{}
	if _, underflow := res.internal.SubOverflow(&a.internal, &b.internal); underflow {
		return Amount{}, ErrOverflow
	}
	return res, nil
}

// Mul multiplies two amounts, reporting ErrOverflow if the result does not
// fit.
func Mul(a, b Amount) (Amount, error) {
	res := Amount{}
	if _, overflow := res.internal.MulOverflow(&a.internal, &b.internal); overflow {
		return Amount{}, ErrOverflow
	}
	return res, nil
}

// Min provides the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
