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
	"github.com/0xsoniclabs/grove/common/amount"
)

// LinearBond computes the deposit required for a member addition resulting
// in the given total group size: bond * newSize. The cost scales with the
// resulting size of the group, not with the number of members added in one
// call, so large groups get progressively more expensive to grow.
func LinearBond(bond amount.Amount, newSize uint32) (amount.Amount, error) {
	return amount.Mul(bond, amount.New(uint64(newSize)))
}

// ExponentialBond computes the deposit required for a delegation resulting
// in the given height and parent child count: bond^(height+kids). The
// exponential growth deliberately discourages deep or wide hierarchies,
// since those maximize the cost of a later recursive teardown.
//
// The exponentiation uses checked arithmetic; exceeding the 256-bit balance
// range reports amount.ErrOverflow instead of wrapping.
func ExponentialBond(bond amount.Amount, height uint32, kids uint32) (amount.Amount, error) {
	res := amount.New(1)
	for i := uint32(0); i < height+kids; i++ {
		var err error
		if res, err = amount.Mul(res, bond); err != nil {
			return amount.Amount{}, err
		}
	}
	return res, nil
}
