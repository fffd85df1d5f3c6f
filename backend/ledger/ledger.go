// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ledger defines the membership ledger, the store mapping
// (tree, account) pairs to the bonded balance the account has reserved
// against that tree. The existence of an entry, not its value, denotes
// membership.
package ledger

import (
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
)

// Ledger is a store of membership entries keyed by tree and account.
//
// Implementations are not required to be thread-safe; the state machine
// driving them is single-threaded by contract.
type Ledger interface {
	// Get provides the bonded balance of the given account in the given
	// tree, and whether a membership entry exists at all.
	Get(tree common.TreeId, account common.Address) (amount.Amount, bool, error)

	// Put creates or replaces the membership entry of the given account.
	Put(tree common.TreeId, account common.Address, value amount.Amount) error

	// Remove drops the membership entry of the given account. Removing a
	// missing entry is a no-op.
	Remove(tree common.TreeId, account common.Address) error

	// ForEach visits every membership entry of the given tree, ordered by
	// account. Visitors must not mutate the ledger.
	ForEach(tree common.TreeId, visit func(common.Address, amount.Amount) error) error

	// GetStateHash provides a rolling hash over all mutations applied to the
	// ledger since its creation.
	GetStateHash() (common.Hash, error)

	common.FlushAndCloser
	common.MemoryFootprintProvider
}

// PutDigest and RemoveDigest define the mutation encoding folded into the
// rolling state hash, shared by all implementations.

func PutDigest(tree common.TreeId, account common.Address, value amount.Amount) []byte {
	res := make([]byte, 1+8+20+32)
	res[0] = 'U'
	key := common.TreeIdKey(tree)
	copy(res[1:9], key[:])
	copy(res[9:29], account[:])
	bytes := value.Bytes32()
	copy(res[29:], bytes[:])
	return res
}

func RemoveDigest(tree common.TreeId, account common.Address) []byte {
	res := make([]byte, 1+8+20)
	res[0] = 'D'
	key := common.TreeIdKey(tree)
	copy(res[1:9], key[:])
	copy(res[9:29], account[:])
	return res
}
