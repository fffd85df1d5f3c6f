// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package registry

import "github.com/0xsoniclabs/grove/common"

// PutDigest and RemoveDigest define the mutation encoding folded into the
// rolling state hash. All implementations share them, so identical mutation
// histories produce identical hashes regardless of the backing store.

func PutDigest(state common.TreeState) []byte {
	serializer := common.TreeStateSerializer{}
	res := make([]byte, 1+serializer.Size())
	res[0] = 'U'
	serializer.CopyBytes(state, res[1:])
	return res
}

func RemoveDigest(id common.TreeId) []byte {
	key := common.TreeIdKey(id)
	res := make([]byte, 1+len(key))
	res[0] = 'D'
	copy(res[1:], key[:])
	return res
}
