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
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Hash is a 32-byte Keccak-256 digest.
type Hash [32]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Keccak256 computes the Keccak-256 digest of the given data.
func Keccak256(data []byte) Hash {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(data)
	var res Hash
	digest.Sum(res[0:0])
	return res
}

// HashAdd folds the given data into the hash, producing the successor state
// of a rolling hash. Stores use it to maintain a cheap digest over the
// sequence of applied mutations.
func HashAdd(h Hash, data []byte) Hash {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(h[:])
	digest.Write(data)
	var res Hash
	digest.Sum(res[0:0])
	return res
}
