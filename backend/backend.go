// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package backend provides the shared LevelDB bootstrap and the key-space
// layout used by the persistent store implementations. All stores share one
// LevelDB instance, separated by single-byte table-space prefixes.
package backend

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// TableSpace is a single-byte key prefix separating the stores sharing one
// LevelDB instance.
type TableSpace byte

const (
	// TreeRegistryKey holds the tree registry entries.
	TreeRegistryKey TableSpace = 'R'
	// MembershipKey holds the membership ledger entries.
	MembershipKey TableSpace = 'M'
	// BalanceKey holds the account balance entries.
	BalanceKey TableSpace = 'B'
	// MetaKey holds per-store metadata such as state hashes.
	MetaKey TableSpace = 'X'
)

// OpenLevelDb opens (creating if necessary) the LevelDB instance at the given
// path.
func OpenLevelDb(path string, options *opt.Options) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return db, nil
}

// MetaDataKey builds the key of a metadata entry belonging to the given table
// space.
func MetaDataKey(table TableSpace, name byte) []byte {
	return []byte{byte(MetaKey), byte(table), name}
}
