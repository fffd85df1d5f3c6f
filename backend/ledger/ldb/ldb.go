// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/0xsoniclabs/grove/backend"
	"github.com/0xsoniclabs/grove/backend/ledger"
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
)

const hashMetaName = 'h'

// Ledger is a LevelDB backed implementation of ledger.Ledger. Entries are
// keyed by table space, tree id, and account, so all members of one tree
// share a key prefix and can be visited with a prefix iterator.
type Ledger struct {
	db         *leveldb.DB
	table      backend.TableSpace
	serializer common.AmountSerializer
	hash       common.Hash
}

// NewLedger constructs a Ledger on the given database, restoring the
// persisted state hash if present.
func NewLedger(db *leveldb.DB) (*Ledger, error) {
	res := &Ledger{
		db:    db,
		table: backend.MembershipKey,
	}
	data, err := db.Get(backend.MetaDataKey(res.table, hashMetaName), nil)
	if err == nil {
		copy(res.hash[:], data)
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("failed to load ledger state hash: %w", err)
	}
	return res, nil
}

func (l *Ledger) treePrefix(tree common.TreeId) []byte {
	idKey := common.TreeIdKey(tree)
	res := make([]byte, 1+len(idKey))
	res[0] = byte(l.table)
	copy(res[1:], idKey[:])
	return res
}

func (l *Ledger) key(tree common.TreeId, account common.Address) []byte {
	return append(l.treePrefix(tree), account[:]...)
}

func (l *Ledger) Get(tree common.TreeId, account common.Address) (amount.Amount, bool, error) {
	data, err := l.db.Get(l.key(tree, account), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return amount.Amount{}, false, nil
	}
	if err != nil {
		return amount.Amount{}, false, err
	}
	return l.serializer.FromBytes(data), true, nil
}

func (l *Ledger) Put(tree common.TreeId, account common.Address, value amount.Amount) error {
	if err := l.db.Put(l.key(tree, account), l.serializer.ToBytes(value), nil); err != nil {
		return err
	}
	l.hash = common.HashAdd(l.hash, ledger.PutDigest(tree, account, value))
	return nil
}

func (l *Ledger) Remove(tree common.TreeId, account common.Address) error {
	key := l.key(tree, account)
	exists, err := l.db.Has(key, nil)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := l.db.Delete(key, nil); err != nil {
		return err
	}
	l.hash = common.HashAdd(l.hash, ledger.RemoveDigest(tree, account))
	return nil
}

func (l *Ledger) ForEach(tree common.TreeId, visit func(common.Address, amount.Amount) error) error {
	prefix := l.treePrefix(tree)
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		var account common.Address
		copy(account[:], iter.Key()[len(prefix):])
		if err := visit(account, l.serializer.FromBytes(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (l *Ledger) GetStateHash() (common.Hash, error) {
	return l.hash, nil
}

// Flush persists the state hash.
func (l *Ledger) Flush() error {
	return l.db.Put(backend.MetaDataKey(l.table, hashMetaName), l.hash[:], nil)
}

// Close flushes the ledger. The underlying database is owned by the caller
// and stays open.
func (l *Ledger) Close() error {
	return l.Flush()
}

func (l *Ledger) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*l))
}
