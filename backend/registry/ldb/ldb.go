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
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/0xsoniclabs/grove/backend"
	"github.com/0xsoniclabs/grove/backend/registry"
	"github.com/0xsoniclabs/grove/common"
)

const (
	hashMetaName    = 'h'
	counterMetaName = 'c'
)

// Registry is a LevelDB backed implementation of registry.Registry. It shares
// the database instance with other stores, separated by a table-space prefix,
// and does not close the database itself.
type Registry struct {
	db         *leveldb.DB
	table      backend.TableSpace
	serializer common.TreeStateSerializer
	counter    common.TreeId
	hash       common.Hash
}

// NewRegistry constructs a Registry on the given database, restoring the
// persisted state hash and allocation counter if present.
func NewRegistry(db *leveldb.DB) (*Registry, error) {
	res := &Registry{
		db:    db,
		table: backend.TreeRegistryKey,
	}
	data, err := db.Get(backend.MetaDataKey(res.table, hashMetaName), nil)
	if err == nil {
		copy(res.hash[:], data)
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("failed to load registry state hash: %w", err)
	}
	data, err = db.Get(backend.MetaDataKey(res.table, counterMetaName), nil)
	if err == nil {
		res.counter = common.TreeId(binary.BigEndian.Uint64(data))
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("failed to load registry counter: %w", err)
	}
	return res, nil
}

func (l *Registry) key(id common.TreeId) []byte {
	idKey := common.TreeIdKey(id)
	res := make([]byte, 1+len(idKey))
	res[0] = byte(l.table)
	copy(res[1:], idKey[:])
	return res
}

func (l *Registry) Get(id common.TreeId) (common.TreeState, error) {
	data, err := l.db.Get(l.key(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return common.TreeState{}, registry.ErrNotFound
	}
	if err != nil {
		return common.TreeState{}, err
	}
	return l.serializer.FromBytes(data), nil
}

func (l *Registry) Contains(id common.TreeId) (bool, error) {
	exists, err := l.db.Has(l.key(id), nil)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (l *Registry) Put(state common.TreeState) error {
	if err := l.db.Put(l.key(state.Id), l.serializer.ToBytes(state), nil); err != nil {
		return err
	}
	l.hash = common.HashAdd(l.hash, registry.PutDigest(state))
	return nil
}

func (l *Registry) Remove(id common.TreeId) error {
	exists, err := l.db.Has(l.key(id), nil)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := l.db.Delete(l.key(id), nil); err != nil {
		return err
	}
	l.hash = common.HashAdd(l.hash, registry.RemoveDigest(id))
	return nil
}

func (l *Registry) Counter() (common.TreeId, error) {
	return l.counter, nil
}

func (l *Registry) ForEach(visit func(common.TreeState) error) error {
	iter := l.db.NewIterator(util.BytesPrefix([]byte{byte(l.table)}), nil)
	defer iter.Release()
	for iter.Next() {
		if err := visit(l.serializer.FromBytes(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (l *Registry) GetStateHash() (common.Hash, error) {
	return l.hash, nil
}

// Flush persists the state hash and allocation counter.
func (l *Registry) Flush() error {
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(l.counter))
	return errors.Join(
		l.db.Put(backend.MetaDataKey(l.table, hashMetaName), l.hash[:], nil),
		l.db.Put(backend.MetaDataKey(l.table, counterMetaName), counter[:], nil),
	)
}

// Close flushes the registry. The underlying database is owned by the caller
// and stays open.
func (l *Registry) Close() error {
	return l.Flush()
}

func (l *Registry) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*l))
}
