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
	"unsafe"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/0xsoniclabs/grove/backend"
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
	"github.com/0xsoniclabs/grove/currency"
)

// Currency is a LevelDB backed implementation of currency.Currency. Each
// account record holds the free and reserved balance as two 32-byte
// big-endian values.
type Currency struct {
	db    *leveldb.DB
	table backend.TableSpace
}

type balances struct {
	free     amount.Amount
	reserved amount.Amount
}

// NewCurrency constructs a Currency on the given database.
func NewCurrency(db *leveldb.DB) *Currency {
	return &Currency{
		db:    db,
		table: backend.BalanceKey,
	}
}

func (c *Currency) key(account common.Address) []byte {
	res := make([]byte, 1+len(account))
	res[0] = byte(c.table)
	copy(res[1:], account[:])
	return res
}

func (c *Currency) get(account common.Address) (balances, error) {
	data, err := c.db.Get(c.key(account), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return balances{}, nil
	}
	if err != nil {
		return balances{}, err
	}
	return balances{
		free:     amount.NewFromBytes(data[0:32]...),
		reserved: amount.NewFromBytes(data[32:64]...),
	}, nil
}

func (c *Currency) put(account common.Address, value balances) error {
	var data [64]byte
	free := value.free.Bytes32()
	reserved := value.reserved.Bytes32()
	copy(data[0:32], free[:])
	copy(data[32:64], reserved[:])
	return c.db.Put(c.key(account), data[:], nil)
}

// Deposit credits the account's free balance. It exists so tests and tools
// can fund accounts; the state machine itself never mints.
func (c *Currency) Deposit(account common.Address, value amount.Amount) error {
	state, err := c.get(account)
	if err != nil {
		return err
	}
	if state.free, err = amount.Add(state.free, value); err != nil {
		return err
	}
	return c.put(account, state)
}

func (c *Currency) Reserve(account common.Address, value amount.Amount) error {
	state, err := c.get(account)
	if err != nil {
		return err
	}
	if state.free.Cmp(value) < 0 {
		return currency.ErrInsufficientBalance
	}
	if state.free, err = amount.Sub(state.free, value); err != nil {
		return err
	}
	if state.reserved, err = amount.Add(state.reserved, value); err != nil {
		return err
	}
	return c.put(account, state)
}

func (c *Currency) Unreserve(account common.Address, value amount.Amount) (amount.Amount, error) {
	state, err := c.get(account)
	if err != nil {
		return amount.Amount{}, err
	}
	released := amount.Min(value, state.reserved)
	if state.reserved, err = amount.Sub(state.reserved, released); err != nil {
		return amount.Amount{}, err
	}
	if state.free, err = amount.Add(state.free, released); err != nil {
		return amount.Amount{}, err
	}
	if err := c.put(account, state); err != nil {
		return amount.Amount{}, err
	}
	return released, nil
}

func (c *Currency) FreeBalance(account common.Address) (amount.Amount, error) {
	state, err := c.get(account)
	return state.free, err
}

func (c *Currency) ReservedBalance(account common.Address) (amount.Amount, error) {
	state, err := c.get(account)
	return state.reserved, err
}

func (c *Currency) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*c))
}
