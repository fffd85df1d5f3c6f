// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"fmt"
	"unsafe"

	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
	"github.com/0xsoniclabs/grove/currency"
)

// Currency is an in-memory implementation of currency.Currency.
type Currency struct {
	free     map[common.Address]amount.Amount
	reserved map[common.Address]amount.Amount
}

// NewCurrency constructs a Currency with no funded accounts.
func NewCurrency() *Currency {
	return &Currency{
		free:     make(map[common.Address]amount.Amount),
		reserved: make(map[common.Address]amount.Amount),
	}
}

// Deposit credits the account's free balance. It exists so tests and tools
// can fund accounts; the state machine itself never mints.
func (c *Currency) Deposit(account common.Address, value amount.Amount) error {
	total, err := amount.Add(c.free[account], value)
	if err != nil {
		return err
	}
	c.free[account] = total
	return nil
}

func (c *Currency) Reserve(account common.Address, value amount.Amount) error {
	free := c.free[account]
	if free.Cmp(value) < 0 {
		return currency.ErrInsufficientBalance
	}
	remaining, err := amount.Sub(free, value)
	if err != nil {
		return err
	}
	reserved, err := amount.Add(c.reserved[account], value)
	if err != nil {
		return err
	}
	c.free[account] = remaining
	c.reserved[account] = reserved
	return nil
}

func (c *Currency) Unreserve(account common.Address, value amount.Amount) (amount.Amount, error) {
	released := amount.Min(value, c.reserved[account])
	remaining, err := amount.Sub(c.reserved[account], released)
	if err != nil {
		return amount.Amount{}, err
	}
	free, err := amount.Add(c.free[account], released)
	if err != nil {
		return amount.Amount{}, err
	}
	c.reserved[account] = remaining
	c.free[account] = free
	return released, nil
}

func (c *Currency) FreeBalance(account common.Address) (amount.Amount, error) {
	return c.free[account], nil
}

func (c *Currency) ReservedBalance(account common.Address) (amount.Amount, error) {
	return c.reserved[account], nil
}

// GetMemoryFootprint provides the size of the currency state in memory.
func (c *Currency) GetMemoryFootprint() *common.MemoryFootprint {
	entrySize := unsafe.Sizeof(struct {
		account common.Address
		value   amount.Amount
	}{})
	entries := len(c.free) + len(c.reserved)
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*c) + uintptr(entries)*entrySize)
	mf.SetNote(fmt.Sprintf("(accounts: %d)", len(c.free)))
	return mf
}
