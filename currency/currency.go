// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package currency defines the reservable balance collaborator the state
// machine posts bonds against. Bonds are reserved (locked, not spent) and
// released on removal or revocation.
package currency

import (
	"errors"

	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
)

//go:generate mockgen -source currency.go -destination currency_mocks.go -package currency

// ErrInsufficientBalance is returned when an account's free balance cannot
// cover a requested reservation.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Currency provides reservable balance accounting for accounts.
type Currency interface {
	// Reserve moves the given value from the account's free balance to its
	// reserved balance, or fails with ErrInsufficientBalance without any
	// effect.
	Reserve(account common.Address, value amount.Amount) error

	// Unreserve moves up to the given value from the account's reserved
	// balance back to its free balance and provides the value actually
	// released.
	Unreserve(account common.Address, value amount.Amount) (amount.Amount, error)

	// FreeBalance provides the account's spendable balance.
	FreeBalance(account common.Address) (amount.Amount, error)

	// ReservedBalance provides the account's reserved balance.
	ReservedBalance(account common.Address) (amount.Amount, error)
}
