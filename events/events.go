// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package events defines the domain events emitted by the state machine and
// the append-only sinks they flow into.
package events

import (
	"fmt"

	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
)

//go:generate mockgen -source events.go -destination events_mocks.go -package events

// Kind discriminates the domain events.
type Kind uint8

const (
	// KindRootCreated marks the creation of a new root tree.
	KindRootCreated Kind = iota
	// KindBranchDelegated marks the creation of a child tree under a parent.
	KindBranchDelegated
	// KindMembersAdded marks a successful member addition.
	KindMembersAdded
	// KindMembersRemoved marks a successful member removal.
	KindMembersRemoved
	// KindDelegationRevoked marks the teardown of a tree and its subtree.
	KindDelegationRevoked
)

func (k Kind) String() string {
	switch k {
	case KindRootCreated:
		return "RootCreated"
	case KindBranchDelegated:
		return "BranchDelegated"
	case KindMembersAdded:
		return "MembersAdded"
	case KindMembersRemoved:
		return "MembersRemoved"
	case KindDelegationRevoked:
		return "DelegationRevoked"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Event is a single domain event. Which fields carry meaning depends on the
// kind:
//   - RootCreated: Tree, Actor, Bond
//   - BranchDelegated: Tree (the child), Parent, Actor, Bond
//   - MembersAdded: Tree, Actor, Bond
//   - MembersRemoved: Tree, Actor
//   - DelegationRevoked: Tree
type Event struct {
	Kind   Kind
	Tree   common.TreeId
	Parent common.TreeId
	Actor  common.Address
	Bond   amount.Amount
}

func (e Event) String() string {
	switch e.Kind {
	case KindBranchDelegated:
		return fmt.Sprintf("%v(parent %d, child %d, %v, bond %v)", e.Kind, e.Parent, e.Tree, e.Actor, e.Bond)
	case KindDelegationRevoked:
		return fmt.Sprintf("%v(tree %d)", e.Kind, e.Tree)
	case KindMembersRemoved:
		return fmt.Sprintf("%v(tree %d, %v)", e.Kind, e.Tree, e.Actor)
	default:
		return fmt.Sprintf("%v(tree %d, %v, bond %v)", e.Kind, e.Tree, e.Actor, e.Bond)
	}
}

// Sink is an append-only receiver of domain events.
type Sink interface {
	Emit(event Event) error
}

// Recorder is an in-memory Sink retaining all emitted events, mainly for
// tests and embedders without a persistent journal.
type Recorder struct {
	events []Event
}

func (r *Recorder) Emit(event Event) error {
	r.events = append(r.events, event)
	return nil
}

// Events provides all recorded events in emission order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Last provides the most recently recorded event.
func (r *Recorder) Last() (Event, bool) {
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}
