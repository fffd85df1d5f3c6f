// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package delegate implements the state-transition core of the grove module:
// bonded, hierarchical groups with bounded depth, branching, and size.
//
// An account creates a root group by posting a deposit, may delegate
// authority to new subgroups, may add or remove members, and may revoke a
// branch, recursively tearing down its entire subtree. The module-level
// bounds (MaxSize, MaxDepth, MaxKids) cap the worst-case cost of the
// recursive teardown at MaxKids^MaxDepth, and the bonds make the structures
// closest to those bounds the most expensive to build.
//
// The Forest is single-threaded by contract: one operation runs to
// completion before the next begins. All validation happens before any
// mutation, so a failed operation leaves no partial state; the embedder is
// expected to provide a transactional boundary for failures occurring after
// the first write (such as store I/O errors mid-teardown).
package delegate

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"

	"github.com/0xsoniclabs/grove/backend/ledger"
	"github.com/0xsoniclabs/grove/backend/registry"
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
	"github.com/0xsoniclabs/grove/currency"
	"github.com/0xsoniclabs/grove/events"
)

var (
	// ErrTreeNotFound is returned when a referenced tree id has no registry
	// entry.
	ErrTreeNotFound = errors.New("tree does not exist")

	// ErrNotAuthorized is returned when the caller lacks the membership or
	// ownership relation an operation requires.
	ErrNotAuthorized = errors.New("caller is not authorized")

	// ErrSizeLimitExceeded is returned when an addition would push a tree's
	// member count above MaxSize.
	ErrSizeLimitExceeded = errors.New("cannot add members above maximum group size")

	// ErrKidsLimitExceeded is returned when a delegation would push a tree's
	// child count above MaxKids.
	ErrKidsLimitExceeded = errors.New("cannot delegate above maximum subtree count")

	// ErrDepthLimitExceeded is returned when a delegation would create a tree
	// below MaxDepth.
	ErrDepthLimitExceeded = errors.New("cannot delegate below maximum depth")

	// ErrPenaltyNotSupported is returned when a removal or revocation
	// requests bond forfeiture. Forfeiture needs a treasury destination the
	// module does not define, so the request fails up front instead of
	// silently returning the bond.
	ErrPenaltyNotSupported = errors.New("penalty forfeiture is not supported")
)

// Forest is the state machine managing a forest of bonded delegation trees.
// It owns no accounts and no currency; caller identity and balance
// accounting are collaborators provided at construction.
type Forest struct {
	config   Config
	trees    registry.Registry
	members  ledger.Ledger
	currency currency.Currency
	sink     events.Sink
}

// NewForest constructs a forest over the given stores and collaborators.
func NewForest(
	config Config,
	trees registry.Registry,
	members ledger.Ledger,
	currency currency.Currency,
	sink events.Sink,
) (*Forest, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Forest{
		config:   config,
		trees:    trees,
		members:  members,
		currency: currency,
		sink:     sink,
	}, nil
}

// Config provides the module-level parameters the forest was created with.
func (f *Forest) Config() Config {
	return f.config
}

// Tree provides the registry entry of the given tree, or ErrTreeNotFound.
func (f *Forest) Tree(id common.TreeId) (common.TreeState, error) {
	return f.getTree(id)
}

// MemberBond provides the bonded balance the account holds in the tree, and
// whether the account is a member at all.
func (f *Forest) MemberBond(tree common.TreeId, account common.Address) (amount.Amount, bool, error) {
	return f.members.Get(tree, account)
}

// ForEachTree visits every registered tree, ordered by id.
func (f *Forest) ForEachTree(visit func(common.TreeState) error) error {
	return f.trees.ForEach(visit)
}

// ForEachMember visits every member of the given tree, ordered by account.
func (f *Forest) ForEachMember(tree common.TreeId, visit func(common.Address, amount.Amount) error) error {
	return f.members.ForEach(tree, visit)
}

// RegistryStateHash provides the rolling state hash of the tree registry.
func (f *Forest) RegistryStateHash() (common.Hash, error) {
	return f.trees.GetStateHash()
}

// LedgerStateHash provides the rolling state hash of the membership ledger.
func (f *Forest) LedgerStateHash() (common.Hash, error) {
	return f.members.GetStateHash()
}

// CreateRoot creates a new root tree owned by the caller, reserving one base
// bond. The caller becomes the first member, with the bond recorded against
// the new tree.
func (f *Forest) CreateRoot(caller common.Address) (common.TreeId, error) {
	bond := f.config.Bond
	if err := f.currency.Reserve(caller, bond); err != nil {
		return 0, err
	}
	id, err := f.allocateId()
	if err != nil {
		return 0, err
	}
	state := common.TreeState{
		Id:     id,
		Parent: nil,
		Bonded: caller,
		Height: 0,
		Kids:   0,
		Size:   1,
	}
	if err := f.trees.Put(state); err != nil {
		return 0, err
	}
	if err := f.members.Put(id, caller, bond); err != nil {
		return 0, err
	}
	return id, f.sink.Emit(events.Event{
		Kind:  events.KindRootCreated,
		Tree:  id,
		Actor: caller,
		Bond:  bond,
	})
}

// Delegate creates a new child tree under the given parent, owned by the
// caller. The caller must be a member of the parent. The reserved bond
// scales exponentially with the resulting height and the parent's resulting
// child count, and is recorded against the caller's membership entry in the
// new child tree. The listed members are added to the child with zero
// initial bond.
func (f *Forest) Delegate(caller common.Address, parent common.TreeId, members []common.Address) (common.TreeId, error) {
	if _, isMember, err := f.members.Get(parent, caller); err != nil {
		return 0, err
	} else if !isMember {
		return 0, ErrNotAuthorized
	}
	parentState, err := f.getTree(parent)
	if err != nil {
		return 0, err
	}
	newKids := parentState.Kids + 1
	newHeight := parentState.Height + 1
	if newKids > f.config.MaxKids {
		return 0, ErrKidsLimitExceeded
	}
	if newHeight > f.config.MaxDepth {
		return 0, ErrDepthLimitExceeded
	}
	// The caller's bond credit makes the caller a member of the child, so
	// the initial size is the listed members plus the caller if unlisted.
	added := dedup(members)
	newSize := uint32(len(added)) + 1
	if slices.Contains(added, caller) {
		newSize--
	}
	if newSize > f.config.MaxSize {
		return 0, ErrSizeLimitExceeded
	}
	// A bond exceeding the balance range is a reservation failure, detected
	// before anything is reserved or written.
	bond, err := ExponentialBond(f.config.Bond, newHeight, newKids)
	if err != nil {
		return 0, fmt.Errorf("failed to compute delegation bond: %w", err)
	}
	if err := f.currency.Reserve(caller, bond); err != nil {
		return 0, err
	}
	id, err := f.allocateId()
	if err != nil {
		return 0, err
	}
	child := common.TreeState{
		Id:     id,
		Parent: &parent,
		Bonded: caller,
		Height: newHeight,
		Kids:   0,
		Size:   0,
	}
	if err := f.creditBond(&child, caller, bond); err != nil {
		return 0, err
	}
	if err := f.insertMembers(&child, added); err != nil {
		return 0, err
	}
	if err := f.trees.Put(child); err != nil {
		return 0, err
	}
	parentState.Kids = newKids
	if err := f.trees.Put(parentState); err != nil {
		return 0, err
	}
	return id, f.sink.Emit(events.Event{
		Kind:   events.KindBranchDelegated,
		Tree:   id,
		Parent: parent,
		Actor:  caller,
		Bond:   bond,
	})
}

// AddMembers adds the listed accounts to the tree. The caller must be a
// member of the tree's parent, or the bonded owner if the tree is a root.
// The reserved bond scales linearly with the resulting group size and is
// paid by the caller, not by the added members; already-present members are
// skipped without charge or size change.
func (f *Forest) AddMembers(caller common.Address, tree common.TreeId, members []common.Address) error {
	state, err := f.getTree(tree)
	if err != nil {
		return err
	}
	if err := f.authorize(state, caller); err != nil {
		return err
	}
	added := dedup(members)
	pending := uint32(len(added))
	_, callerIsMember, err := f.members.Get(tree, caller)
	if err != nil {
		return err
	}
	// The caller's bond credit creates a membership entry of its own, so an
	// unlisted non-member caller counts toward the resulting size too.
	if !callerIsMember && !slices.Contains(added, caller) {
		pending++
	}
	newSize := state.Size + pending
	if newSize > f.config.MaxSize {
		return ErrSizeLimitExceeded
	}
	bond, err := LinearBond(f.config.Bond, newSize)
	if err != nil {
		return fmt.Errorf("failed to compute membership bond: %w", err)
	}
	if err := f.currency.Reserve(caller, bond); err != nil {
		return err
	}
	if err := f.creditBond(&state, caller, bond); err != nil {
		return err
	}
	if err := f.insertMembers(&state, added); err != nil {
		return err
	}
	if err := f.trees.Put(state); err != nil {
		return err
	}
	return f.sink.Emit(events.Event{
		Kind:  events.KindMembersAdded,
		Tree:  tree,
		Actor: caller,
		Bond:  bond,
	})
}

// RemoveMembers removes the listed accounts from the tree, releasing their
// bonded balances. Authorization matches AddMembers. The bonded owner is
// never removable through this path; listed accounts without a membership
// entry are skipped.
func (f *Forest) RemoveMembers(caller common.Address, tree common.TreeId, members []common.Address, penalty bool) error {
	state, err := f.getTree(tree)
	if err != nil {
		return err
	}
	if err := f.authorize(state, caller); err != nil {
		return err
	}
	if penalty {
		return ErrPenaltyNotSupported
	}
	for _, member := range dedup(members) {
		bond, isMember, err := f.members.Get(tree, member)
		if err != nil {
			return err
		}
		if !isMember || member == state.Bonded {
			continue
		}
		if _, err := f.currency.Unreserve(member, bond); err != nil {
			return err
		}
		if err := f.members.Remove(tree, member); err != nil {
			return err
		}
		state.Size--
	}
	if err := f.trees.Put(state); err != nil {
		return err
	}
	return f.sink.Emit(events.Event{
		Kind:  events.KindMembersRemoved,
		Tree:  tree,
		Actor: caller,
	})
}

// Revoke tears down the tree and its entire subtree, releasing every
// member's bond and removing every registry and ledger entry of the torn
// down trees. Only the bonded owner may revoke.
func (f *Forest) Revoke(caller common.Address, tree common.TreeId, penalty bool) error {
	state, err := f.getTree(tree)
	if err != nil {
		return err
	}
	if state.Bonded != caller {
		return ErrNotAuthorized
	}
	if penalty {
		return ErrPenaltyNotSupported
	}
	if err := f.teardown(state); err != nil {
		return err
	}
	return f.sink.Emit(events.Event{
		Kind: events.KindDelegationRevoked,
		Tree: tree,
	})
}

// Flush writes all buffered store modifications to disk.
func (f *Forest) Flush() error {
	return errors.Join(
		f.trees.Flush(),
		f.members.Flush(),
	)
}

// Close flushes and closes the underlying stores.
func (f *Forest) Close() error {
	return errors.Join(
		f.trees.Close(),
		f.members.Close(),
	)
}

// GetMemoryFootprint provides the size of the forest in memory.
func (f *Forest) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*f))
	mf.AddChild("registry", f.trees.GetMemoryFootprint())
	mf.AddChild("ledger", f.members.GetMemoryFootprint())
	return mf
}

// --- internal operations ---

func (f *Forest) getTree(id common.TreeId) (common.TreeState, error) {
	state, err := f.trees.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		return state, ErrTreeNotFound
	}
	return state, err
}

// authorize checks the membership rule shared by AddMembers and
// RemoveMembers: the caller must be a member of the tree's direct parent,
// or the bonded owner if the tree is a root.
func (f *Forest) authorize(tree common.TreeState, caller common.Address) error {
	if tree.Parent == nil {
		if tree.Bonded != caller {
			return ErrNotAuthorized
		}
		return nil
	}
	_, isMember, err := f.members.Get(*tree.Parent, caller)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotAuthorized
	}
	return nil
}

// allocateId provides the smallest tree id no registry entry exists for,
// scanning forward from the persisted low-water counter. The id is not
// reserved; the caller claims it by inserting a tree under it.
func (f *Forest) allocateId() (common.TreeId, error) {
	id, err := f.trees.Counter()
	if err != nil {
		return 0, err
	}
	for {
		exists, err := f.trees.Contains(id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return id, nil
		}
		id++
	}
}

// creditBond accumulates an already-reserved bond into the account's
// membership entry of the given tree, creating the entry and counting the
// account toward the tree's size if it was not a member yet.
func (f *Forest) creditBond(tree *common.TreeState, account common.Address, bond amount.Amount) error {
	total := bond
	existing, isMember, err := f.members.Get(tree.Id, account)
	if err != nil {
		return err
	}
	if isMember {
		if total, err = amount.Add(existing, bond); err != nil {
			return err
		}
	} else {
		tree.Size++
	}
	return f.members.Put(tree.Id, account, total)
}

// insertMembers creates zero-bond membership entries for all listed accounts
// not present yet, incrementing the tree's size only for genuinely new
// insertions. The caller persists the updated tree state.
func (f *Forest) insertMembers(tree *common.TreeState, members []common.Address) error {
	for _, member := range members {
		_, isMember, err := f.members.Get(tree.Id, member)
		if err != nil {
			return err
		}
		if isMember {
			continue
		}
		if err := f.members.Put(tree.Id, member, amount.New()); err != nil {
			return err
		}
		tree.Size++
	}
	return nil
}

// teardown destroys the given tree and recurses into its children. The
// recursion depth is bounded by MaxDepth and the branching factor by
// MaxKids, capping the total number of recursive calls of one revocation at
// MaxKids^MaxDepth. Children are located by a full registry scan; the bound
// above, not scan efficiency, is the property this module guarantees.
func (f *Forest) teardown(tree common.TreeState) error {
	// Release every member's bond and drop the ledger entries. Entries are
	// collected first since the ledger must not be mutated mid-iteration.
	type entry struct {
		account common.Address
		bond    amount.Amount
	}
	var members []entry
	err := f.members.ForEach(tree.Id, func(account common.Address, bond amount.Amount) error {
		members = append(members, entry{account, bond})
		return nil
	})
	if err != nil {
		return err
	}
	for _, member := range members {
		if _, err := f.currency.Unreserve(member.account, member.bond); err != nil {
			return err
		}
		if err := f.members.Remove(tree.Id, member.account); err != nil {
			return err
		}
	}
	// Detach from the parent, unless the parent is itself being torn down
	// and already gone.
	if tree.Parent != nil {
		parent, err := f.trees.Get(*tree.Parent)
		if err == nil {
			parent.Kids--
			if err := f.trees.Put(parent); err != nil {
				return err
			}
		} else if !errors.Is(err, registry.ErrNotFound) {
			return err
		}
	}
	if err := f.trees.Remove(tree.Id); err != nil {
		return err
	}
	var children []common.TreeState
	err = f.trees.ForEach(func(state common.TreeState) error {
		if state.Parent != nil && *state.Parent == tree.Id {
			children = append(children, state)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := f.teardown(child); err != nil {
			return err
		}
	}
	return nil
}

// dedup drops duplicate addresses, keeping first occurrences in order.
func dedup(members []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(members))
	res := make([]common.Address, 0, len(members))
	for _, member := range members {
		if _, exists := seen[member]; exists {
			continue
		}
		seen[member] = struct{}{}
		res = append(res, member)
	}
	return res
}
