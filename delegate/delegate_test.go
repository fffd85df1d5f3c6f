// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package delegate

import (
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	ledgermem "github.com/0xsoniclabs/grove/backend/ledger/memory"
	registrymem "github.com/0xsoniclabs/grove/backend/registry/memory"
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
	"github.com/0xsoniclabs/grove/currency"
	currencymem "github.com/0xsoniclabs/grove/currency/memory"
	"github.com/0xsoniclabs/grove/events"
)

var testConfig = Config{
	Bond:     amount.New(2),
	MaxSize:  5,
	MaxDepth: 3,
	MaxKids:  3,
}

func addr(i byte) common.Address {
	return common.Address{19: i}
}

type testForest struct {
	*Forest
	money *currencymem.Currency
	log   *events.Recorder
}

// newTestForest creates a forest over fresh in-memory stores, with account 1
// funded with 1000 units and accounts 2 to 6 with 100 units each.
func newTestForest(t *testing.T) *testForest {
	t.Helper()
	money := currencymem.NewCurrency()
	log := &events.Recorder{}
	forest, err := NewForest(testConfig, registrymem.NewRegistry(), ledgermem.NewLedger(), money, log)
	if err != nil {
		t.Fatalf("failed to create forest: %v", err)
	}
	if err := money.Deposit(addr(1), amount.New(1000)); err != nil {
		t.Fatalf("failed to fund account: %v", err)
	}
	for i := byte(2); i <= 6; i++ {
		if err := money.Deposit(addr(i), amount.New(100)); err != nil {
			t.Fatalf("failed to fund account: %v", err)
		}
	}
	return &testForest{forest, money, log}
}

func (f *testForest) freeBalance(t *testing.T, account common.Address) uint64 {
	t.Helper()
	balance, err := f.money.FreeBalance(account)
	if err != nil {
		t.Fatalf("failed to fetch free balance: %v", err)
	}
	return balance.Uint64()
}

func (f *testForest) reservedBalance(t *testing.T, account common.Address) uint64 {
	t.Helper()
	balance, err := f.money.ReservedBalance(account)
	if err != nil {
		t.Fatalf("failed to fetch reserved balance: %v", err)
	}
	return balance.Uint64()
}

func (f *testForest) treeCount(t *testing.T) int {
	t.Helper()
	count := 0
	err := f.ForEachTree(func(common.TreeState) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("failed to enumerate trees: %v", err)
	}
	return count
}

func TestNewForest_RejectsInvalidConfig(t *testing.T) {
	for _, config := range []Config{
		{Bond: amount.New(2), MaxSize: 0, MaxDepth: 3, MaxKids: 3},
		{Bond: amount.New(2), MaxSize: 5, MaxDepth: 0, MaxKids: 3},
		{Bond: amount.New(2), MaxSize: 5, MaxDepth: 3, MaxKids: 0},
	} {
		if _, err := NewForest(config, registrymem.NewRegistry(), ledgermem.NewLedger(), currencymem.NewCurrency(), &events.Recorder{}); err == nil {
			t.Errorf("config %v should have been rejected", config)
		}
	}
}

func TestForest_CreateRoot(t *testing.T) {
	f := newTestForest(t)
	id, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if id != 0 {
		t.Errorf("first tree should get id 0, got %d", id)
	}
	state, err := f.Tree(id)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	want := common.TreeState{Id: 0, Parent: nil, Bonded: addr(1), Height: 0, Kids: 0, Size: 1}
	if state != want {
		t.Errorf("invalid root state, wanted %v, got %v", want, state)
	}
	bond, isMember, err := f.MemberBond(id, addr(1))
	if err != nil || !isMember {
		t.Fatalf("owner should be a member, got %v / %v", isMember, err)
	}
	if got, want := bond, amount.New(2); got != want {
		t.Errorf("invalid owner bond, wanted %v, got %v", want, got)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(998); got != want {
		t.Errorf("invalid free balance, wanted %d, got %d", want, got)
	}
	if got, want := f.reservedBalance(t, addr(1)), uint64(2); got != want {
		t.Errorf("invalid reserved balance, wanted %d, got %d", want, got)
	}
	event, found := f.log.Last()
	if !found || event.Kind != events.KindRootCreated || event.Tree != id || event.Actor != addr(1) || event.Bond != amount.New(2) {
		t.Errorf("invalid event emitted: %v", event)
	}
}

func TestForest_CreateRoot_InsufficientBalance(t *testing.T) {
	f := newTestForest(t)
	if _, err := f.CreateRoot(addr(9)); !errors.Is(err, currency.ErrInsufficientBalance) {
		t.Fatalf("unfunded account should not create a root, got %v", err)
	}
	if count := f.treeCount(t); count != 0 {
		t.Errorf("failed creation should not register a tree, got %d", count)
	}
	if len(f.log.Events()) != 0 {
		t.Errorf("failed creation should not emit events")
	}
}

func TestForest_CreateRoot_IdsFillGaps(t *testing.T) {
	f := newTestForest(t)
	for want := common.TreeId(0); want < 3; want++ {
		id, err := f.CreateRoot(addr(1))
		if err != nil {
			t.Fatalf("failed to create root: %v", err)
		}
		if id != want {
			t.Fatalf("wanted id %d, got %d", want, id)
		}
	}
	if err := f.Revoke(addr(1), 1, false); err != nil {
		t.Fatalf("failed to revoke tree: %v", err)
	}
	// The freed id is handed out again before any fresh one.
	if id, err := f.CreateRoot(addr(1)); err != nil || id != 1 {
		t.Fatalf("wanted recycled id 1, got %d / %v", id, err)
	}
	if id, err := f.CreateRoot(addr(1)); err != nil || id != 3 {
		t.Fatalf("wanted fresh id 3, got %d / %v", id, err)
	}
}

// TestForest_DelegationChain runs a full life cycle of a three-level forest,
// checking bonds, balances, limits, and the final teardown.
func TestForest_DelegationChain(t *testing.T) {
	f := newTestForest(t)
	a1, a2, a3, a4 := addr(1), addr(2), addr(3), addr(4)

	root, err := f.CreateRoot(a1)
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if got, want := f.freeBalance(t, a1), uint64(998); got != want {
		t.Fatalf("invalid balance after root creation, wanted %d, got %d", want, got)
	}

	// First child of the root: bond 2^(1+1) = 4.
	tree1, err := f.Delegate(a1, root, []common.Address{a2, a3, a4})
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if got, want := f.freeBalance(t, a1), uint64(994); got != want {
		t.Fatalf("invalid balance, wanted %d, got %d", want, got)
	}

	// Second child of the root: bond 2^(1+2) = 8.
	if _, err := f.Delegate(a1, root, nil); err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if got, want := f.freeBalance(t, a1), uint64(986); got != want {
		t.Fatalf("invalid balance, wanted %d, got %d", want, got)
	}

	// Height 2 under tree1: bond 2^(2+1) = 8.
	tree3, err := f.Delegate(a2, tree1, []common.Address{a3, a4})
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if got, want := f.freeBalance(t, a2), uint64(92); got != want {
		t.Fatalf("invalid balance, wanted %d, got %d", want, got)
	}

	// Height 3 under tree3: bond 2^(3+1) = 16.
	tree4, err := f.Delegate(a3, tree3, []common.Address{a4})
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if got, want := f.freeBalance(t, a3), uint64(84); got != want {
		t.Fatalf("invalid balance, wanted %d, got %d", want, got)
	}

	// Second child at height 3: bond 2^(3+2) = 32.
	if _, err := f.Delegate(a4, tree3, nil); err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if got, want := f.freeBalance(t, a4), uint64(68); got != want {
		t.Fatalf("invalid balance, wanted %d, got %d", want, got)
	}

	state, err := f.Tree(tree3)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Height != 2 || state.Kids != 2 || state.Size != 3 || state.Bonded != a2 {
		t.Errorf("invalid tree state: %v", state)
	}
	if state.Parent == nil || *state.Parent != tree1 {
		t.Errorf("invalid parent link: %v", state)
	}

	// tree4 sits at the maximum depth; nothing may be delegated below it.
	if _, err := f.Delegate(a4, tree4, nil); !errors.Is(err, ErrDepthLimitExceeded) {
		t.Errorf("delegation below maximum depth should fail, got %v", err)
	}

	// A third child of the root is fine, a fourth exceeds the kids limit.
	if _, err := f.Delegate(a1, root, nil); err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if _, err := f.Delegate(a1, root, nil); !errors.Is(err, ErrKidsLimitExceeded) {
		t.Errorf("fourth child should exceed the kids limit, got %v", err)
	}

	// Revoking the root tears down the entire forest and returns every bond.
	if err := f.Revoke(a1, root, false); err != nil {
		t.Fatalf("failed to revoke root: %v", err)
	}
	if count := f.treeCount(t); count != 0 {
		t.Errorf("teardown should remove all trees, %d left", count)
	}
	for i := byte(1); i <= 6; i++ {
		want := uint64(100)
		if i == 1 {
			want = 1000
		}
		if got := f.freeBalance(t, addr(i)); got != want {
			t.Errorf("account %d should be fully refunded, wanted %d, got %d", i, want, got)
		}
		if got := f.reservedBalance(t, addr(i)); got != 0 {
			t.Errorf("account %d should have no reservation left, got %d", i, got)
		}
	}
	if event, _ := f.log.Last(); event.Kind != events.KindDelegationRevoked || event.Tree != root {
		t.Errorf("invalid final event: %v", event)
	}
}

func TestForest_Delegate_ChecksMembershipBeforeExistence(t *testing.T) {
	f := newTestForest(t)
	if _, err := f.Delegate(addr(1), 42, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("wanted ErrNotAuthorized, got %v", err)
	}
}

func TestForest_Delegate_RequiresParentMembership(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if _, err := f.Delegate(addr(2), root, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("wanted ErrNotAuthorized, got %v", err)
	}
}

func TestForest_Delegate_BondRecordedAgainstChild(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	child, err := f.Delegate(addr(1), root, nil)
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	bond, isMember, err := f.MemberBond(child, addr(1))
	if err != nil || !isMember {
		t.Fatalf("delegator should be a member of the child, got %v / %v", isMember, err)
	}
	if got, want := bond, amount.New(4); got != want {
		t.Errorf("invalid child bond, wanted %v, got %v", want, got)
	}
	// The parent entry keeps only the original root bond.
	bond, _, err = f.MemberBond(root, addr(1))
	if err != nil {
		t.Fatalf("failed to fetch bond: %v", err)
	}
	if got, want := bond, amount.New(2); got != want {
		t.Errorf("parent bond should be unchanged, wanted %v, got %v", want, got)
	}
}

func TestForest_Delegate_SizeLimit(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	members := []common.Address{addr(2), addr(3), addr(4), addr(5), addr(6)}
	if _, err := f.Delegate(addr(1), root, members); !errors.Is(err, ErrSizeLimitExceeded) {
		t.Fatalf("wanted ErrSizeLimitExceeded, got %v", err)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(998); got != want {
		t.Errorf("failed delegation should not charge, wanted %d, got %d", want, got)
	}
}

func TestForest_Delegate_ListedCallerCountsOnce(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	// Five distinct accounts including the caller fill the group exactly.
	members := []common.Address{addr(1), addr(2), addr(3), addr(4), addr(5)}
	child, err := f.Delegate(addr(1), root, members)
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	state, err := f.Tree(child)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Size != 5 {
		t.Errorf("wanted size 5, got %d", state.Size)
	}
	// The caller's entry carries the bond, not a zero placeholder.
	bond, _, err := f.MemberBond(child, addr(1))
	if err != nil {
		t.Fatalf("failed to fetch bond: %v", err)
	}
	if got, want := bond, amount.New(4); got != want {
		t.Errorf("invalid caller bond, wanted %v, got %v", want, got)
	}
}

func TestForest_Delegate_FailedValidationReservesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	money := currency.NewMockCurrency(ctrl)
	config := Config{Bond: amount.New(2), MaxSize: 5, MaxDepth: 3, MaxKids: 1}
	f, err := NewForest(config, registrymem.NewRegistry(), ledgermem.NewLedger(), money, &events.Recorder{})
	if err != nil {
		t.Fatalf("failed to create forest: %v", err)
	}
	money.EXPECT().Reserve(addr(1), amount.New(2)).Return(nil)
	money.EXPECT().Reserve(addr(1), amount.New(4)).Return(nil)

	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if _, err := f.Delegate(addr(1), root, nil); err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	// The mock reports any further Reserve call as an unexpected interaction.
	if _, err := f.Delegate(addr(1), root, nil); !errors.Is(err, ErrKidsLimitExceeded) {
		t.Errorf("wanted ErrKidsLimitExceeded, got %v", err)
	}
}

func TestForest_Delegate_OverflowDetectedBeforeReservation(t *testing.T) {
	ctrl := gomock.NewController(t)
	money := currency.NewMockCurrency(ctrl)
	config := Config{Bond: amount.Max(), MaxSize: 5, MaxDepth: 3, MaxKids: 3}
	f, err := NewForest(config, registrymem.NewRegistry(), ledgermem.NewLedger(), money, &events.Recorder{})
	if err != nil {
		t.Fatalf("failed to create forest: %v", err)
	}
	money.EXPECT().Reserve(addr(1), amount.Max()).Return(nil)

	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if _, err := f.Delegate(addr(1), root, nil); !errors.Is(err, amount.ErrOverflow) {
		t.Errorf("wanted ErrOverflow, got %v", err)
	}
}

func TestForest_AddMembers(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	// Resulting size 3, bond 2*3 = 6.
	if err := f.AddMembers(addr(1), root, []common.Address{addr(2), addr(3)}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(992); got != want {
		t.Errorf("invalid balance, wanted %d, got %d", want, got)
	}
	state, err := f.Tree(root)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Size != 3 {
		t.Errorf("wanted size 3, got %d", state.Size)
	}
	// The bond accumulates on the caller's entry, the added members owe
	// nothing.
	bond, _, err := f.MemberBond(root, addr(1))
	if err != nil {
		t.Fatalf("failed to fetch bond: %v", err)
	}
	if got, want := bond, amount.New(8); got != want {
		t.Errorf("invalid caller bond, wanted %v, got %v", want, got)
	}
	bond, isMember, err := f.MemberBond(root, addr(2))
	if err != nil || !isMember {
		t.Fatalf("added account should be a member, got %v / %v", isMember, err)
	}
	if !bond.IsZero() {
		t.Errorf("added member should carry no bond, got %v", bond)
	}
	if event, _ := f.log.Last(); event.Kind != events.KindMembersAdded || event.Bond != amount.New(6) {
		t.Errorf("invalid event emitted: %v", event)
	}
}

func TestForest_AddMembers_ChargesByRequestedSize(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.AddMembers(addr(1), root, []common.Address{addr(2)}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	// Re-adding a present member is charged as if the group grew, but the
	// size does not change.
	if err := f.AddMembers(addr(1), root, []common.Address{addr(2)}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(1000-2-4-6); got != want {
		t.Errorf("invalid balance, wanted %d, got %d", want, got)
	}
	state, err := f.Tree(root)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Size != 2 {
		t.Errorf("wanted size 2, got %d", state.Size)
	}
}

func TestForest_AddMembers_SizeLimit(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	members := []common.Address{addr(2), addr(3), addr(4), addr(5), addr(6)}
	if err := f.AddMembers(addr(1), root, members); !errors.Is(err, ErrSizeLimitExceeded) {
		t.Fatalf("wanted ErrSizeLimitExceeded, got %v", err)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(998); got != want {
		t.Errorf("failed addition should not charge, wanted %d, got %d", want, got)
	}
}

func TestForest_AddMembers_RootRequiresOwner(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.AddMembers(addr(2), root, []common.Address{addr(3)}); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("wanted ErrNotAuthorized, got %v", err)
	}
}

func TestForest_AddMembers_ChildManagedByParentMembers(t *testing.T) {
	f := newTestForest(t)
	a1, a2, a3 := addr(1), addr(2), addr(3)
	root, err := f.CreateRoot(a1)
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.AddMembers(a1, root, []common.Address{a2}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	child, err := f.Delegate(a1, root, nil)
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	// a2 is a member of the parent but not of the child: the call succeeds,
	// and the bond credit makes a2 a member of the child as well.
	if err := f.AddMembers(a2, child, []common.Address{a3}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	bond, isMember, err := f.MemberBond(child, a2)
	if err != nil || !isMember {
		t.Fatalf("caller should have become a member, got %v / %v", isMember, err)
	}
	if got, want := bond, amount.New(6); got != want {
		t.Errorf("invalid caller bond, wanted %v, got %v", want, got)
	}
	state, err := f.Tree(child)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Size != 3 {
		t.Errorf("wanted size 3, got %d", state.Size)
	}
	// Membership in the child alone does not authorize managing it.
	if err := f.AddMembers(a3, child, []common.Address{addr(4)}); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("wanted ErrNotAuthorized, got %v", err)
	}
}

func TestForest_RemoveMembers_ReleasesBond(t *testing.T) {
	f := newTestForest(t)
	a1, a2, a3 := addr(1), addr(2), addr(3)
	root, err := f.CreateRoot(a1)
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.AddMembers(a1, root, []common.Address{a2}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	child, err := f.Delegate(a1, root, nil)
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	// a2 bonds 6 units into the child by adding a3.
	if err := f.AddMembers(a2, child, []common.Address{a3}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	if got, want := f.reservedBalance(t, a2), uint64(6); got != want {
		t.Fatalf("invalid reserved balance, wanted %d, got %d", want, got)
	}
	if err := f.RemoveMembers(a1, child, []common.Address{a2}, false); err != nil {
		t.Fatalf("failed to remove members: %v", err)
	}
	if got, want := f.reservedBalance(t, a2), uint64(0); got != want {
		t.Errorf("removal should release the bond, wanted %d, got %d", want, got)
	}
	if got, want := f.freeBalance(t, a2), uint64(100); got != want {
		t.Errorf("invalid free balance, wanted %d, got %d", want, got)
	}
	if _, isMember, _ := f.MemberBond(child, a2); isMember {
		t.Errorf("removed account should not be a member")
	}
	state, err := f.Tree(child)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Size != 2 {
		t.Errorf("wanted size 2, got %d", state.Size)
	}
}

func TestForest_RemoveMembers_OwnerAndStrangersSkipped(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.RemoveMembers(addr(1), root, []common.Address{addr(1), addr(9)}, false); err != nil {
		t.Fatalf("failed to remove members: %v", err)
	}
	state, err := f.Tree(root)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Size != 1 {
		t.Errorf("owner and non-members should be skipped, got size %d", state.Size)
	}
	if _, isMember, _ := f.MemberBond(root, addr(1)); !isMember {
		t.Errorf("owner should still be a member")
	}
}

func TestForest_RemoveMembers_PenaltyNotSupported(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.AddMembers(addr(1), root, []common.Address{addr(2)}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	if err := f.RemoveMembers(addr(1), root, []common.Address{addr(2)}, true); !errors.Is(err, ErrPenaltyNotSupported) {
		t.Fatalf("wanted ErrPenaltyNotSupported, got %v", err)
	}
	if _, isMember, _ := f.MemberBond(root, addr(2)); !isMember {
		t.Errorf("failed removal should leave the member in place")
	}
	// Authorization is checked before the penalty flag.
	if err := f.RemoveMembers(addr(3), root, []common.Address{addr(2)}, true); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("wanted ErrNotAuthorized, got %v", err)
	}
}

func TestForest_RemoveMembers_UnknownTree(t *testing.T) {
	f := newTestForest(t)
	if err := f.RemoveMembers(addr(1), 42, nil, false); !errors.Is(err, ErrTreeNotFound) {
		t.Errorf("wanted ErrTreeNotFound, got %v", err)
	}
}

func TestForest_Revoke_OnlyOwner(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.AddMembers(addr(1), root, []common.Address{addr(2)}); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	// Plain membership does not suffice.
	if err := f.Revoke(addr(2), root, false); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("wanted ErrNotAuthorized, got %v", err)
	}
}

func TestForest_Revoke_PenaltyNotSupported(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	if err := f.Revoke(addr(1), root, true); !errors.Is(err, ErrPenaltyNotSupported) {
		t.Fatalf("wanted ErrPenaltyNotSupported, got %v", err)
	}
	if _, err := f.Tree(root); err != nil {
		t.Errorf("failed revocation should leave the tree in place, got %v", err)
	}
}

func TestForest_Revoke_UnknownTree(t *testing.T) {
	f := newTestForest(t)
	if err := f.Revoke(addr(1), 42, false); !errors.Is(err, ErrTreeNotFound) {
		t.Errorf("wanted ErrTreeNotFound, got %v", err)
	}
}

func TestForest_Revoke_DetachesFromParent(t *testing.T) {
	f := newTestForest(t)
	root, err := f.CreateRoot(addr(1))
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	child, err := f.Delegate(addr(1), root, nil)
	if err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if err := f.Revoke(addr(1), child, false); err != nil {
		t.Fatalf("failed to revoke child: %v", err)
	}
	state, err := f.Tree(root)
	if err != nil {
		t.Fatalf("failed to fetch tree: %v", err)
	}
	if state.Kids != 0 {
		t.Errorf("revocation should detach from the parent, got %d kids", state.Kids)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(998); got != want {
		t.Errorf("invalid balance after revocation, wanted %d, got %d", want, got)
	}
	// With the slot free again the next delegation costs the same bond.
	if _, err := f.Delegate(addr(1), root, nil); err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if got, want := f.freeBalance(t, addr(1)), uint64(994); got != want {
		t.Errorf("invalid balance, wanted %d, got %d", want, got)
	}
}

func TestForest_SinkErrorsArePropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := events.NewMockSink(ctrl)
	injected := errors.New("injected error")
	sink.EXPECT().Emit(gomock.Any()).Return(injected)

	money := currencymem.NewCurrency()
	if err := money.Deposit(addr(1), amount.New(1000)); err != nil {
		t.Fatalf("failed to fund account: %v", err)
	}
	f, err := NewForest(testConfig, registrymem.NewRegistry(), ledgermem.NewLedger(), money, sink)
	if err != nil {
		t.Fatalf("failed to create forest: %v", err)
	}
	if _, err := f.CreateRoot(addr(1)); !errors.Is(err, injected) {
		t.Errorf("wanted injected error, got %v", err)
	}
}

func TestForest_StateHashesTrackContent(t *testing.T) {
	f1 := newTestForest(t)
	f2 := newTestForest(t)
	for _, f := range []*testForest{f1, f2} {
		root, err := f.CreateRoot(addr(1))
		if err != nil {
			t.Fatalf("failed to create root: %v", err)
		}
		if err := f.AddMembers(addr(1), root, []common.Address{addr(2)}); err != nil {
			t.Fatalf("failed to add members: %v", err)
		}
	}
	h1, err := f1.RegistryStateHash()
	if err != nil {
		t.Fatalf("failed to fetch hash: %v", err)
	}
	h2, err := f2.RegistryStateHash()
	if err != nil {
		t.Fatalf("failed to fetch hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("same history should produce the same registry hash")
	}
	l1, _ := f1.LedgerStateHash()
	l2, _ := f2.LedgerStateHash()
	if l1 != l2 {
		t.Errorf("same history should produce the same ledger hash")
	}
	if _, err := f2.Delegate(addr(1), 0, nil); err != nil {
		t.Fatalf("failed to delegate: %v", err)
	}
	if h1b, _ := f2.RegistryStateHash(); h1b == h1 {
		t.Errorf("diverging history should change the registry hash")
	}
}
