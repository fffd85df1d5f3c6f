// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/urfave/cli/v2"

	"github.com/0xsoniclabs/grove/backend"
	ledgerldb "github.com/0xsoniclabs/grove/backend/ledger/ldb"
	registryldb "github.com/0xsoniclabs/grove/backend/registry/ldb"
	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
	currencyldb "github.com/0xsoniclabs/grove/currency/ldb"
	"github.com/0xsoniclabs/grove/delegate"
	"github.com/0xsoniclabs/grove/events"
	"github.com/0xsoniclabs/grove/events/sqlite"
)

var (
	Fund = cli.Command{
		Name:      "fund",
		Usage:     "credit an account's free balance",
		ArgsUsage: "<account> <value>",
	}
	Balance = cli.Command{
		Name:      "balance",
		Usage:     "print an account's free and reserved balance",
		ArgsUsage: "<account>",
	}
	CreateRoot = cli.Command{
		Name:      "create-root",
		Usage:     "create a new root tree owned by the caller",
		ArgsUsage: "<caller>",
	}
	Delegate = cli.Command{
		Name:      "delegate",
		Usage:     "delegate a new subtree under a parent tree",
		ArgsUsage: "<caller> <parent> [<member> ...]",
	}
	AddMembers = cli.Command{
		Name:      "add-members",
		Usage:     "add members to a tree",
		ArgsUsage: "<caller> <tree> <member> [<member> ...]",
	}
	RemoveMembers = cli.Command{
		Name:      "remove-members",
		Usage:     "remove members from a tree, releasing their bonds",
		ArgsUsage: "<caller> <tree> <member> [<member> ...]",
		Flags:     []cli.Flag{&penaltyFlag},
	}
	Revoke = cli.Command{
		Name:      "revoke",
		Usage:     "revoke a tree and tear down its entire subtree",
		ArgsUsage: "<caller> <tree>",
		Flags:     []cli.Flag{&penaltyFlag},
	}
	List = cli.Command{
		Action: list,
		Name:   "list",
		Usage:  "print all registered trees",
	}
	Members = cli.Command{
		Name:      "members",
		Usage:     "print all members of a tree and their bonds",
		ArgsUsage: "<tree>",
	}
	Events = cli.Command{
		Action: listEvents,
		Name:   "events",
		Usage:  "print the journaled events",
		Flags:  []cli.Flag{&treeFlag},
	}
	Info = cli.Command{
		Action: info,
		Name:   "info",
		Usage:  "print state hashes and memory usage",
	}
	Export = cli.Command{
		Name:      "export",
		Usage:     "write a compressed snapshot of the forest",
		ArgsUsage: "<file>",
	}
	Import = cli.Command{
		Name:      "import",
		Usage:     "load a compressed snapshot into the forest",
		ArgsUsage: "<file>",
	}
)

// The Action fields of commands whose handlers reference their own command
// variable are set here to avoid an initialization cycle.
func init() {
	Fund.Action = fund
	Balance.Action = balance
	CreateRoot.Action = createRoot
	Delegate.Action = delegateBranch
	AddMembers.Action = addMembers
	RemoveMembers.Action = removeMembers
	Revoke.Action = revoke
	Members.Action = listMembers
	Export.Action = exportSnapshot
	Import.Action = importSnapshot
}

// environment bundles the persistent stores of one tool invocation. Each
// invocation runs a single operation against the database, giving every
// operation a process-level transaction boundary.
type environment struct {
	db      *leveldb.DB
	forest  *delegate.Forest
	money   *currencyldb.Currency
	journal *sqlite.Journal
}

func openEnvironment(ctx *cli.Context) (*environment, error) {
	dir := ctx.String(dbFlag.Name)

	// Give the block cache a share of the machine's memory, within limits.
	cache := int(memory.TotalMemory() / 16)
	const minCache = 16 << 20
	const maxCache = 1 << 30
	if cache < minCache {
		cache = minCache
	}
	if cache > maxCache {
		cache = maxCache
	}

	db, err := backend.OpenLevelDb(filepath.Join(dir, "state"), &opt.Options{
		BlockCacheCapacity: cache,
	})
	if err != nil {
		return nil, err
	}
	trees, err := registryldb.NewRegistry(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	members, err := ledgerldb.NewLedger(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	money := currencyldb.NewCurrency(db)
	journal, err := sqlite.NewJournal(filepath.Join(dir, "events.db"))
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	forest, err := delegate.NewForest(delegate.Config{
		Bond:     amount.New(ctx.Uint64(bondFlag.Name)),
		MaxSize:  uint32(ctx.Uint(maxSizeFlag.Name)),
		MaxDepth: uint32(ctx.Uint(maxDepthFlag.Name)),
		MaxKids:  uint32(ctx.Uint(maxKidsFlag.Name)),
	}, trees, members, money, journal)
	if err != nil {
		return nil, errors.Join(err, journal.Close(), db.Close())
	}
	return &environment{
		db:      db,
		forest:  forest,
		money:   money,
		journal: journal,
	}, nil
}

func (e *environment) Close() error {
	return errors.Join(
		e.forest.Close(),
		e.journal.Close(),
		e.db.Close(),
	)
}

func parseAddress(arg string) (common.Address, error) {
	trimmed := strings.TrimPrefix(arg, "0x")
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	data, err := hex.DecodeString(trimmed)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid account %q: %w", arg, err)
	}
	return common.AddressFromBytes(data)
}

func parseAddresses(args []string) ([]common.Address, error) {
	res := make([]common.Address, 0, len(args))
	for _, arg := range args {
		account, err := parseAddress(arg)
		if err != nil {
			return nil, err
		}
		res = append(res, account)
	}
	return res, nil
}

func parseTreeId(arg string) (common.TreeId, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tree id %q: %w", arg, err)
	}
	return common.TreeId(id), nil
}

func parseAmount(arg string) (amount.Amount, error) {
	value, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	return amount.New(value), nil
}

func fund(ctx *cli.Context) error {
	if ctx.Args().Len() != 2 {
		return fmt.Errorf("usage: fund %s", Fund.ArgsUsage)
	}
	account, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	value, err := parseAmount(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.money.Deposit(account, value); err != nil {
		return err
	}
	fmt.Printf("funded %v with %v\n", account, value)
	return nil
}

func balance(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("usage: balance %s", Balance.ArgsUsage)
	}
	account, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	free, err := env.money.FreeBalance(account)
	if err != nil {
		return err
	}
	reserved, err := env.money.ReservedBalance(account)
	if err != nil {
		return err
	}
	fmt.Printf("%v: free %v, reserved %v\n", account, free, reserved)
	return nil
}

func createRoot(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("usage: create-root %s", CreateRoot.ArgsUsage)
	}
	caller, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	id, err := env.forest.CreateRoot(caller)
	if err != nil {
		return err
	}
	fmt.Printf("created root tree %d\n", id)
	return nil
}

func delegateBranch(ctx *cli.Context) error {
	if ctx.Args().Len() < 2 {
		return fmt.Errorf("usage: delegate %s", Delegate.ArgsUsage)
	}
	caller, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	parent, err := parseTreeId(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	members, err := parseAddresses(ctx.Args().Slice()[2:])
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	id, err := env.forest.Delegate(caller, parent, members)
	if err != nil {
		return err
	}
	fmt.Printf("delegated tree %d under tree %d\n", id, parent)
	return nil
}

func addMembers(ctx *cli.Context) error {
	if ctx.Args().Len() < 3 {
		return fmt.Errorf("usage: add-members %s", AddMembers.ArgsUsage)
	}
	caller, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	tree, err := parseTreeId(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	members, err := parseAddresses(ctx.Args().Slice()[2:])
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.forest.AddMembers(caller, tree, members); err != nil {
		return err
	}
	fmt.Printf("added %d members to tree %d\n", len(members), tree)
	return nil
}

func removeMembers(ctx *cli.Context) error {
	if ctx.Args().Len() < 3 {
		return fmt.Errorf("usage: remove-members %s", RemoveMembers.ArgsUsage)
	}
	caller, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	tree, err := parseTreeId(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	members, err := parseAddresses(ctx.Args().Slice()[2:])
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.forest.RemoveMembers(caller, tree, members, ctx.Bool(penaltyFlag.Name)); err != nil {
		return err
	}
	fmt.Printf("removed members from tree %d\n", tree)
	return nil
}

func revoke(ctx *cli.Context) error {
	if ctx.Args().Len() != 2 {
		return fmt.Errorf("usage: revoke %s", Revoke.ArgsUsage)
	}
	caller, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	tree, err := parseTreeId(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.forest.Revoke(caller, tree, ctx.Bool(penaltyFlag.Name)); err != nil {
		return err
	}
	fmt.Printf("revoked tree %d\n", tree)
	return nil
}

func list(ctx *cli.Context) error {
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	count := 0
	err = env.forest.ForEachTree(func(state common.TreeState) error {
		fmt.Println(state)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d trees\n", count)
	return nil
}

func listMembers(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("usage: members %s", Members.ArgsUsage)
	}
	tree, err := parseTreeId(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	if _, err := env.forest.Tree(tree); err != nil {
		return err
	}
	return env.forest.ForEachMember(tree, func(account common.Address, bond amount.Amount) error {
		fmt.Printf("%v: bonded %v\n", account, bond)
		return nil
	})
}

func listEvents(ctx *cli.Context) error {
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	var listed []events.Event
	if ctx.IsSet(treeFlag.Name) {
		listed, err = env.journal.ListByTree(common.TreeId(ctx.Uint64(treeFlag.Name)))
	} else {
		listed, err = env.journal.List()
	}
	if err != nil {
		return err
	}
	for _, event := range listed {
		fmt.Println(event)
	}
	return nil
}

func info(ctx *cli.Context) error {
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	registryHash, err := env.forest.RegistryStateHash()
	if err != nil {
		return err
	}
	ledgerHash, err := env.forest.LedgerStateHash()
	if err != nil {
		return err
	}
	fmt.Printf("registry state hash: %v\n", registryHash)
	fmt.Printf("ledger state hash:   %v\n", ledgerHash)
	fmt.Printf("system memory:       %d MB\n", memory.TotalMemory()>>20)
	fmt.Print(env.forest.GetMemoryFootprint())
	return nil
}

func exportSnapshot(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("usage: export %s", Export.ArgsUsage)
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	file, err := os.Create(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	if err := env.forest.Export(file); err != nil {
		return errors.Join(err, file.Close())
	}
	return file.Close()
}

func importSnapshot(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("usage: import %s", Import.ArgsUsage)
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	file, err := os.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	if err := env.forest.Import(file); err != nil {
		return errors.Join(err, file.Close())
	}
	return file.Close()
}
