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
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./tool <command> <flags>

var (
	dbFlag = cli.StringFlag{
		Name:  "db",
		Usage: "directory of the forest database",
		Value: "grove-db",
	}
	bondFlag = cli.Uint64Flag{
		Name:  "bond",
		Usage: "base deposit unit",
		Value: 10,
	}
	maxSizeFlag = cli.UintFlag{
		Name:  "max-size",
		Usage: "maximum number of members per tree",
		Value: 5,
	}
	maxDepthFlag = cli.UintFlag{
		Name:  "max-depth",
		Usage: "maximum delegation depth",
		Value: 5,
	}
	maxKidsFlag = cli.UintFlag{
		Name:  "max-kids",
		Usage: "maximum number of subtrees per tree",
		Value: 2,
	}
	penaltyFlag = cli.BoolFlag{
		Name:  "penalty",
		Usage: "forfeit bonds instead of returning them",
	}
	treeFlag = cli.Uint64Flag{
		Name:  "tree",
		Usage: "restrict listing to events of one tree",
	}
)

func main() {
	app := &cli.App{
		Name:      "grove",
		Usage:     "bonded delegation forest toolbox",
		Copyright: "(c) 2025 Sonic Operations Ltd",
		Flags: []cli.Flag{
			&dbFlag,
			&bondFlag,
			&maxSizeFlag,
			&maxDepthFlag,
			&maxKidsFlag,
		},
		Commands: []*cli.Command{
			&Fund,
			&Balance,
			&CreateRoot,
			&Delegate,
			&AddMembers,
			&RemoveMembers,
			&Revoke,
			&List,
			&Members,
			&Events,
			&Info,
			&Export,
			&Import,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
