// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package sqlite provides a persistent, append-only event journal backed by
// a SQLite database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/0xsoniclabs/grove/common"
	"github.com/0xsoniclabs/grove/common/amount"
	"github.com/0xsoniclabs/grove/events"
)

const createTable = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	kind INTEGER NOT NULL,
	tree INTEGER NOT NULL,
	parent INTEGER,
	actor BLOB NOT NULL,
	bond BLOB NOT NULL
);
`

// Journal is a SQLite backed implementation of events.Sink. Events are only
// ever appended; the journal offers listing by emission order and filtering
// by tree.
type Journal struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewJournal opens (creating if necessary) the journal stored in the given
// file.
func NewJournal(file string) (*Journal, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("failed to open event journal %s: %w", file, err)
	}
	if _, err := db.Exec(createTable); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize event journal: %w", err), db.Close())
	}
	insert, err := db.Prepare("INSERT INTO events(kind, tree, parent, actor, bond) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to prepare journal insert: %w", err), db.Close())
	}
	return &Journal{db: db, insert: insert}, nil
}

func (j *Journal) Emit(event events.Event) error {
	var parent sql.NullInt64
	if event.Kind == events.KindBranchDelegated {
		parent = sql.NullInt64{Int64: int64(event.Parent), Valid: true}
	}
	bond := event.Bond.Bytes32()
	_, err := j.insert.Exec(int64(event.Kind), int64(event.Tree), parent, event.Actor[:], bond[:])
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// List provides all journaled events in emission order.
func (j *Journal) List() ([]events.Event, error) {
	return j.list("SELECT kind, tree, parent, actor, bond FROM events ORDER BY seq")
}

// ListByTree provides all journaled events concerning the given tree, in
// emission order.
func (j *Journal) ListByTree(tree common.TreeId) ([]events.Event, error) {
	return j.list("SELECT kind, tree, parent, actor, bond FROM events WHERE tree = ? OR parent = ? ORDER BY seq",
		int64(tree), int64(tree))
}

func (j *Journal) list(query string, args ...any) ([]events.Event, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event journal: %w", err)
	}
	defer rows.Close()
	var res []events.Event
	for rows.Next() {
		var kind, tree int64
		var parent sql.NullInt64
		var actor, bond []byte
		if err := rows.Scan(&kind, &tree, &parent, &actor, &bond); err != nil {
			return nil, err
		}
		event := events.Event{
			Kind: events.Kind(kind),
			Tree: common.TreeId(tree),
			Bond: amount.NewFromBytes(bond...),
		}
		if parent.Valid {
			event.Parent = common.TreeId(parent.Int64)
		}
		copy(event.Actor[:], actor)
		res = append(res, event)
	}
	return res, rows.Err()
}

func (j *Journal) Close() error {
	return errors.Join(j.insert.Close(), j.db.Close())
}
