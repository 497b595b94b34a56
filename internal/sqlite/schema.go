// Package sqlite implements the SQLite ledger backend for the pin agent.
package sqlite

import "github.com/mesh-intelligence/pinagent/pkg/types"

// Schema DDL. Tables are created only when missing: the ledger must survive
// restarts.
const (
	createPins = `CREATE TABLE IF NOT EXISTS pins (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pin_id TEXT NOT NULL UNIQUE,
    board_key TEXT NOT NULL DEFAULT '',
    source_url TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`

	createBlogPins = `CREATE TABLE IF NOT EXISTS blog_pins (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_url TEXT NOT NULL UNIQUE,
    pin_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`

	createSearchedBoards = `CREATE TABLE IF NOT EXISTS searched_boards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_board_id TEXT NOT NULL UNIQUE,
    last_searched_at TEXT NOT NULL
);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createPins,
	createBlogPins,
	createSearchedBoards,
}

// Single-statement inserts. OR IGNORE turns a duplicate key into a no-op.
const (
	insertPin = `INSERT OR IGNORE INTO pins (pin_id, board_key, source_url, created_at)
VALUES (?, ?, ?, ?)`
	insertBlogPin = `INSERT OR IGNORE INTO blog_pins (post_url, pin_id, created_at)
VALUES (?, ?, ?)`
	insertSearchedBoard = `INSERT OR IGNORE INTO searched_boards (source_board_id, last_searched_at)
VALUES (?, ?)`
)

// tableSpec names the table and unique key column backing a record kind.
type tableSpec struct {
	table  string
	keyCol string
}

var tables = map[types.Kind]tableSpec{
	types.KindPin:           {table: "pins", keyCol: "pin_id"},
	types.KindBlogPin:       {table: "blog_pins", keyCol: "post_url"},
	types.KindSearchedBoard: {table: "searched_boards", keyCol: "source_board_id"},
}
