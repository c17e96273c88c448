package database

import (
	"fmt"
	"log"
)

// schemaVersion is stamped into PRAGMA user_version after EnsureSchema.
const schemaVersion = 1

// Table describes one table managed by EnsureSchema.
type Table struct {
	Name string
	DDL  string
}

// Tables lists the managed tables, parents before children. Every table has a
// surrogate key for joins and a unique HLTVID natural key for deduplication;
// Signals is keyed by name only.
var Tables = []Table{
	{
		Name: "Forums",
		DDL: `CREATE TABLE IF NOT EXISTS Forums (
    ForumID INTEGER PRIMARY KEY AUTOINCREMENT,
    HLTVID TEXT NOT NULL UNIQUE,
    Name TEXT NOT NULL
)`,
	},
	{
		Name: "Authors",
		DDL: `CREATE TABLE IF NOT EXISTS Authors (
    AuthorID INTEGER PRIMARY KEY AUTOINCREMENT,
    HLTVID TEXT NOT NULL UNIQUE,
    Name TEXT NOT NULL
)`,
	},
	{
		Name: "Threads",
		DDL: `CREATE TABLE IF NOT EXISTS Threads (
    ThreadID INTEGER PRIMARY KEY AUTOINCREMENT,
    HLTVID TEXT NOT NULL UNIQUE,
    ForumID INTEGER NOT NULL REFERENCES Forums(ForumID),
    AuthorID INTEGER NOT NULL REFERENCES Authors(AuthorID),
    Title TEXT NOT NULL,
    NumResponses INTEGER DEFAULT 0,
    Time TEXT DEFAULT (datetime('now'))
)`,
	},
	{
		Name: "Posts",
		DDL: `CREATE TABLE IF NOT EXISTS Posts (
    PostID INTEGER PRIMARY KEY AUTOINCREMENT,
    HLTVID TEXT NOT NULL UNIQUE,
    ThreadID INTEGER NOT NULL REFERENCES Threads(ThreadID),
    AuthorID INTEGER NOT NULL REFERENCES Authors(AuthorID),
    ReplyNum INTEGER NOT NULL,
    Content TEXT NOT NULL,
    Time TEXT DEFAULT (datetime('now')),
    HateRating REAL DEFAULT 0,
    OffRating REAL DEFAULT 0
)`,
	},
	{
		Name: "Signals",
		DDL: `CREATE TABLE IF NOT EXISTS Signals (
    SignalName TEXT PRIMARY KEY,
    Value INTEGER DEFAULT 0
)`,
	},
}

// EnsureSchema creates any missing table. With overwrite set, all managed
// tables are dropped (children first) and recreated, discarding their rows.
func (db *DB) EnsureSchema(overwrite bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return &PersistenceError{Op: "schema", Err: err}
	}

	if overwrite {
		log.Printf("dropping %d tables", len(Tables))
		for i := len(Tables) - 1; i >= 0; i-- {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + Tables[i].Name); err != nil {
				tx.Rollback()
				return &PersistenceError{Op: "schema", Err: fmt.Errorf("dropping %s: %w", Tables[i].Name, err)}
			}
		}
	}

	for _, t := range Tables {
		if _, err := tx.Exec(t.DDL); err != nil {
			tx.Rollback()
			return &PersistenceError{Op: "schema", Err: fmt.Errorf("creating %s: %w", t.Name, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "schema", Err: err}
	}

	// Set user_version outside the transaction (modernc/sqlite requirement).
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return &PersistenceError{Op: "schema", Err: fmt.Errorf("setting version %d: %w", schemaVersion, err)}
	}
	return nil
}
