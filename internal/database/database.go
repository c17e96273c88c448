package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection. Its embedded Store runs every
// statement in autocommit mode; use Begin or InTx for a unit of work.
type DB struct {
	Store
	conn *sql.DB
	path string
}

// Tx is a unit of work. Statements issued through its Store become visible to
// other connections only after Commit.
type Tx struct {
	Store
	tx *sql.Tx
}

// Open creates or opens a SQLite database at the given path and ensures the
// schema exists.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them. The
	// scraper and the chat ingester write to the same file from separate
	// processes, hence WAL and the busy timeout.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, &PersistenceError{Op: "connect", Err: err}
	}

	db := &DB{Store: Store{q: conn}, conn: conn, path: dbPath}
	if err := db.EnsureSchema(false); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Begin starts a unit of work.
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, &PersistenceError{Op: "begin", Err: err}
	}
	return &Tx{Store: Store{q: tx}, tx: tx}, nil
}

// Commit commits the unit of work.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback abandons the unit of work. Rolling back a committed Tx is a no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// InTx runs fn in a unit of work, committing when fn returns nil and rolling
// back otherwise.
func (db *DB) InTx(fn func(tx *Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is the statement surface shared by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store holds the entity and signal operations. It runs against either the
// connection pool or an open transaction.
type Store struct {
	q querier
}

// PersistenceError reports a failed database operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
