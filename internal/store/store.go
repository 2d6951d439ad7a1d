// Package store manages the on-disk SQLite index: schema creation, version
// checking, durability pragmas and file-row bookkeeping.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is recorded in PRAGMA user_version when a database is
// created. Databases written by an earlier version are refused; there is no
// automatic migration, the index is cheap to rebuild.
const SchemaVersion = 1

// OpenMode selects how the database file is opened.
type OpenMode int

const (
	// ReadOnly opens an existing database without taking write locks.
	// Under WAL journaling a reader sees either the pre- or post-build
	// state of a concurrent writer, never a torn one.
	ReadOnly OpenMode = iota
	// ReadWrite opens an existing database for updates.
	ReadWrite
	// ReadWriteCreate opens the database, creating it if missing.
	ReadWriteCreate
)

// SchemaError reports a database written by an incompatible earlier version.
type SchemaError struct {
	Path    string
	Version int64
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: database version %d is too old, please rebuild the index", e.Path, e.Version)
}

// Store is the SQLite access layer for the two index tables.
type Store struct {
	db   *sql.DB
	path string
}

const schemaDDL = `
CREATE TABLE file (
  id    INTEGER PRIMARY KEY AUTOINCREMENT,
  name  TEXT UNIQUE NOT NULL,
  mtime INTEGER NOT NULL
);

CREATE TABLE sindex (
  file    INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
  line    INTEGER NOT NULL,
  column  INTEGER NOT NULL,
  symbol  TEXT NOT NULL,
  kind    INTEGER NOT NULL,
  context TEXT,
  mode    INTEGER NOT NULL
);

CREATE UNIQUE INDEX sindex_0 ON sindex (symbol, kind, mode, file, line, column);
CREATE INDEX sindex_1 ON sindex (file);
`

// writePragmas favor throughput over crash durability (the index is
// reproducible from source): WAL journaling so readers run during a writer's
// transaction, and an effectively unbounded busy timeout so concurrent
// writers queue on the lock instead of failing. _txlock=immediate makes
// every transaction take the write lock up front.
const writePragmas = "&_journal_mode=WAL&_synchronous=OFF&_secure_delete=FAST" +
	"&_busy_timeout=2147483647&_foreign_keys=ON&_txlock=immediate"

// Open opens (or, with ReadWriteCreate, creates) the index database at path
// and verifies its schema version.
func Open(path string, mode OpenMode) (*Store, error) {
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if mode != ReadWriteCreate && !exists {
		return nil, fmt.Errorf("open database: %s: no such file", path)
	}

	dsn := "file:" + path
	switch mode {
	case ReadOnly:
		dsn += "?mode=ro&_busy_timeout=2147483647"
	case ReadWrite:
		dsn += "?mode=rw" + writePragmas
	case ReadWriteCreate:
		dsn += "?mode=rwc" + writePragmas
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One connection keeps a writer's statements on its own transaction.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	s := &Store{db: db, path: path}

	if exists {
		v, err := s.Version()
		if err != nil {
			db.Close()
			return nil, err
		}
		if v < SchemaVersion {
			db.Close()
			return nil, &SchemaError{Path: path, Version: v}
		}
		return s, nil
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Version reads the schema version marker.
func (s *Store) Version() (int64, error) {
	var v int64
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for transactions and queries.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// --- Transaction-scoped file-row helpers ---

// FileByNameTx looks up a file row by its stored project-relative path.
func FileByNameTx(tx *sql.Tx, name string) (id, mtime int64, ok bool, err error) {
	err = tx.QueryRow("SELECT id, mtime FROM file WHERE name == ?", name).Scan(&id, &mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("select file %q: %w", name, err)
	}
	return id, mtime, true, nil
}

// InsertFileTx creates a file row and returns its id.
func InsertFileTx(tx *sql.Tx, name string, mtime int64) (int64, error) {
	res, err := tx.Exec("INSERT INTO file (name, mtime) VALUES (?, ?)", name, mtime)
	if err != nil {
		return 0, fmt.Errorf("insert file %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert file %q: %w", name, err)
	}
	return id, nil
}

// DeleteFileTx removes a file row; its index records go with it through the
// cascading foreign key.
func DeleteFileTx(tx *sql.Tx, name string) error {
	if _, err := tx.Exec("DELETE FROM file WHERE name == ?", name); err != nil {
		return fmt.Errorf("delete file %q: %w", name, err)
	}
	return nil
}

// DeleteGlob removes every file row whose stored path matches one of the
// glob patterns, cascading to its index records, all under one transaction.
// It returns the number of file rows removed.
func (s *Store) DeleteGlob(patterns ...string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("delete by pattern: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM file WHERE name GLOB ?")
	if err != nil {
		return 0, fmt.Errorf("delete by pattern: prepare: %w", err)
	}
	defer stmt.Close()

	var removed int64
	for _, p := range patterns {
		res, err := stmt.Exec(p)
		if err != nil {
			return 0, fmt.Errorf("delete by pattern %q: %w", p, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete by pattern: %w", err)
	}
	return removed, nil
}
