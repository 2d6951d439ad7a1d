package sindex

import (
	"database/sql"
	"fmt"
)

// Staging is the process-local holding relation for one build. It has the
// same record shape as the persistent index plus insert-if-absent semantics,
// which absorbs the analyzer's tendency to emit the same event more than
// once before anything reaches the store.
type Staging struct {
	seen map[recordKey]struct{}
	recs []Record
}

func NewStaging() *Staging {
	return &Staging{seen: make(map[recordKey]struct{})}
}

// Stage adds rec unless an identical record (by the persistent uniqueness
// tuple) is already staged, and reports whether it was newly added.
func (s *Staging) Stage(rec Record) bool {
	k := rec.key()
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	s.recs = append(s.recs, rec)
	return true
}

// Len returns the number of staged records.
func (s *Staging) Len() int { return len(s.recs) }

// Commit merges every staged record into the persistent index under one
// exclusive transaction, silently skipping records the unique index already
// holds. It returns the number of rows actually inserted and leaves the
// staging area empty on success.
func (s *Staging) Commit(db *sql.DB) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("staging commit: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO sindex (file, line, column, symbol, kind, context, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("staging commit: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range s.recs {
		res, err := stmt.Exec(rec.File, rec.Line, rec.Col, rec.Symbol,
			int64(rec.Kind), rec.Context, int64(rec.Mode))
		if err != nil {
			return 0, fmt.Errorf("staging commit: insert %q: %w", rec.Symbol, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("staging commit: %w", err)
	}

	s.seen = make(map[recordKey]struct{})
	s.recs = s.recs[:0]
	return inserted, nil
}
