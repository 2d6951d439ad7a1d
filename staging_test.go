package sindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdolov/sindex/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sindex.sqlite"), store.ReadWriteCreate)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedFile(t *testing.T, st *store.Store, name string, mtime int64) int64 {
	t.Helper()
	tx, err := st.DB().Begin()
	require.NoError(t, err)
	id, err := store.InsertFileTx(tx, name, mtime)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func countSymbol(t *testing.T, st *store.Store, symbol string) int {
	t.Helper()
	var n int
	err := st.DB().QueryRow("SELECT count(*) FROM sindex WHERE symbol == ?", symbol).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestStagingDedup(t *testing.T) {
	t.Parallel()

	s := NewStaging()
	rec := Record{File: 1, Line: 3, Col: 5, Symbol: "foo", Kind: KindFunction, Mode: ModeValRead}

	assert.True(t, s.Stage(rec))
	assert.False(t, s.Stage(rec))
	assert.Equal(t, 1, s.Len())

	// Context is not part of the uniqueness tuple.
	withCtx := rec
	withCtx.Context = "main"
	assert.False(t, s.Stage(withCtx))

	// A different mode at the same position is a distinct record.
	other := rec
	other.Mode = ModeValWrite
	assert.True(t, s.Stage(other))
	assert.Equal(t, 2, s.Len())
}

func TestStagingCommit(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	file := seedFile(t, st, "src/a.c", 100)

	s := NewStaging()
	s.Stage(Record{File: file, Line: 1, Col: 5, Symbol: "foo", Kind: KindFunction, Mode: ModeDef})
	s.Stage(Record{File: file, Line: 8, Col: 9, Symbol: "foo", Kind: KindFunction, Context: "main", Mode: ModeValRead})

	n, err := s.Commit(st.DB())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 2, countSymbol(t, st, "foo"))

	// A second build of an unchanged file stages the same records again;
	// the unique index absorbs them.
	s.Stage(Record{File: file, Line: 1, Col: 5, Symbol: "foo", Kind: KindFunction, Mode: ModeDef})
	s.Stage(Record{File: file, Line: 8, Col: 9, Symbol: "foo", Kind: KindFunction, Context: "main", Mode: ModeValRead})
	n, err = s.Commit(st.DB())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, countSymbol(t, st, "foo"))
}
