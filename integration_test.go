package sindex_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdolov/sindex"
	"github.com/avdolov/sindex/internal/analyzer"
	"github.com/avdolov/sindex/internal/store"
)

const fooSource = `int foo(void)
{
	return 0;
}

int main(void)
{
	return foo();
}
`

// Build an index from real C source, query it and render the results,
// exercising the whole pipeline the command-line tool wires together.
func TestIndexQueryPrint(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo.c"), []byte(fooSource), 0o644))
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(old) })

	st, err := store.Open(filepath.Join(t.TempDir(), "sindex.sqlite"), store.ReadWriteCreate)
	require.NoError(t, err)
	defer st.Close()

	an := analyzer.New()
	ix, err := sindex.NewIndexer(st, an, sindex.WithRoot(root))
	require.NoError(t, err)
	require.NoError(t, an.Analyze(context.Background(), "foo.c", ix))

	inserted, err := ix.Commit()
	require.NoError(t, err)
	assert.Equal(t, 3, inserted, "foo def, main def, foo call")

	var rows []sindex.Row
	err = sindex.Search(st, sindex.SearchOptions{Symbol: "foo"}, func(r sindex.Row) error {
		rows = append(rows, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	def, use := rows[0], rows[1]
	assert.Equal(t, "foo.c", def.File)
	assert.Equal(t, 1, def.Line)
	assert.Equal(t, 5, def.Col)
	assert.Equal(t, sindex.ModeDef, def.Mode)
	assert.Equal(t, sindex.KindFunction, def.Kind)

	assert.Equal(t, 8, use.Line)
	assert.Equal(t, sindex.ModeValRead, use.Mode)
	assert.Equal(t, "main", use.Context)

	format, err := sindex.ParseFormat(`%f:%l:%c (%m) %s`)
	require.NoError(t, err)
	var out strings.Builder
	p := sindex.NewPrinter(format, &out)
	defer p.Close()
	for _, r := range rows {
		require.NoError(t, p.Print(r))
	}
	assert.Equal(t,
		"foo.c:1:5 (def) int foo(void)\n"+
			"foo.c:8:9 (-r-) \treturn foo();\n",
		out.String())
}

func TestExplainAndUsageQueries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo.c"), []byte(fooSource), 0o644))

	st, err := store.Open(filepath.Join(t.TempDir(), "sindex.sqlite"), store.ReadWriteCreate)
	require.NoError(t, err)
	defer st.Close()

	an := analyzer.New()
	ix, err := sindex.NewIndexer(st, an, sindex.WithRoot(root))
	require.NoError(t, err)
	require.NoError(t, an.Analyze(context.Background(), filepath.Join(root, "foo.c"), ix))
	_, err = ix.Commit()
	require.NoError(t, err)

	collect := func(opts sindex.SearchOptions) []sindex.Row {
		var rows []sindex.Row
		require.NoError(t, sindex.Search(st, opts, func(r sindex.Row) error {
			rows = append(rows, r)
			return nil
		}))
		return rows
	}

	// What happens on line 8?
	rows := collect(sindex.SearchOptions{Location: &sindex.Location{File: "foo.c", Line: 8}})
	require.Len(t, rows, 1)
	assert.Equal(t, "foo", rows[0].Symbol)
	assert.Equal(t, sindex.ModeValRead, rows[0].Mode)

	// Where else is the symbol defined on line 1 used?
	rows = collect(sindex.SearchOptions{
		Location: &sindex.Location{File: "foo.c", Line: 1},
		Usage:    true,
	})
	require.Len(t, rows, 2)
	assert.Equal(t, sindex.ModeDef, rows[0].Mode)
	assert.Equal(t, sindex.ModeValRead, rows[1].Mode)
}
