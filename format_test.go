package sindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatErrors(t *testing.T) {
	t.Parallel()

	for _, tmpl := range []string{"%x", "a %z b", "dangling %", "100%%"} {
		_, err := ParseFormat(tmpl)
		require.Error(t, err, "template %q", tmpl)
		var ferr *FormatError
		require.ErrorAs(t, err, &ferr, "template %q", tmpl)
		assert.Equal(t, tmpl, ferr.Template)
	}
}

func TestPrintFields(t *testing.T) {
	t.Parallel()

	row := Row{
		File:    "src/a.c",
		Line:    3,
		Col:     5,
		Context: "main",
		Symbol:  "foo",
		Mode:    ModeValRead,
		Kind:    KindFunction,
	}

	tests := []struct {
		template string
		want     string
	}{
		{"%f:%l", "src/a.c:3"},
		{"%f:%l:%c", "src/a.c:3:5"},
		{"%n in %C", "foo in main"},
		{"(%m) %k", "(-r-) f"},
		{`a\tb\qc`, "a\tbqc"}, // unknown escapes drop the backslash
		{`end\`, `end\`},      // a trailing lone backslash stays
	}
	for _, tt := range tests {
		f, err := ParseFormat(tt.template)
		require.NoError(t, err, "template %q", tt.template)

		var out strings.Builder
		p := NewPrinter(f, &out)
		require.NoError(t, p.Print(row))
		require.NoError(t, p.Close())
		assert.Equal(t, tt.want+"\n", out.String(), "template %q", tt.template)
	}
}

func TestPrintModeDef(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("%m")
	require.NoError(t, err)
	var out strings.Builder
	p := NewPrinter(f, &out)
	require.NoError(t, p.Print(Row{Mode: ModeDef}))
	assert.Equal(t, "def\n", out.String())
}

func TestPrintSourceLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")
	require.NoError(t, os.WriteFile(a, []byte("int foo;\nint bar;\nint baz;\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("int qux;\n"), 0o644))

	f, err := ParseFormat("%s")
	require.NoError(t, err)
	var out strings.Builder
	p := NewPrinter(f, &out)
	defer p.Close()

	// Rows arrive in the search order: per file, ascending lines, with
	// repeats on one line.
	for _, row := range []Row{
		{File: a, Line: 1},
		{File: a, Line: 2},
		{File: a, Line: 2},
		{File: a, Line: 3},
		{File: b, Line: 1},
	} {
		require.NoError(t, p.Print(row))
	}
	assert.Equal(t, "int foo;\nint bar;\nint bar;\nint baz;\nint qux;\n", out.String())
}

func TestPrintSourceLinePastEOF(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.c")
	require.NoError(t, os.WriteFile(path, []byte("int foo;\n"), 0o644))

	f, err := ParseFormat("<%s>")
	require.NoError(t, err)
	var out strings.Builder
	p := NewPrinter(f, &out)
	defer p.Close()

	// The file shrank since it was indexed; the line renders empty.
	require.NoError(t, p.Print(Row{File: path, Line: 7}))
	assert.Equal(t, "<>\n", out.String())
}
