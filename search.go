package sindex

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/avdolov/sindex/internal/store"
)

// Location is an exact index position: a stored file path with optional line
// and column. Zero means "not given"; the column only narrows when a line is
// given, the line only when the file is.
type Location struct {
	File string
	Line int
	Col  int
}

// ParseLocation parses a "filename[:line[:column]]" argument.
func ParseLocation(s string) (Location, error) {
	parts := strings.SplitN(s, ":", 3)
	loc := Location{File: parts[0]}
	if loc.File == "" {
		return Location{}, &ConfigError{Option: "location", Value: s, Reason: "filename required"}
	}
	for i, field := range []*int{&loc.Line, &loc.Col} {
		if len(parts) <= i+1 || parts[i+1] == "" {
			break
		}
		n, err := strconv.Atoi(parts[i+1])
		if err != nil || n < 0 {
			return Location{}, &ConfigError{Option: "location", Value: s,
				Reason: "line and column must be non-negative numbers"}
		}
		*field = n
	}
	return loc, nil
}

// SearchOptions are the optional, conjunctive filters of one query.
type SearchOptions struct {
	Kind   Kind   // zero: any kind
	Symbol string // exact name, or glob when it contains a metacharacter
	Mode   *Mode  // nil: any mode; pointer to zero: exactly "no access"
	Path   string // glob over stored file paths

	// Location restricts by position. With Usage false the query explains
	// what happens at the position; with Usage true it returns every record
	// sharing a symbol name with the ones found there.
	Location *Location
	Usage    bool
}

// Row is one search result.
type Row struct {
	File    string
	Line    int
	Col     int
	Context string
	Symbol  string
	Mode    Mode
	Kind    Kind
}

// globMeta are the glob(7) metacharacters that switch symbol matching from
// equality to wildcard. Exact equality keeps the common lookup of one known
// name on the fast path.
const globMeta = "*?[]"

// Search composes one filtered query from opts and streams result rows to
// fn in ascending (file, line, column) order. The ordering is load-bearing:
// the output formatter's sequential source scan depends on it.
func Search(st *store.Store, opts SearchOptions, fn func(Row) error) error {
	var q strings.Builder
	var args []any

	q.WriteString(
		`SELECT file.name, sindex.line, sindex.column, sindex.context,` +
			` sindex.symbol, sindex.mode, sindex.kind` +
			` FROM sindex, file WHERE sindex.file == file.id`)

	if opts.Kind != 0 {
		q.WriteString(" AND sindex.kind == ?")
		args = append(args, int64(opts.Kind))
	}
	if opts.Symbol != "" {
		if strings.ContainsAny(opts.Symbol, globMeta) {
			q.WriteString(" AND sindex.symbol GLOB ?")
		} else {
			q.WriteString(" AND sindex.symbol == ?")
		}
		args = append(args, opts.Symbol)
	}
	if opts.Mode != nil {
		// A zero mask matches "no access" exactly; a non-zero mask matches
		// any record sharing a bit with it. See Mode.Matches.
		if *opts.Mode == 0 {
			q.WriteString(" AND sindex.mode == 0")
		} else {
			q.WriteString(" AND (sindex.mode & ?) != 0")
			args = append(args, int64(*opts.Mode))
		}
	}
	if opts.Path != "" {
		q.WriteString(" AND file.name GLOB ?")
		args = append(args, opts.Path)
	}
	if loc := opts.Location; loc != nil {
		if opts.Usage {
			q.WriteString(" AND sindex.symbol IN (" +
				"SELECT sindex.symbol FROM sindex, file" +
				" WHERE sindex.file == file.id AND file.name == ?")
			args = append(args, loc.File)
			appendLineCol(&q, &args, loc)
			q.WriteString(")")
		} else {
			q.WriteString(" AND file.name == ?")
			args = append(args, loc.File)
			appendLineCol(&q, &args, loc)
		}
	}
	q.WriteString(" ORDER BY file.name, sindex.line, sindex.column ASC")

	rows, err := st.DB().Query(q.String(), args...)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Row
		var context sql.NullString
		var kind, mode int64
		if err := rows.Scan(&r.File, &r.Line, &r.Col, &context, &r.Symbol, &mode, &kind); err != nil {
			return fmt.Errorf("search: scan: %w", err)
		}
		r.Context = context.String
		r.Kind = Kind(kind)
		r.Mode = Mode(mode)
		if err := fn(r); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

// appendLineCol narrows by line, then by column, each only when given.
func appendLineCol(q *strings.Builder, args *[]any, loc *Location) {
	if loc.Line == 0 {
		return
	}
	q.WriteString(" AND sindex.line == ?")
	*args = append(*args, loc.Line)
	if loc.Col == 0 {
		return
	}
	q.WriteString(" AND sindex.column == ?")
	*args = append(*args, loc.Col)
}
