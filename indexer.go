package sindex

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/avdolov/sindex/internal/store"
)

// Position locates a symbol event inside one analyzer input stream.
type Position struct {
	Stream int // analyzer input-stream index
	Line   int // 1-based
	Col    int // 1-based
}

// Event is one symbol observation delivered by the analyzer. Definitions
// carry ModeDef. Member accesses set IsMember and are stored under the
// composed "aggregate.member" name; see MemberSymbol.
type Event struct {
	Pos     Position
	Name    string // symbol (or aggregate) identifier; empty when unresolvable
	Kind    Kind
	Mode    Mode
	Context string // enclosing function, empty at file scope
	Local   bool   // file-scope-private or block-scope symbol

	IsMember  bool
	Member    string // member identifier; empty means anonymous
	WholeAggr bool   // the whole aggregate was accessed, not one member
}

// Reporter receives symbol events from an analyzer run.
type Reporter interface {
	Report(Event) error
}

// StreamTable exposes the analyzer's input streams. Streams are appended as
// inputs are opened and never removed; StreamPath returns ok == false for a
// stream not backed by a real file.
type StreamTable interface {
	NumStreams() int
	StreamPath(i int) (path string, ok bool)
}

// nonIndexable marks a stream whose events must be dropped.
const nonIndexable = int64(-1)

// Indexer is the incremental build coordinator. It resolves analyzer streams
// to file rows, detects stale files by modification time, stages
// deduplicated records in memory, and merges them into the store under one
// transaction on Commit.
type Indexer struct {
	store        *store.Store
	streams      StreamTable
	staging      *Staging
	ids          []int64 // stream index -> file row id, or nonIndexable
	root         string
	includeLocal bool
	log          *slog.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLocalSymbols includes file-scope-private and block-scope symbols,
// which are dropped by default.
func WithLocalSymbols(include bool) IndexerOption {
	return func(ix *Indexer) { ix.includeLocal = include }
}

// WithRoot overrides the project root indexed paths are made relative to.
// Files outside the root are never indexed.
func WithRoot(root string) IndexerOption {
	return func(ix *Indexer) { ix.root = root }
}

// WithLogger routes warnings and progress output. The default discards them.
func WithLogger(log *slog.Logger) IndexerOption {
	return func(ix *Indexer) { ix.log = log }
}

// NewIndexer creates a build coordinator writing to st for the inputs opened
// by the analyzer behind streams. The project root defaults to the current
// directory.
func NewIndexer(st *store.Store, streams StreamTable, opts ...IndexerOption) (*Indexer, error) {
	ix := &Indexer{
		store:   st,
		streams: streams,
		staging: NewStaging(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("indexer: resolve project root: %w", err)
		}
		ix.root = cwd
	}
	abs, err := filepath.Abs(ix.root)
	if err != nil {
		return nil, fmt.Errorf("indexer: resolve project root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("indexer: resolve project root: %w", err)
	}
	ix.root = real
	return ix, nil
}

// Report implements Reporter. The event's stream is resolved to a file row
// lazily and the record is staged; nothing reaches the persistent index
// until Commit.
func (ix *Indexer) Report(ev Event) error {
	if err := ix.resolveStreams(); err != nil {
		return err
	}
	if ev.Pos.Stream < 0 || ev.Pos.Stream >= len(ix.ids) {
		return fmt.Errorf("indexer: unknown stream %d", ev.Pos.Stream)
	}
	id := ix.ids[ev.Pos.Stream]
	if id == nonIndexable {
		return nil
	}
	if ev.Local && !ix.includeLocal {
		return nil
	}

	symbol := ev.Name
	kind := ev.Kind
	if ev.IsMember {
		symbol = MemberSymbol(ev.Name, ev.Member, ev.WholeAggr)
		kind = KindMember
	} else if symbol == "" {
		ix.log.Warn("dropping event with empty ident",
			"stream", ev.Pos.Stream, "line", ev.Pos.Line, "column", ev.Pos.Col)
		return nil
	}

	ix.staging.Stage(Record{
		File:    id,
		Line:    ev.Pos.Line,
		Col:     ev.Pos.Col,
		Symbol:  symbol,
		Kind:    kind,
		Context: ev.Context,
		Mode:    ev.Mode,
	})
	return nil
}

// resolveStreams maps every not-yet-seen analyzer stream to a file row.
// Resolution is batched: the first event from a new stream resolves all
// pending streams together under one exclusive transaction. A file row whose
// stored mtime differs from the file's current one is deleted (cascading
// away its records) and recreated with a fresh id.
func (ix *Indexer) resolveStreams() error {
	n := ix.streams.NumStreams()
	if len(ix.ids) >= n {
		return nil
	}

	tx, err := ix.store.DB().Begin()
	if err != nil {
		return fmt.Errorf("indexer: begin resolve: %w", err)
	}
	defer tx.Rollback()

	for i := len(ix.ids); i < n; i++ {
		path, ok := ix.streams.StreamPath(i)
		if !ok {
			ix.ids = append(ix.ids, nonIndexable)
			continue
		}

		name, mtime, err := ix.resolveFile(path)
		if err != nil {
			return err
		}
		if name == "" {
			// Outside the project root.
			ix.ids = append(ix.ids, nonIndexable)
			continue
		}
		ix.log.Debug("resolving input", "file", name)

		id, oldMtime, found, err := store.FileByNameTx(tx, name)
		if err != nil {
			return fmt.Errorf("indexer: %w", err)
		}
		if found && oldMtime == mtime {
			// Up to date; any records of an earlier run stay in place and
			// the commit's insert-or-ignore keeps them unique.
			ix.ids = append(ix.ids, id)
			continue
		}
		if found {
			if err := store.DeleteFileTx(tx, name); err != nil {
				return fmt.Errorf("indexer: %w", err)
			}
		}
		id, err = store.InsertFileTx(tx, name, mtime)
		if err != nil {
			return fmt.Errorf("indexer: %w", err)
		}
		ix.ids = append(ix.ids, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("indexer: commit resolve: %w", err)
	}
	return nil
}

// resolveFile returns the project-relative path and mtime for one input
// file, or an empty name when the file lies outside the project root.
func (ix *Indexer) resolveFile(path string) (string, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("indexer: stat %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", 0, fmt.Errorf("indexer: resolve %s: %w", path, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", 0, fmt.Errorf("indexer: resolve %s: %w", path, err)
	}
	rel := strings.TrimPrefix(real, ix.root+string(filepath.Separator))
	if rel == real {
		return "", 0, nil
	}
	return filepath.ToSlash(rel), info.ModTime().Unix(), nil
}

// Staged returns the number of records currently staged.
func (ix *Indexer) Staged() int { return ix.staging.Len() }

// Commit merges the staging area into the persistent index and returns the
// number of records actually inserted.
func (ix *Indexer) Commit() (int, error) {
	n, err := ix.staging.Commit(ix.store.DB())
	if err != nil {
		return 0, err
	}
	ix.log.Info("index updated", "inserted", n)
	return n, nil
}
