// Package sindex maintains a persistent symbol index for C source trees.
// Every symbol definition and use observed while analyzing a file is stored
// as one record in a SQLite database, keyed by file, position, symbol name,
// kind and access mode, and can later be queried by pattern or by exact
// source location.
//
// # Build protocol
//
// Indexing is incremental and deduplicated. An [Indexer] receives events
// from an analyzer through the [Reporter] interface, resolves analyzer input
// streams to file rows lazily (creating or replacing rows whose modification
// time changed), and stages records in memory. Nothing touches the persistent
// index until [Indexer.Commit] merges the staging area in one transaction
// with insert-or-ignore semantics, so repeated events and overlapping runs
// never produce duplicates.
//
//	st, err := store.Open("sindex.sqlite", store.ReadWriteCreate)
//	an := analyzer.New()
//	ix, err := sindex.NewIndexer(st, an)
//	err = an.Analyze(ctx, "lib/parse.c", ix)
//	n, err := ix.Commit()
//
// # Queries
//
// [Search] composes one SQL statement from independent optional filters
// (kind, symbol pattern, access mode, path glob, location) and streams rows
// in ascending (file, line, column) order. The ordering is a hard guarantee:
// the [Printer] behind the %s format directive reads source lines with a
// single forward-only scan and relies on it.
//
// # Staleness
//
// A file is considered up to date when its modification time matches the
// stored one; content is not verified. An out-of-band change that preserves
// the mtime (clock skew, a restored backup) silently keeps the stale records
// until the file's mtime moves again or the file is removed from the index.
package sindex
