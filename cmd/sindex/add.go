package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/avdolov/sindex"
	"github.com/avdolov/sindex/internal/analyzer"
	"github.com/avdolov/sindex/internal/store"
)

var flagIncludeLocal bool

var addCmd = &cobra.Command{
	Use:   "add [flags] files...",
	Short: "Create or update the symbol index from C source files",
	Long: "Add parses the given C files and records every symbol definition and\n" +
		"use in the index. File arguments may be doublestar glob patterns.\n" +
		"A file whose modification time is unchanged keeps its records; a\n" +
		"changed file is reindexed from scratch.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&flagIncludeLocal, "include-local-syms", false,
		"include local (file- and block-scope) symbols in the index")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files match %v", args)
	}

	st, err := store.Open(databasePath(cfg), store.ReadWriteCreate)
	if err != nil {
		return err
	}
	defer st.Close()

	log := logger()
	an := analyzer.New()

	opts := []sindex.IndexerOption{
		sindex.WithLocalSymbols(flagIncludeLocal || cfg.IncludeLocalSyms),
		sindex.WithLogger(log),
	}
	if root := projectRoot(cfg); root != "" {
		opts = append(opts, sindex.WithRoot(root))
	}
	ix, err := sindex.NewIndexer(st, an, opts...)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, f := range files {
		log.Debug("analyzing", "file", f)
		if err := an.Analyze(ctx, f, ix); err != nil {
			return err
		}
	}

	inserted, err := ix.Commit()
	if err != nil {
		return err
	}
	log.Info("index updated", "files", len(files), "records", inserted)
	return nil
}

// expandArgs expands doublestar glob patterns in the file arguments. A plain
// path passes through untouched so a missing file still fails loudly later.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		if !strings.ContainsAny(a, "*?[{") {
			files = append(files, a)
			continue
		}
		matches, err := doublestar.FilepathGlob(a)
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", a, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}
