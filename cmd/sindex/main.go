package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDatabase string
	flagVerbose  int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sindex: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sindex",
	Short: "Persistent semantic symbol index for C source trees",
	Long: "Sindex keeps a per-file index of every symbol definition and use in a\n" +
		"C source tree, stored in a single SQLite database, and answers\n" +
		"pattern- and location-based queries against it.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDatabase, "database", "D", "",
		"database file (default: sindex.sqlite)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v",
		"show information about what is being done")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(searchCmd)
}

// databasePath resolves the index location: the --database flag, then the
// SINDEX_DATABASE environment variable, then the config file, then the
// default in the current directory.
func databasePath(cfg *config) string {
	if flagDatabase != "" {
		return flagDatabase
	}
	if env := os.Getenv("SINDEX_DATABASE"); env != "" {
		return env
	}
	if cfg.Database != "" {
		return cfg.Database
	}
	return "sindex.sqlite"
}

// logger builds the stderr logger for the requested verbosity.
func logger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case flagVerbose == 1:
		level = slog.LevelInfo
	case flagVerbose > 1:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
