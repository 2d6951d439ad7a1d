package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avdolov/sindex"
	"github.com/avdolov/sindex/internal/store"
)

var (
	flagFormat   string
	flagPath     string
	flagMode     string
	flagKind     string
	flagExplain  bool
	flagLocation bool
)

const defaultFormat = `(%m) %f\t%l\t%c\t%C\t%s`

var searchCmd = &cobra.Command{
	Use:   "search [flags] [pattern]",
	Short: "Query the symbol index",
	Long: "Search prints every index record matching the given filters. The\n" +
		"pattern is a glob(7) wildcard pattern, or an exact symbol name when\n" +
		"it contains no wildcard. With --explain or --location the single\n" +
		"argument is a filename[:line[:column]] position instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagFormat, "format", "f", "",
		"output format (default: "+defaultFormat+")")
	searchCmd.Flags().StringVarP(&flagPath, "path", "p", "",
		"only symbols in paths matching this glob pattern")
	searchCmd.Flags().StringVarP(&flagMode, "mode", "m", "",
		"only the given type of access (r|w|m|-, a 3-character selector, or def)")
	searchCmd.Flags().StringVarP(&flagKind, "kind", "k", "",
		"only symbols of this kind (s, f, v, m or d)")
	searchCmd.Flags().BoolVarP(&flagExplain, "explain", "e", false,
		"show what happens at the given file position")
	searchCmd.Flags().BoolVarP(&flagLocation, "location", "l", false,
		"show usage of the symbols found at the given file position")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts sindex.SearchOptions

	if flagExplain && flagLocation {
		return &sindex.ConfigError{Option: "location", Value: "-e -l",
			Reason: "--explain and --location are mutually exclusive"}
	}
	switch {
	case flagExplain || flagLocation:
		if len(args) != 1 {
			return fmt.Errorf("one filename[:line[:column]] argument required")
		}
		loc, err := sindex.ParseLocation(args[0])
		if err != nil {
			return err
		}
		opts.Location = &loc
		opts.Usage = flagLocation
	case len(args) > 0:
		opts.Symbol = args[0]
	}

	if flagKind != "" {
		k, err := sindex.ParseKind(flagKind)
		if err != nil {
			return err
		}
		opts.Kind = k
	}
	if flagMode != "" {
		m, err := sindex.ParseModeMask(flagMode)
		if err != nil {
			return err
		}
		opts.Mode = &m
	}
	opts.Path = flagPath

	tmpl := flagFormat
	if tmpl == "" {
		tmpl = cfg.Format
	}
	if tmpl == "" {
		tmpl = defaultFormat
	}
	format, err := sindex.ParseFormat(tmpl)
	if err != nil {
		return err
	}

	st, err := store.Open(databasePath(cfg), store.ReadOnly)
	if err != nil {
		return err
	}
	defer st.Close()

	printer := sindex.NewPrinter(format, os.Stdout)
	defer printer.Close()

	return sindex.Search(st, opts, printer.Print)
}
