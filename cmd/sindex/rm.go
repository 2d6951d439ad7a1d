package main

import (
	"github.com/spf13/cobra"

	"github.com/avdolov/sindex/internal/store"
)

var rmCmd = &cobra.Command{
	Use:   "rm pattern...",
	Short: "Remove indexed files matching a glob pattern",
	Long: "Rm deletes every indexed file whose stored path matches one of the\n" +
		"glob(7) patterns, along with all of its index records.",
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(databasePath(cfg), store.ReadWrite)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.DeleteGlob(args...)
	if err != nil {
		return err
	}
	logger().Info("removed from index", "files", removed)
	return nil
}
