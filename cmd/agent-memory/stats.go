package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentvault/synccore/internal/config"
	"github.com/agentvault/synccore/internal/store"
)

// statsCmd is local-only, like export/import: it never touches the
// ledger, just the embedded store's own counters.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print local store diagnostics as JSON",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats(cmd.Context(), cfg.DBPath())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
