package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentvault/synccore/internal/config"
	"github.com/agentvault/synccore/internal/model"
	"github.com/agentvault/synccore/internal/store"
)

// exportCmd and importCmd are a local-only backup pair, independent of
// the ledger round-trip: a plain JSON dump of the embedded store's
// facts, for moving or inspecting state without touching the network.
var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write every local fact to a JSON file (- for stdout)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Re-apply a previously exported JSON fact dump (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var exportScope string

func init() {
	exportCmd.Flags().StringVar(&exportScope, "scope", "", "only export this scope plus global facts (default: all)")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	facts, err := st.ExportAll(cmd.Context(), exportScope)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	out := cmd.OutOrStdout()
	if dest := args[0]; dest != "-" {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(facts)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	in := os.Stdin
	if src := args[0]; src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("open %s: %w", src, err)
		}
		defer f.Close()
		in = f
	}

	var facts []model.Fact
	if err := json.NewDecoder(in).Decode(&facts); err != nil {
		return fmt.Errorf("import: decode: %w", err)
	}

	imported, err := st.Import(cmd.Context(), facts)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "imported %d facts (marked dirty, will be pushed on next fact-sync tick)\n", imported)
	return nil
}
