package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/deal-scout/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage the opportunity ledger",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		opportunities, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		if len(opportunities) == 0 {
			fmt.Println("memory is empty")
			return nil
		}
		for i, opp := range opportunities {
			fmt.Printf("%3d  $%8.2f off  %s\n", i+1, opp.Discount, opp.Deal.URL)
		}
		return nil
	},
}

var memoryResetKeep int

var memoryResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Truncate the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Reset(cmd.Context(), memoryResetKeep); err != nil {
			return err
		}
		fmt.Printf("memory truncated to %d entries\n", memoryResetKeep)
		return nil
	},
}

var memoryExportFormat string

var memoryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		opportunities, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		switch memoryExportFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(opportunities)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(opportunities)
		default:
			return eris.Errorf("unknown export format %q", memoryExportFormat)
		}
	},
}

func init() {
	memoryResetCmd.Flags().IntVar(&memoryResetKeep, "keep", 0, "number of leading entries to keep")
	memoryExportCmd.Flags().StringVar(&memoryExportFormat, "format", "json", "output format: json or yaml")
	memoryCmd.AddCommand(memoryListCmd, memoryResetCmd, memoryExportCmd)
	rootCmd.AddCommand(memoryCmd)
}
