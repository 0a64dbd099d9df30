package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/internal/store"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <fixture.yaml>",
	Short: "Load company reference data into the store",
	Long: `Ingest a YAML fixture of company records into the reference store.

Each record carries the company reference, profile fields and the welfare,
history, talent and posting items that become citable facts. Loading a
company again replaces its facts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Path == "" {
			return fmt.Errorf("load needs a persistent store, set store.path in the config")
		}

		backing, closeStore, err := openBacking(cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = closeStore() }()

		n, err := store.LoadFixtureFile(cmd.Context(), backing, args[0])
		if err != nil {
			return fmt.Errorf("load fixture: %w", err)
		}

		fmt.Printf("✓ Loaded %d companies from %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
