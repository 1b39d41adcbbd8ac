package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talentops/autopilot/internal/config"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize autopilot in current directory",
		Long: `Initialize autopilot in the current directory.

Creates .autopilot/ with a default config, the run-lock directory, and
(for the sqlite dialect) a migrated database with the state catalogue
seeded.

Examples:
  autopilot init
  autopilot init --force   # overwrite existing config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			if _, err := os.Stat(config.Path()); err == nil && !force {
				return fmt.Errorf("autopilot already initialized. Use --force to reinitialize")
			}

			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				return err
			}
			if err := os.MkdirAll(config.LocksDir(), 0o755); err != nil {
				return fmt.Errorf("create locks dir: %w", err)
			}

			// Opening runs pending migrations and seeds the state catalogue.
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Println("Initialized autopilot.")
			fmt.Println("  config:", config.Path())
			fmt.Println("  store: ", cfg.DBPath())
			fmt.Println()
			fmt.Println("Next: set agent.base_url and agent.token in the config,")
			fmt.Println("then schedule 'autopilot process' (e.g. every 15 minutes).")
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "reinitialize an existing setup")

	return cmd
}
