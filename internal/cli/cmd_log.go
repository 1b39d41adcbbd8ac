package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talentops/autopilot/internal/config"
	"github.com/talentops/autopilot/internal/db"
)

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <applicant-id>",
		Short: "Show an applicant's audit trail",
		Long: `Show the audit log of one applicant, oldest first.

Example:
  autopilot log 42
  autopilot log 42 --type warning
  autopilot log 42 --limit 20 --details`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RequireInit(); err != nil {
				return err
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid applicant id %q", args[0])
			}
			logType, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			showDetails, _ := cmd.Flags().GetBool("details")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var types []string
			if logType != "" {
				types = []string{logType}
			}
			entries, err := store.QueryLogs(cmd.Context(), db.LogQueryOptions{
				ApplicantID: id,
				Types:       types,
				Limit:       limit,
			})
			if err != nil {
				return fmt.Errorf("query logs: %w", err)
			}

			if jsonOut {
				out, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(entries) == 0 {
				fmt.Println("No log entries.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %-13s %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.Summary)
				if showDetails && e.Details != nil {
					raw, err := json.MarshalIndent(e.Details, "  ", "  ")
					if err == nil {
						fmt.Printf("  %s\n", raw)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "filter by entry type (scenario, warning, completed, ...)")
	cmd.Flags().Int("limit", 0, "show at most this many entries")
	cmd.Flags().Bool("details", false, "include structured details")

	return cmd
}
