package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talentops/autopilot/internal/config"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List eligible applicants",
		Long: `List the applicants the next process run would visit, in order.

Example:
  autopilot list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RequireInit(); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			applicants, err := store.ListEligible(cmd.Context())
			if err != nil {
				return fmt.Errorf("list eligible applicants: %w", err)
			}

			if jsonOut {
				out, err := json.MarshalIndent(applicants, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(applicants) == 0 {
				fmt.Println("No eligible applicants.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tOWNER\tUPDATED")
			fmt.Fprintln(w, "──\t──────\t────────\t─────\t───────")

			for _, a := range applicants {
				owner := "-"
				if a.OwnerID != nil {
					if u, err := store.GetUser(cmd.Context(), *a.OwnerID); err == nil && u != nil {
						owner = u.Name
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%d%%\t%s\t%s\n",
					a.ID, a.Status, a.Progress, owner, a.UpdatedAt.Format("2006-01-02 15:04"))
			}

			w.Flush()
			return nil
		},
	}
}
