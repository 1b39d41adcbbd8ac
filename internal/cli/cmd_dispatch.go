package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentops/autopilot/internal/agent"
	"github.com/talentops/autopilot/internal/autopilot"
	"github.com/talentops/autopilot/internal/config"
)

// newDispatchCmd creates the dispatch command
func newDispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch [applicant-id]...",
		Short: "Process specific applicants immediately",
		Long: `Process the given applicants right now, one at a time.

Unlike process, dispatch ignores the eligibility ordering: each named
applicant gets its own single-unit run under a lock scoped to that
applicant, so dispatches for different applicants can run side by side.
With no arguments, every currently eligible applicant is dispatched.

Example:
  autopilot dispatch 42
  autopilot dispatch 42 57 --model gpt-5.2
  autopilot dispatch`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RequireInit(); err != nil {
				return err
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			model, _ := cmd.Flags().GetString("model")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.ResolveModel()
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			disp := newDisplay()

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid applicant id %q", arg)
				}
				ids = append(ids, id)
			}
			if len(ids) == 0 {
				ids, err = store.EligibleIDs(ctx)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					disp.Info("No eligible applicants.")
					return nil
				}
			}
			for _, id := range ids {
				if ctx.Err() != nil {
					break
				}
				runner := autopilot.New(
					store,
					agent.NewHTTPRunner(cfg.Agent.BaseURL, cfg.Agent.Token),
					newGuard(),
					disp,
					autopilot.Options{
						Limit:           1,
						MaxRuntime:      time.Duration(cfg.MaxRuntimeSeconds) * time.Second,
						ApplicantID:     id,
						DryRun:          dryRun,
						MaxIterations:   cfg.MaxIterations,
						MaxOutputTokens: cfg.MaxOutputTokens,
						WebSearch:       cfg.WebSearch,
						Model:           model,
						ReasoningEffort: cfg.Agent.ReasoningEffort,
					},
				)
				summary, err := runner.Run(ctx)
				if err != nil {
					return fmt.Errorf("applicant %d: %w", id, err)
				}
				if summary.Processed == 0 && !summary.Busy {
					disp.Warn(fmt.Sprintf("applicant %d is not eligible", id))
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "classify and print only, change nothing")
	cmd.Flags().String("model", "", "executor model (default from config)")

	return cmd
}
