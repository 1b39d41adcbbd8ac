package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentops/autopilot/internal/agent"
	"github.com/talentops/autopilot/internal/autopilot"
	"github.com/talentops/autopilot/internal/config"
)

// newProcessCmd creates the process command
func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process the next batch of eligible applicants",
		Long: `Process eligible applicants autonomously, stalest first.

An applicant is eligible when auto pilot is enabled, it is not completed,
and it has a (human) owner. Each unit is classified:

  A  all required fields filled        close out directly
  B  no conversation yet               executor makes first contact
  C  new applicant message, or active  executor reads, extracts, replies
     state outside waiting
  D  waiting, nothing new              skip

Only one process run works at a time; a second invocation while the lock
is held exits cleanly without doing anything.

Example:
  autopilot process
  autopilot process --limit 20 --max-runtime-seconds 3600
  autopilot process --applicant-id 42 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RequireInit(); err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			maxRuntime, _ := cmd.Flags().GetInt("max-runtime-seconds")
			applicantID, _ := cmd.Flags().GetInt64("applicant-id")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			maxIterations, _ := cmd.Flags().GetInt("max-iterations")
			maxOutputTokens, _ := cmd.Flags().GetInt("max-output-tokens")
			noWebSearch, _ := cmd.Flags().GetBool("no-web-search")
			model, _ := cmd.Flags().GetString("model")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if limit == 0 {
				limit = cfg.Limit
			}
			if maxRuntime == 0 {
				maxRuntime = cfg.MaxRuntimeSeconds
			}
			if maxIterations == 0 {
				maxIterations = cfg.MaxIterations
			}
			if maxOutputTokens == 0 {
				maxOutputTokens = cfg.MaxOutputTokens
			}
			webSearch := cfg.WebSearch
			if noWebSearch {
				webSearch = false
			}
			if model == "" {
				model = cfg.ResolveModel()
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			// A signal stops the run between units, never mid-unit.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			disp := newDisplay()
			ag := agent.NewHTTPRunner(cfg.Agent.BaseURL, cfg.Agent.Token)
			if !dryRun {
				if err := ag.WaitUntilReady(ctx, 5*time.Second); err != nil {
					disp.Warn("executor service is not reachable; applicants that need it will be skipped")
				}
			}

			runner := autopilot.New(
				store,
				ag,
				newGuard(),
				disp,
				autopilot.Options{
					Limit:           limit,
					MaxRuntime:      time.Duration(maxRuntime) * time.Second,
					ApplicantID:     applicantID,
					DryRun:          dryRun,
					MaxIterations:   maxIterations,
					MaxOutputTokens: maxOutputTokens,
					WebSearch:       webSearch,
					Model:           model,
					ReasoningEffort: cfg.Agent.ReasoningEffort,
				},
			)

			_, err = runner.Run(ctx)
			return err
		},
	}

	cmd.Flags().Int("limit", 0, "max applicants per run (1-100, default from config)")
	cmd.Flags().Int("max-runtime-seconds", 0, "wall-clock budget in seconds (10-43200, default from config)")
	cmd.Flags().Int64("applicant-id", 0, "process only this applicant id")
	cmd.Flags().Bool("dry-run", false, "classify and print only, change nothing")
	cmd.Flags().Int("max-iterations", 0, "executor tool-loop budget per applicant (1-200)")
	cmd.Flags().Int("max-output-tokens", 0, "executor output budget per step (64-200000)")
	cmd.Flags().Bool("no-web-search", false, "disable the executor's web search tool")
	cmd.Flags().String("model", "", "executor model (default from config)")

	return cmd
}
