// Package autopilot implements the unattended applicant-processing job.
//
// One invocation acquires a run lock, then visits eligible applicants one at
// a time (least-recently-updated first) until the unit limit or the
// wall-clock deadline is reached. Each unit is classified into one of four
// scenarios; only the two ambiguous ones reach the external executor, and
// every side effect the executor claims is re-validated before it counts.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talentops/autopilot/internal/agent"
	"github.com/talentops/autopilot/internal/config"
	"github.com/talentops/autopilot/internal/db"
	aperrors "github.com/talentops/autopilot/internal/errors"
	"github.com/talentops/autopilot/internal/fields"
	"github.com/talentops/autopilot/internal/lock"
	"github.com/talentops/autopilot/internal/progress"
	"github.com/talentops/autopilot/internal/scenario"
)

// JobName is the lock scope name of this job.
const JobName = "process-auto-pilot"

// ThreadLinkWindow is how far back the thread linker looks for freshly
// created, unlinked threads.
const ThreadLinkWindow = 30 * time.Minute

// maxThreadSummaries bounds the thread list handed to the classifier and
// the executor.
const maxThreadSummaries = 10

// Options bounds one job invocation.
type Options struct {
	// Limit is the maximum number of units per run, clamped to [1, 100].
	Limit int
	// MaxRuntime is the wall-clock budget, clamped to [10s, 12h].
	MaxRuntime time.Duration
	// ApplicantID restricts the run to a single applicant when non-zero;
	// it also narrows the lock scope to that applicant.
	ApplicantID int64
	// DryRun classifies and prints only: no mutation, no invocation.
	DryRun bool
	// MaxIterations caps the executor's tool loop per unit.
	MaxIterations int
	// MaxOutputTokens caps the executor's output per step.
	MaxOutputTokens int
	// WebSearch enables the optional external-search tool.
	WebSearch bool
	// Model is the executor model identifier.
	Model string
	// ReasoningEffort is the optional effort hint for the executor.
	ReasoningEffort string
}

// normalized clamps all budgets and fills the model fallback.
func (o Options) normalized() Options {
	o.Limit = config.ClampLimit(o.Limit)
	runtime := int(o.MaxRuntime / time.Second)
	o.MaxRuntime = time.Duration(config.ClampRuntimeSeconds(runtime)) * time.Second
	o.MaxIterations = config.ClampIterations(o.MaxIterations)
	o.MaxOutputTokens = config.ClampOutputTokens(o.MaxOutputTokens)
	if o.Model == "" {
		o.Model = config.FallbackModel
	}
	return o
}

// Summary reports the outcome of one job invocation.
type Summary struct {
	// Processed is the number of units visited (including skipped ones).
	Processed int
	// Busy is true when another run held the lock and nothing was done.
	Busy bool
}

// stateIDs carries the pre-resolved catalogue ids the job and the executor
// need. The executor must not look these up itself.
type stateIDs struct {
	waiting   int64
	completed int64
}

// Runner orchestrates one job invocation.
type Runner struct {
	store *db.DB
	agent agent.Runner
	guard *lock.Guard
	disp  *progress.Display
	opts  Options

	// now is swappable for deadline tests.
	now func() time.Time
}

// New creates a job runner.
func New(store *db.DB, agentRunner agent.Runner, guard *lock.Guard, disp *progress.Display, opts Options) *Runner {
	return &Runner{
		store: store,
		agent: agentRunner,
		guard: guard,
		disp:  disp,
		opts:  opts.normalized(),
		now:   time.Now,
	}
}

// Run executes the job. Lock-busy is a normal outcome (Summary.Busy), not
// an error. Unit-level failures are contained; only store-level failures
// abort the invocation.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	scope := lock.ScopeKey(JobName, r.opts.ApplicantID)
	if err := r.guard.Acquire(scope, lock.TTLFor(r.opts.MaxRuntime)); err != nil {
		var busy *lock.BusyError
		if errors.As(err, &busy) {
			r.disp.LockBusy()
			return Summary{Busy: true}, nil
		}
		return Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	// Guaranteed release on every exit path.
	defer func() { _ = r.guard.Release(scope) }()

	r.disp.RunStart(r.opts.DryRun)

	states, err := r.resolveStates(ctx)
	if err != nil {
		return Summary{}, err
	}

	start := r.now()
	deadline := start.Add(r.opts.MaxRuntime)
	var seen []int64
	processed := 0

	for processed < r.opts.Limit {
		// The deadline is checked before starting a unit, never mid-unit:
		// a unit that started always finishes its validation.
		if !r.now().Before(deadline) {
			r.disp.DeadlineReached(r.opts.MaxRuntime)
			break
		}
		if ctx.Err() != nil {
			break
		}

		applicant, err := r.store.NextEligible(ctx, db.NextEligibleOptions{
			ApplicantID: r.opts.ApplicantID,
			ExcludeIDs:  seen,
		})
		if err != nil {
			return Summary{Processed: processed}, aperrors.Wrap(aperrors.CodeStoreUnavailable, "select next applicant", err)
		}
		if applicant == nil {
			break
		}

		seen = append(seen, applicant.ID)
		processed++

		if err := r.processUnit(ctx, applicant, states); err != nil {
			return Summary{Processed: processed}, err
		}
	}

	r.disp.RunComplete(processed, r.now().Sub(start))
	return Summary{Processed: processed}, nil
}

// resolveStates resolves the two meaningful catalogue ids once per run.
func (r *Runner) resolveStates(ctx context.Context) (stateIDs, error) {
	waiting, err := r.store.StateIDByCode(ctx, db.StateCodeWaiting)
	if err != nil {
		return stateIDs{}, aperrors.Wrap(aperrors.CodeStoreUnavailable, "resolve waiting state", err)
	}
	completed, err := r.store.StateIDByCode(ctx, db.StateCodeCompleted)
	if err != nil {
		return stateIDs{}, aperrors.Wrap(aperrors.CodeStoreUnavailable, "resolve completed state", err)
	}
	return stateIDs{waiting: waiting, completed: completed}, nil
}

// processUnit handles one applicant. Agent failures and invariant
// violations are contained here; only store failures propagate.
func (r *Runner) processUnit(ctx context.Context, a *db.Applicant, states stateIDs) error {
	if a.OwnerID == nil {
		r.disp.UnitSkipped(a.ID, "no owner")
		return nil
	}
	owner, err := r.store.GetUser(ctx, *a.OwnerID)
	if err != nil {
		return aperrors.Wrap(aperrors.CodeStoreUnavailable, "load owner", err)
	}
	if owner == nil {
		r.disp.UnitSkipped(a.ID, "no owner")
		return nil
	}
	if owner.IsAI {
		r.disp.UnitSkipped(a.ID, "owner is an AI user")
		return nil
	}

	uc := r.loadContext(ctx, a, owner)
	r.disp.UnitStart(a.ID, owner.Name, uc.TeamName, r.opts.Model, uc.StateName,
		len(uc.Contacts), len(uc.Fields), len(uc.Threads))

	missing := fields.MissingRequired(uc.Fields)
	cls := scenario.Classify(scenario.Input{
		MissingRequired: len(missing),
		HasThreads:      len(uc.Threads) > 0,
		IsWaiting:       uc.StateCode == db.StateCodeWaiting,
		NewInbound:      db.HasNewInbound(uc.Threads),
	})
	r.disp.Scenario(string(cls.Scenario), string(cls.Reason), len(missing))

	if r.opts.DryRun {
		return nil
	}

	r.audit(ctx, a.ID, db.LogScenario, fmt.Sprintf("Scenario %s", cls.Scenario), map[string]any{
		"missing_required": len(missing),
		"has_threads":      len(uc.Threads) > 0,
		"state":            uc.StateCode,
		"reason":           string(cls.Reason),
	})

	pre := preRunSnapshot{StateID: a.AutoPilotStateID, StateName: uc.StateName}

	switch cls.Scenario {
	case scenario.ScenarioComplete:
		return r.completeDirectly(ctx, a.ID, states)
	case scenario.ScenarioStillWaiting:
		r.audit(ctx, a.ID, db.LogSkipped, "Scenario D: waiting for applicant, nothing new.", nil)
		r.disp.UnitSkipped(a.ID, "still waiting, no action")
		return nil
	default:
		return r.runAgent(ctx, a, owner, uc, cls, pre, states)
	}
}

// completeDirectly closes out a fully filled unit without invoking the
// executor. This path stays fast and side-effect-minimal.
func (r *Runner) completeDirectly(ctx context.Context, id int64, states stateIDs) error {
	now := r.now().UTC()
	if err := r.store.SetAutoPilotState(ctx, id, &states.completed); err != nil {
		return aperrors.Wrap(aperrors.CodeStoreUnavailable, "set completed state", err)
	}
	if err := r.store.SetAutoPilotCompletedAt(ctx, id, &now); err != nil {
		return aperrors.Wrap(aperrors.CodeStoreUnavailable, "set completed timestamp", err)
	}
	if err := r.store.SetProgress(ctx, id, 100); err != nil {
		return aperrors.Wrap(aperrors.CodeStoreUnavailable, "set progress", err)
	}
	r.audit(ctx, id, db.LogCompleted, "Scenario A: all required fields filled.", nil)
	r.disp.UnitCompleted(id)
	return nil
}

// runAgent drives scenarios B and C: build the instruction payload, invoke
// the executor under budgets, then re-validate everything it claims.
func (r *Runner) runAgent(ctx context.Context, a *db.Applicant, owner *db.User, uc *unitContext, cls scenario.Result, pre preRunSnapshot, states stateIDs) error {
	email := primaryEmail(uc.Contacts)
	if email == "" {
		r.audit(ctx, a.ID, db.LogWarning, "No email address available, skipped.", nil)
		r.disp.UnitSkipped(a.ID, "no email address")
		return nil
	}

	preload := preloadTools(r.opts.WebSearch)
	messages := buildMessages(uc, states)

	r.audit(ctx, a.ID, db.LogRunStarted, fmt.Sprintf("Scenario %s: executor run", cls.Scenario), map[string]any{
		"preload_tools": preload,
	})

	var teamID int64
	if a.TeamID != nil {
		teamID = *a.TeamID
	}
	auth := agent.Auth{
		ActorID:     owner.ID,
		TeamID:      teamID,
		ContextKind: db.ContextKindApplicant,
		ContextID:   a.ID,
	}

	result, err := r.agent.Run(ctx, messages, r.opts.Model, auth, agent.Options{
		MaxIterations:   r.opts.MaxIterations,
		MaxOutputTokens: r.opts.MaxOutputTokens,
		PreloadTools:    preload,
		ReasoningEffort: r.opts.ReasoningEffort,
		WebSearch:       r.opts.WebSearch,
		OnIteration:     r.disp.Iteration,
	})
	if err != nil {
		// Invocation failure skips this unit only; it stays eligible for
		// the next scheduled run.
		r.audit(ctx, a.ID, db.LogError, "Executor failed: "+err.Error(), nil)
		r.disp.Error(err.Error())
		return nil
	}

	emailSent := result.CalledTool(ToolSendMessage)
	r.audit(ctx, a.ID, db.LogRunCompleted, fmt.Sprintf("Scenario %s: %d iterations", cls.Scenario, result.Iterations), map[string]any{
		"iterations":     result.Iterations,
		"all_tool_calls": result.ToolCalls,
		"email_sent":     emailSent,
	})
	r.disp.UnitResult(result.Iterations, result.ToolCalls, emailSent)

	// Best-effort: associate threads the executor just created.
	if uc.Channel != nil {
		linked, err := r.store.LinkRecentThreads(ctx, uc.Channel.ID, contactAddresses(uc.Contacts), ThreadLinkWindow, a.ID)
		if err == nil && linked > 0 {
			r.audit(ctx, a.ID, db.LogNote, fmt.Sprintf("%d new thread(s) linked to applicant", linked), nil)
		}
	}

	return r.validate(ctx, a.ID, pre, states, result, emailSent)
}

// audit appends an audit log entry. Logging is an explicit non-propagating
// side effect: a failed append never aborts the run.
func (r *Runner) audit(ctx context.Context, applicantID int64, logType, summary string, details map[string]any) {
	var d any
	if details != nil {
		d = details
	}
	err := r.store.AppendLog(ctx, &db.LogEntry{
		ApplicantID: applicantID,
		Type:        logType,
		Summary:     summary,
		Details:     d,
	})
	if err != nil {
		r.disp.Warn("audit log append failed: " + err.Error())
	}
}
