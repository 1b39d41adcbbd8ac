// Package agent defines the boundary to the external tool-loop executor.
//
// The executor's reasoning loop is opaque to this job: the job hands over a
// role-tagged message payload plus budgets and gets back a structured run
// result. Nothing the executor claims is trusted without re-validation.
package agent

import "context"

// Message is one role-tagged instruction message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used in the instruction payload.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Auth is the authorization context the executor acts under. The actor is
// the applicant's owner; the executor impersonates this identity for the
// duration of one run. Auth is an immutable value, never a global.
type Auth struct {
	ActorID     int64  `json:"actor_id"`
	TeamID      int64  `json:"team_id,omitempty"`
	ContextKind string `json:"context_kind,omitempty"`
	ContextID   int64  `json:"context_id,omitempty"`
}

// Iteration/output budgets. The executor is never invoked outside these.
const (
	MinIterations = 1
	MaxIterations = 200

	MinOutputTokens = 64
	MaxOutputTokens = 200000
)

// Options bound a single executor invocation.
type Options struct {
	// MaxIterations caps tool-loop iterations, clamped to [1, 200].
	MaxIterations int
	// MaxOutputTokens caps output size per step, clamped to [64, 200000].
	MaxOutputTokens int
	// PreloadTools is the allow-list of tool names loaded up front.
	PreloadTools []string
	// ReasoningEffort is an optional effort hint (e.g. "medium").
	ReasoningEffort string
	// WebSearch enables the optional external-search tool.
	WebSearch bool
	// OnIteration is called after each tool-loop iteration for
	// observability. May be nil.
	OnIteration func(iteration int, toolNames []string, outputLen int)
}

// Clamped returns a copy with the budgets forced into their valid ranges.
func (o Options) Clamped() Options {
	if o.MaxIterations < MinIterations {
		o.MaxIterations = MinIterations
	}
	if o.MaxIterations > MaxIterations {
		o.MaxIterations = MaxIterations
	}
	if o.MaxOutputTokens < MinOutputTokens {
		o.MaxOutputTokens = MinOutputTokens
	}
	if o.MaxOutputTokens > MaxOutputTokens {
		o.MaxOutputTokens = MaxOutputTokens
	}
	return o
}

// RunResult is the structured outcome of one executor run.
type RunResult struct {
	// Iterations is the number of tool-loop iterations consumed.
	Iterations int
	// ToolCalls lists every tool name the executor invoked, in order.
	ToolCalls []string
	// Assistant is the executor's final free-text output, if any.
	Assistant string
}

// CalledTool reports whether the given tool name appears in the run's
// tool calls.
func (r *RunResult) CalledTool(name string) bool {
	for _, t := range r.ToolCalls {
		if t == name {
			return true
		}
	}
	return false
}

// Runner invokes the external tool-loop executor. Implementations must
// return an error rather than panic on any failure; a failed invocation
// skips the current unit, never the whole job.
type Runner interface {
	Run(ctx context.Context, messages []Message, model string, auth Auth, opts Options) (*RunResult, error)
}
