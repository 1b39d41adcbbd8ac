// Package scenario classifies an applicant's readiness for autonomous
// processing. Classification is pure and deterministic: it looks only at the
// snapshot handed to it and performs no I/O.
package scenario

// Scenario is one of the four mutually exclusive classifications.
type Scenario string

const (
	// ScenarioComplete: all required fields filled, close out directly.
	ScenarioComplete Scenario = "A"
	// ScenarioFirstContact: fields missing and no usable conversation yet.
	ScenarioFirstContact Scenario = "B"
	// ScenarioNewInfo: a conversation exists and may hold new information.
	ScenarioNewInfo Scenario = "C"
	// ScenarioStillWaiting: waiting on the applicant, nothing new.
	ScenarioStillWaiting Scenario = "D"
)

// Reason names the sub-condition that selected the scenario. Two pairs of
// distinct conditions collapse to the same scenario; the reason is kept so
// the audit log can tell them apart.
type Reason string

const (
	ReasonComplete             Reason = "complete"
	ReasonNoThread             Reason = "no_thread"
	ReasonWaitingWithoutThread Reason = "waiting_without_thread"
	ReasonNewInbound           Reason = "new_inbound"
	ReasonThreadNotWaiting     Reason = "thread_not_waiting"
	ReasonStillWaiting         Reason = "still_waiting"
)

// Input is the classification snapshot.
type Input struct {
	// MissingRequired is the number of required fields still unfilled.
	MissingRequired int
	// HasThreads reports whether any communication thread is tied to the unit.
	HasThreads bool
	// IsWaiting reports whether the unit currently holds the
	// waiting_for_applicant state.
	IsWaiting bool
	// NewInbound reports whether any thread has an inbound message newer
	// than its last outbound one.
	NewInbound bool
}

// Result is the classification outcome.
type Result struct {
	Scenario Scenario
	Reason   Reason
}

// Classify maps the snapshot to a scenario, first match wins. The table is
// total: every input resolves to exactly one scenario.
func Classify(in Input) Result {
	if in.MissingRequired == 0 {
		return Result{ScenarioComplete, ReasonComplete}
	}

	if !in.HasThreads && !in.IsWaiting {
		return Result{ScenarioFirstContact, ReasonNoThread}
	}

	// Anomalous: marked waiting but no thread exists. Treated as first
	// contact so the executor re-evaluates instead of stalling forever.
	if in.IsWaiting && !in.HasThreads {
		return Result{ScenarioFirstContact, ReasonWaitingWithoutThread}
	}

	if in.IsWaiting && in.HasThreads && in.NewInbound {
		return Result{ScenarioNewInfo, ReasonNewInbound}
	}

	// Threads exist but the unit never reached the waiting state; the
	// executor evaluates the conversation.
	if in.HasThreads && !in.IsWaiting {
		return Result{ScenarioNewInfo, ReasonThreadNotWaiting}
	}

	return Result{ScenarioStillWaiting, ReasonStillWaiting}
}
