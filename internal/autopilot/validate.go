package autopilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/talentops/autopilot/internal/agent"
	"github.com/talentops/autopilot/internal/db"
	aperrors "github.com/talentops/autopilot/internal/errors"
	"github.com/talentops/autopilot/internal/fields"
)

// preRunSnapshot captures the applicant's state before the executor ran,
// for change detection and reverts afterwards.
type preRunSnapshot struct {
	StateID   *int64
	StateName string
}

// validate re-checks everything the executor claims against the store.
// The executor's output is advisory; this is where it becomes (or fails to
// become) record state. Validation is idempotent: re-running it over the
// same records applies no further changes.
func (r *Runner) validate(ctx context.Context, id int64, pre preRunSnapshot, states stateIDs, result *agent.RunResult, emailSent bool) error {
	a, err := r.store.GetApplicant(ctx, id)
	if err != nil {
		return aperrors.Wrap(aperrors.CodeStoreUnavailable, "reload applicant", err)
	}
	if a == nil {
		return aperrors.Newf(aperrors.CodeApplicantNotFound, "applicant %d vanished during run", id)
	}
	snapshot, err := r.store.FieldSnapshot(ctx, id)
	if err != nil {
		return aperrors.Wrap(aperrors.CodeStoreUnavailable, "reload field snapshot", err)
	}
	missing := fields.MissingRequired(snapshot)
	prog := fields.Progress(snapshot)

	// The flag only goes off when the unit is genuinely done; anything
	// else is the executor overstepping.
	if !a.AutoPilot && len(missing) > 0 {
		if err := r.store.SetAutoPilotFlag(ctx, id, true); err != nil {
			return aperrors.Wrap(aperrors.CodeStoreUnavailable, "restore auto pilot flag", err)
		}
		a.AutoPilot = true
		r.audit(ctx, id, db.LogWarning, "Executor disabled auto pilot with required fields still missing; re-enabled.", nil)
		r.disp.Warn("auto pilot flag was cleared by the executor, restored")
	}

	// "Waiting for applicant" without an actual outgoing message is a lie.
	enteredWaiting := a.AutoPilotStateID != nil && *a.AutoPilotStateID == states.waiting &&
		(pre.StateID == nil || *pre.StateID != states.waiting)
	if enteredWaiting && !emailSent {
		if err := r.store.SetAutoPilotState(ctx, id, pre.StateID); err != nil {
			return aperrors.Wrap(aperrors.CodeStoreUnavailable, "revert waiting state", err)
		}
		a.AutoPilotStateID = pre.StateID
		r.audit(ctx, id, db.LogWarning, "State set to waiting without a sent message; reverted.", nil)
		r.disp.Warn("waiting state reverted: no message was sent")
	}

	if note := strings.TrimSpace(result.Assistant); note != "" {
		r.audit(ctx, id, db.LogNote, note, nil)
	}

	switch {
	case a.AutoPilotCompletedAt != nil:
		if len(missing) > 0 {
			if err := r.store.SetAutoPilotCompletedAt(ctx, id, nil); err != nil {
				return aperrors.Wrap(aperrors.CodeStoreUnavailable, "revert completion", err)
			}
			labels := strings.Join(fields.Labels(missing), ", ")
			r.audit(ctx, id, db.LogWarning,
				"Marked completed with required fields still missing: "+labels+"; reverted.",
				map[string]any{"missing": fields.Labels(missing)})
			r.disp.Warn("completion reverted, missing: " + labels)
		} else {
			r.audit(ctx, id, db.LogCompleted, "Auto pilot completed.", nil)
			r.disp.UnitCompleted(id)
		}
	case !sameStateID(a.AutoPilotStateID, pre.StateID):
		newName := "(not set)"
		if a.AutoPilotStateID != nil {
			if s, err := r.store.StateByID(ctx, *a.AutoPilotStateID); err == nil && s != nil {
				newName = s.Name
			}
		}
		oldName := pre.StateName
		if oldName == "" {
			oldName = "(not set)"
		}
		r.audit(ctx, id, db.LogStateChanged, fmt.Sprintf("State: %s → %s", oldName, newName), map[string]any{
			"old_state": oldName,
			"new_state": newName,
		})
		r.disp.Info(fmt.Sprintf("state changed: %s → %s", oldName, newName))
	default:
		r.audit(ctx, id, db.LogWarning, "No state change after executor run.", nil)
		r.disp.Warn("no state change after executor run")
	}

	// Progress is always recomputed from the field snapshot, never taken
	// from the executor.
	if prog != a.Progress {
		if err := r.store.SetProgress(ctx, id, prog); err != nil {
			return aperrors.Wrap(aperrors.CodeStoreUnavailable, "update progress", err)
		}
	}

	return nil
}

func sameStateID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
