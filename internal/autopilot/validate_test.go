package autopilot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentops/autopilot/internal/agent"
	"github.com/talentops/autopilot/internal/db"
)

// Validation applied twice over the same records must converge: the second
// pass may log again, but never changes record state further.
func TestValidate_Idempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	a, _ := fx.seedUnit(t)

	// Simulate an executor that claimed completion despite missing fields
	// and disabled the flag on top.
	now := time.Now().UTC()
	require.NoError(t, fx.store.SetAutoPilotFlag(ctx, a.ID, false))
	require.NoError(t, fx.store.SetAutoPilotCompletedAt(ctx, a.ID, &now))

	r := fx.runner(t, Options{})
	pre := preRunSnapshot{StateID: nil, StateName: ""}
	result := &agent.RunResult{Iterations: 1, ToolCalls: []string{ToolSendMessage}}

	require.NoError(t, r.validate(ctx, a.ID, pre, fx.states, result, true))

	first, err := fx.store.GetApplicant(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, first.AutoPilot)
	assert.Nil(t, first.AutoPilotCompletedAt)

	require.NoError(t, r.validate(ctx, a.ID, pre, fx.states, result, true))

	second, err := fx.store.GetApplicant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.AutoPilot, second.AutoPilot)
	assert.Equal(t, first.AutoPilotCompletedAt, second.AutoPilotCompletedAt)
	assert.Equal(t, first.AutoPilotStateID, second.AutoPilotStateID)
	assert.Equal(t, first.Progress, second.Progress)
}

func TestValidate_NoChangeWarns(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	a, _ := fx.seedUnit(t)

	r := fx.runner(t, Options{})
	pre := preRunSnapshot{StateID: a.AutoPilotStateID}
	result := &agent.RunResult{Iterations: 1}

	require.NoError(t, r.validate(ctx, a.ID, pre, fx.states, result, false))

	warnings, err := fx.store.QueryLogs(ctx, db.LogQueryOptions{ApplicantID: a.ID, Types: []string{db.LogWarning}})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Summary, "No state change")
}

func TestValidate_AssistantNoteIsRecorded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	a, _ := fx.seedUnit(t)

	r := fx.runner(t, Options{})
	result := &agent.RunResult{Iterations: 1, Assistant: "  Casey will reply after the weekend.  "}

	require.NoError(t, r.validate(ctx, a.ID, preRunSnapshot{}, fx.states, result, false))

	notes, err := fx.store.QueryLogs(ctx, db.LogQueryOptions{ApplicantID: a.ID, Types: []string{db.LogNote}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Casey will reply after the weekend.", notes[0].Summary)
}
