package db

import (
	"context"
	"testing"
	"time"
)

// seedApplicant creates an eligible applicant owned by a fresh user.
func seedApplicant(t *testing.T, d *DB) *Applicant {
	t.Helper()
	ctx := context.Background()

	ownerID, err := d.CreateUser(ctx, "Dana Recruiter", "dana@example.com", false, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a := &Applicant{
		OwnerID:   &ownerID,
		Status:    "active",
		AutoPilot: true,
	}
	if err := d.CreateApplicant(ctx, a); err != nil {
		t.Fatalf("create applicant: %v", err)
	}
	return a
}

// backdate forces an applicant's updated_at for ordering tests.
func backdate(t *testing.T, d *DB, id int64, at time.Time) {
	t.Helper()
	_, err := d.Exec(context.Background(),
		"UPDATE applicants SET updated_at = ? WHERE id = ?",
		at.UTC().Format(timeLayout), id)
	if err != nil {
		t.Fatalf("backdate applicant %d: %v", id, err)
	}
}

func TestNextEligible_StalestFirst(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	newer := seedApplicant(t, d)
	older := seedApplicant(t, d)
	backdate(t, d, newer.ID, time.Now().Add(-1*time.Hour))
	backdate(t, d, older.ID, time.Now().Add(-48*time.Hour))

	got, err := d.NextEligible(ctx, NextEligibleOptions{})
	if err != nil {
		t.Fatalf("NextEligible: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("NextEligible = %+v, want applicant %d", got, older.ID)
	}
}

func TestNextEligible_Exclusion(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	first := seedApplicant(t, d)
	second := seedApplicant(t, d)
	backdate(t, d, first.ID, time.Now().Add(-2*time.Hour))
	backdate(t, d, second.ID, time.Now().Add(-1*time.Hour))

	got, err := d.NextEligible(ctx, NextEligibleOptions{ExcludeIDs: []int64{first.ID}})
	if err != nil {
		t.Fatalf("NextEligible: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("NextEligible = %+v, want applicant %d", got, second.ID)
	}

	got, err = d.NextEligible(ctx, NextEligibleOptions{ExcludeIDs: []int64{first.ID, second.ID}})
	if err != nil {
		t.Fatalf("NextEligible: %v", err)
	}
	if got != nil {
		t.Fatalf("NextEligible = %+v, want nil when all excluded", got)
	}
}

func TestNextEligible_Filters(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	// Disabled auto pilot.
	off := seedApplicant(t, d)
	if err := d.SetAutoPilotFlag(ctx, off.ID, false); err != nil {
		t.Fatalf("SetAutoPilotFlag: %v", err)
	}

	// Already completed.
	done := seedApplicant(t, d)
	now := time.Now().UTC()
	if err := d.SetAutoPilotCompletedAt(ctx, done.ID, &now); err != nil {
		t.Fatalf("SetAutoPilotCompletedAt: %v", err)
	}

	// No owner.
	orphan := &Applicant{Status: "active", AutoPilot: true}
	if err := d.CreateApplicant(ctx, orphan); err != nil {
		t.Fatalf("create applicant: %v", err)
	}

	got, err := d.NextEligible(ctx, NextEligibleOptions{})
	if err != nil {
		t.Fatalf("NextEligible: %v", err)
	}
	if got != nil {
		t.Fatalf("NextEligible = %+v, want nil (none eligible)", got)
	}
}

func TestNextEligible_SingleApplicant(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)
	b := seedApplicant(t, d)
	backdate(t, d, b.ID, time.Now().Add(-72*time.Hour))

	got, err := d.NextEligible(ctx, NextEligibleOptions{ApplicantID: a.ID})
	if err != nil {
		t.Fatalf("NextEligible: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("NextEligible = %+v, want applicant %d", got, a.ID)
	}
}

func TestTouchBumpsUpdatedAt(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)
	backdate(t, d, a.ID, time.Now().Add(-24*time.Hour))

	if err := d.SetProgress(ctx, a.ID, 50); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}

	got, err := d.GetApplicant(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetApplicant: %v", err)
	}
	if got.Progress != 50 {
		t.Errorf("Progress = %d, want 50", got.Progress)
	}
	if time.Since(got.UpdatedAt) > time.Minute {
		t.Errorf("updated_at was not bumped: %v", got.UpdatedAt)
	}
}

func TestSetAutoPilotState(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)
	waiting, err := d.StateIDByCode(ctx, StateCodeWaiting)
	if err != nil {
		t.Fatalf("StateIDByCode: %v", err)
	}

	if err := d.SetAutoPilotState(ctx, a.ID, &waiting); err != nil {
		t.Fatalf("SetAutoPilotState: %v", err)
	}
	got, err := d.GetApplicant(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetApplicant: %v", err)
	}
	if got.AutoPilotStateID == nil || *got.AutoPilotStateID != waiting {
		t.Fatalf("AutoPilotStateID = %v, want %d", got.AutoPilotStateID, waiting)
	}

	// Clearing back to NULL.
	if err := d.SetAutoPilotState(ctx, a.ID, nil); err != nil {
		t.Fatalf("SetAutoPilotState(nil): %v", err)
	}
	got, err = d.GetApplicant(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetApplicant: %v", err)
	}
	if got.AutoPilotStateID != nil {
		t.Fatalf("AutoPilotStateID = %v, want nil", got.AutoPilotStateID)
	}
}
