package db

import (
	"context"
	"testing"
)

func TestStateCatalogueSeeded(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	for _, code := range []string{"new", "contact_check", "data_collection",
		StateCodeWaiting, "review_needed", StateCodeCompleted} {
		id, err := d.StateIDByCode(ctx, code)
		if err != nil {
			t.Errorf("StateIDByCode(%q): %v", code, err)
			continue
		}
		state, err := d.StateByID(ctx, id)
		if err != nil {
			t.Errorf("StateByID(%d): %v", id, err)
			continue
		}
		if state == nil || state.Code != code {
			t.Errorf("StateByID(%d) = %+v, want code %q", id, state, code)
		}
	}
}

func TestStateIDByCode_Unknown(t *testing.T) {
	d := NewTestDB(t)

	if _, err := d.StateIDByCode(context.Background(), "no_such_state"); err == nil {
		t.Fatal("expected error for unknown state code")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d := NewTestDB(t)

	// Rerunning migrations must not duplicate the seeded catalogue.
	if err := d.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	states, err := d.ListStates(context.Background())
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	codes := map[string]int{}
	for _, s := range states {
		codes[s.Code]++
	}
	for code, n := range codes {
		if n != 1 {
			t.Errorf("state %q seeded %d times", code, n)
		}
	}
}
