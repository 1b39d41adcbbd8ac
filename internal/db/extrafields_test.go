package db

import (
	"context"
	"testing"

	"github.com/talentops/autopilot/internal/fields"
)

func TestFieldSnapshot(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)

	salary, err := d.CreateFieldDef(ctx, nil, "Salary expectation", fields.KindNumber, true)
	if err != nil {
		t.Fatalf("CreateFieldDef: %v", err)
	}
	start, err := d.CreateFieldDef(ctx, nil, "Earliest start", fields.KindDate, true)
	if err != nil {
		t.Fatalf("CreateFieldDef: %v", err)
	}
	if _, err := d.CreateFieldDef(ctx, nil, "Remarks", fields.KindText, false); err != nil {
		t.Fatalf("CreateFieldDef: %v", err)
	}

	if err := d.SetFieldValue(ctx, salary, a.ID, "65000"); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}

	snapshot, err := d.FieldSnapshot(ctx, a.ID)
	if err != nil {
		t.Fatalf("FieldSnapshot: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("snapshot has %d fields, want 3", len(snapshot))
	}

	missing := fields.MissingRequired(snapshot)
	if len(missing) != 1 || missing[0].ID != start {
		t.Fatalf("missing = %+v, want exactly the start date", missing)
	}
	if got := fields.Progress(snapshot); got != 50 {
		t.Errorf("Progress = %d, want 50", got)
	}
}

func TestFieldSnapshot_ValueUpsert(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)
	def, err := d.CreateFieldDef(ctx, nil, "Earliest start", fields.KindDate, true)
	if err != nil {
		t.Fatalf("CreateFieldDef: %v", err)
	}

	if err := d.SetFieldValue(ctx, def, a.ID, "2026-10-01"); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	if err := d.SetFieldValue(ctx, def, a.ID, "2026-11-01"); err != nil {
		t.Fatalf("SetFieldValue (second): %v", err)
	}

	snapshot, err := d.FieldSnapshot(ctx, a.ID)
	if err != nil {
		t.Fatalf("FieldSnapshot: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("snapshot has %d fields, want 1", len(snapshot))
	}
	if snapshot[0].Value != "2026-11-01" {
		t.Errorf("Value = %v, want the updated date", snapshot[0].Value)
	}
}

func TestFieldSnapshot_MultiSelect(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)
	def, err := d.CreateFieldDef(ctx, nil, "Languages", fields.KindMultiSelect, true)
	if err != nil {
		t.Fatalf("CreateFieldDef: %v", err)
	}
	if err := d.SetFieldValue(ctx, def, a.ID, []string{"de", "en"}); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}

	snapshot, err := d.FieldSnapshot(ctx, a.ID)
	if err != nil {
		t.Fatalf("FieldSnapshot: %v", err)
	}
	if !snapshot[0].Filled() {
		t.Errorf("multi select with values should be filled: %+v", snapshot[0])
	}
	if got := fields.Progress(snapshot); got != 100 {
		t.Errorf("Progress = %d, want 100", got)
	}
}

func TestContactsForApplicant(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	a := seedApplicant(t, d)
	_, err := d.CreateContact(ctx, a.ID, "Casey Applicant",
		[]ContactEmail{{Address: "casey@example.com", IsPrimary: true}, {Address: "c.alt@example.com"}},
		[]ContactPhone{{Number: "+49 170 1234567", IsPrimary: true}})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	contacts, err := d.ContactsForApplicant(ctx, a.ID)
	if err != nil {
		t.Fatalf("ContactsForApplicant: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("contacts = %d, want 1", len(contacts))
	}
	c := contacts[0]
	if c.FullName != "Casey Applicant" || len(c.Emails) != 2 || len(c.Phones) != 1 {
		t.Errorf("unexpected contact %+v", c)
	}
}
