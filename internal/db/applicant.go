package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Applicant is the unit of work processed by the autopilot job.
type Applicant struct {
	ID                   int64      `json:"id"`
	UUID                 string     `json:"uuid"`
	TeamID               *int64     `json:"team_id"`
	OwnerID              *int64     `json:"owned_by_user_id"` // units without an owner are ineligible
	Status               string     `json:"status"`
	AutoPilot            bool       `json:"auto_pilot"`
	AutoPilotStateID     *int64     `json:"auto_pilot_state_id"`
	AutoPilotCompletedAt *time.Time `json:"auto_pilot_completed_at"`
	Progress             int        `json:"progress"`
	Notes                string     `json:"notes,omitempty"`
	AppliedAt            *time.Time `json:"applied_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

const applicantColumns = `id, uuid, team_id, owned_by_user_id, status, auto_pilot,
	auto_pilot_state_id, auto_pilot_completed_at, progress, notes, applied_at,
	created_at, updated_at`

// NextEligibleOptions narrows eligible-applicant selection.
type NextEligibleOptions struct {
	// ApplicantID restricts selection to a single applicant when non-zero.
	ApplicantID int64
	// ExcludeIDs skips applicants already visited in the current run.
	ExcludeIDs []int64
}

// NextEligible returns the next applicant with auto_pilot enabled, not yet
// completed and with an owner assigned, least-recently-updated first.
// Returns nil when no eligible applicant remains; that is not an error.
func (d *DB) NextEligible(ctx context.Context, opts NextEligibleOptions) (*Applicant, error) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT " + applicantColumns + ` FROM applicants
		WHERE auto_pilot = 1 AND auto_pilot_completed_at IS NULL AND owned_by_user_id IS NOT NULL`)

	if opts.ApplicantID > 0 {
		b.WriteString(" AND id = ?")
		args = append(args, opts.ApplicantID)
	}
	if len(opts.ExcludeIDs) > 0 {
		placeholders := make([]string, len(opts.ExcludeIDs))
		for i, id := range opts.ExcludeIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		b.WriteString(" AND id NOT IN (" + strings.Join(placeholders, ", ") + ")")
	}

	b.WriteString(" ORDER BY updated_at ASC, id ASC LIMIT 1")

	a, err := scanApplicant(d.QueryRow(ctx, b.String(), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next eligible applicant: %w", err)
	}
	return a, nil
}

// EligibleIDs returns the ids of all currently eligible applicants,
// least-recently-updated first.
func (d *DB) EligibleIDs(ctx context.Context) ([]int64, error) {
	rows, err := d.Query(ctx, `SELECT id FROM applicants
		WHERE auto_pilot = 1 AND auto_pilot_completed_at IS NULL AND owned_by_user_id IS NOT NULL
		ORDER BY updated_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query eligible ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan eligible id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEligible returns all currently eligible applicants.
func (d *DB) ListEligible(ctx context.Context) ([]Applicant, error) {
	rows, err := d.Query(ctx, "SELECT "+applicantColumns+` FROM applicants
		WHERE auto_pilot = 1 AND auto_pilot_completed_at IS NULL AND owned_by_user_id IS NOT NULL
		ORDER BY updated_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list eligible applicants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var applicants []Applicant
	for rows.Next() {
		a, err := scanApplicantRows(rows)
		if err != nil {
			return nil, err
		}
		applicants = append(applicants, *a)
	}
	return applicants, rows.Err()
}

// GetApplicant loads a single applicant by id. Returns nil when not found.
func (d *DB) GetApplicant(ctx context.Context, id int64) (*Applicant, error) {
	a, err := scanApplicant(d.QueryRow(ctx, "SELECT "+applicantColumns+" FROM applicants WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get applicant %d: %w", id, err)
	}
	return a, nil
}

// CreateApplicant inserts an applicant and returns it with its id set.
func (d *DB) CreateApplicant(ctx context.Context, a *Applicant) error {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	res, err := d.Exec(ctx, `INSERT INTO applicants
		(uuid, team_id, owned_by_user_id, status, auto_pilot, auto_pilot_state_id,
		 auto_pilot_completed_at, progress, notes, applied_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UUID, a.TeamID, a.OwnerID, a.Status, boolToInt(a.AutoPilot), a.AutoPilotStateID,
		formatTime(a.AutoPilotCompletedAt), a.Progress, a.Notes, formatTime(a.AppliedAt),
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create applicant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("applicant id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// SetAutoPilotFlag turns the auto_pilot flag on or off.
func (d *DB) SetAutoPilotFlag(ctx context.Context, id int64, on bool) error {
	return d.touchApplicant(ctx, id, "auto_pilot = ?", boolToInt(on))
}

// SetAutoPilotState sets the auto_pilot_state_id (nil clears it).
func (d *DB) SetAutoPilotState(ctx context.Context, id int64, stateID *int64) error {
	return d.touchApplicant(ctx, id, "auto_pilot_state_id = ?", stateID)
}

// SetAutoPilotCompletedAt sets or clears the completion timestamp.
func (d *DB) SetAutoPilotCompletedAt(ctx context.Context, id int64, at *time.Time) error {
	return d.touchApplicant(ctx, id, "auto_pilot_completed_at = ?", formatTime(at))
}

// SetProgress persists the recomputed progress percentage.
func (d *DB) SetProgress(ctx context.Context, id int64, progress int) error {
	return d.touchApplicant(ctx, id, "progress = ?", progress)
}

// touchApplicant updates a single column and bumps updated_at.
func (d *DB) touchApplicant(ctx context.Context, id int64, set string, value any) error {
	res, err := d.Exec(ctx,
		"UPDATE applicants SET "+set+", updated_at = ? WHERE id = ?",
		value, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("update applicant %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update applicant %d: not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row rowScanner) (*Applicant, error) {
	var a Applicant
	var teamID, ownerID, stateID sql.NullInt64
	var status, notes sql.NullString
	var completedAt, appliedAt, createdAt, updatedAt sql.NullString
	var autoPilot int

	if err := row.Scan(&a.ID, &a.UUID, &teamID, &ownerID, &status, &autoPilot,
		&stateID, &completedAt, &a.Progress, &notes, &appliedAt,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if teamID.Valid {
		a.TeamID = &teamID.Int64
	}
	if ownerID.Valid {
		a.OwnerID = &ownerID.Int64
	}
	if stateID.Valid {
		a.AutoPilotStateID = &stateID.Int64
	}
	a.Status = status.String
	a.Notes = notes.String
	a.AutoPilot = autoPilot != 0
	a.AutoPilotCompletedAt = parseTime(completedAt)
	a.AppliedAt = parseTime(appliedAt)
	if t := parseTime(createdAt); t != nil {
		a.CreatedAt = *t
	}
	if t := parseTime(updatedAt); t != nil {
		a.UpdatedAt = *t
	}
	return &a, nil
}

func scanApplicantRows(rows *sql.Rows) (*Applicant, error) {
	a, err := scanApplicant(rows)
	if err != nil {
		return nil, fmt.Errorf("scan applicant: %w", err)
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
