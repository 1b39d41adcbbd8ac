package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Codes of the two auto-pilot states the job itself reasons about.
// The rest of the catalogue only matters to the executor and the UI.
const (
	StateCodeWaiting   = "waiting_for_applicant"
	StateCodeCompleted = "completed"
)

// AutoPilotState is one entry of the (mostly global) state catalogue.
type AutoPilotState struct {
	ID          int64
	UUID        string
	Code        string
	Name        string
	Description string
	IsActive    bool
	TeamID      *int64
}

// StateIDByCode resolves a global (team_id NULL) state id by code.
func (d *DB) StateIDByCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := d.QueryRow(ctx,
		"SELECT id FROM auto_pilot_states WHERE code = ? AND team_id IS NULL", code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("auto pilot state %q not seeded", code)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve state %q: %w", code, err)
	}
	return id, nil
}

// StateByID loads a state catalogue entry. Returns nil when not found.
func (d *DB) StateByID(ctx context.Context, id int64) (*AutoPilotState, error) {
	s, err := scanState(d.QueryRow(ctx,
		`SELECT id, uuid, code, name, description, is_active, team_id
		 FROM auto_pilot_states WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state %d: %w", id, err)
	}
	return s, nil
}

// ListStates returns the active state catalogue, global entries first.
func (d *DB) ListStates(ctx context.Context) ([]AutoPilotState, error) {
	rows, err := d.Query(ctx,
		`SELECT id, uuid, code, name, description, is_active, team_id
		 FROM auto_pilot_states WHERE is_active = 1
		 ORDER BY team_id IS NOT NULL, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []AutoPilotState
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, *s)
	}
	return states, rows.Err()
}

func scanState(row rowScanner) (*AutoPilotState, error) {
	var s AutoPilotState
	var desc sql.NullString
	var teamID sql.NullInt64
	var active int
	if err := row.Scan(&s.ID, &s.UUID, &s.Code, &s.Name, &desc, &active, &teamID); err != nil {
		return nil, err
	}
	s.Description = desc.String
	s.IsActive = active != 0
	if teamID.Valid {
		s.TeamID = &teamID.Int64
	}
	return &s, nil
}
