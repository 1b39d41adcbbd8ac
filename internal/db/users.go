package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User is a platform user; applicants are owned by the HR person the agent
// acts on behalf of.
type User struct {
	ID     int64
	Name   string
	Email  string
	IsAI   bool
	TeamID *int64
}

// GetUser loads a user by id. Returns nil when not found.
func (d *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	var isAI int
	var teamID sql.NullInt64
	err := d.QueryRow(ctx, "SELECT id, name, email, is_ai, team_id FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &isAI, &teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	u.IsAI = isAI != 0
	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}
	return &u, nil
}

// CreateUser inserts a user and returns its id.
func (d *DB) CreateUser(ctx context.Context, name, email string, isAI bool, teamID *int64) (int64, error) {
	res, err := d.Exec(ctx, "INSERT INTO users (name, email, is_ai, team_id) VALUES (?, ?, ?, ?)",
		name, email, boolToInt(isAI), teamID)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// Team is a tenant grouping applicants, users and settings.
type Team struct {
	ID   int64
	Name string
}

// GetTeam loads a team by id. Returns nil when not found.
func (d *DB) GetTeam(ctx context.Context, id int64) (*Team, error) {
	var t Team
	err := d.QueryRow(ctx, "SELECT id, name FROM teams WHERE id = ?", id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team %d: %w", id, err)
	}
	return &t, nil
}

// CreateTeam inserts a team and returns its id.
func (d *DB) CreateTeam(ctx context.Context, name string) (int64, error) {
	res, err := d.Exec(ctx, "INSERT INTO teams (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create team: %w", err)
	}
	return res.LastInsertId()
}
