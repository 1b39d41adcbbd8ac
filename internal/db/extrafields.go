package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/talentops/autopilot/internal/fields"
)

// FieldSnapshot loads the ordered extra-field snapshot for an applicant:
// every definition visible to the applicant's team, joined with the current
// value (nil when none stored). Values are stored as JSON text.
func (d *DB) FieldSnapshot(ctx context.Context, applicantID int64) ([]fields.Field, error) {
	rows, err := d.Query(ctx, `
		SELECT f.id, f.label, f.kind, f.is_required, v.value
		FROM extra_field_defs f
		LEFT JOIN extra_field_values v ON v.field_id = f.id AND v.applicant_id = ?
		LEFT JOIN applicants a ON a.id = ?
		WHERE f.team_id IS NULL OR f.team_id = a.team_id
		ORDER BY f.position ASC, f.id ASC`, applicantID, applicantID)
	if err != nil {
		return nil, fmt.Errorf("query field snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot []fields.Field
	for rows.Next() {
		var f fields.Field
		var kind string
		var required int
		var raw sql.NullString
		if err := rows.Scan(&f.ID, &f.Label, &kind, &required, &raw); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		f.Kind = fields.Kind(kind)
		f.Required = required != 0
		if raw.Valid && raw.String != "" {
			var v any
			if err := json.Unmarshal([]byte(raw.String), &v); err == nil {
				f.Value = v
			} else {
				// Legacy plain-text values.
				f.Value = raw.String
			}
		}
		snapshot = append(snapshot, f)
	}
	return snapshot, rows.Err()
}

// CreateFieldDef inserts an extra-field definition and returns its id.
func (d *DB) CreateFieldDef(ctx context.Context, teamID *int64, label string, kind fields.Kind, required bool) (int64, error) {
	res, err := d.Exec(ctx, `INSERT INTO extra_field_defs (team_id, label, kind, is_required)
		VALUES (?, ?, ?, ?)`, teamID, label, string(kind), boolToInt(required))
	if err != nil {
		return 0, fmt.Errorf("create field def: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("field def id: %w", err)
	}
	return id, nil
}

// SetFieldValue upserts the value of a field for an applicant. A nil value
// clears the stored value.
func (d *DB) SetFieldValue(ctx context.Context, fieldID, applicantID int64, value any) error {
	var raw *string
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal field value: %w", err)
		}
		s := string(data)
		raw = &s
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err := d.Exec(ctx, `INSERT INTO extra_field_values (field_id, applicant_id, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (field_id, applicant_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		fieldID, applicantID, raw, now)
	if err != nil {
		return fmt.Errorf("set field value: %w", err)
	}
	return nil
}
