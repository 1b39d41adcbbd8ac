package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Audit log entry types. Entries are append-only: this subsystem never
// mutates or deletes them.
const (
	LogScenario     = "scenario"
	LogRunStarted   = "run_started"
	LogRunCompleted = "run_completed"
	LogStateChanged = "state_changed"
	LogCompleted    = "completed"
	LogSkipped      = "skipped"
	LogWarning      = "warning"
	LogError        = "error"
	LogNote         = "note"
)

// LogEntry is one immutable audit log record for an applicant.
type LogEntry struct {
	ID          int64     `json:"id"`
	ApplicantID int64     `json:"applicant_id"`
	Type        string    `json:"type"`
	Summary     string    `json:"summary"`
	Details     any       `json:"details,omitempty"` // marshaled to JSON TEXT
	CreatedAt   time.Time `json:"created_at"`
}

// AppendLog inserts an audit log entry and sets its id.
func (d *DB) AppendLog(ctx context.Context, e *LogEntry) error {
	var detailsJSON *string
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal log details: %w", err)
		}
		s := string(raw)
		detailsJSON = &s
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := d.Exec(ctx, `INSERT INTO auto_pilot_logs (applicant_id, type, summary, details, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ApplicantID, e.Type, e.Summary, detailsJSON, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("log id: %w", err)
	}
	e.ID = id
	return nil
}

// LogQueryOptions filters audit log queries.
type LogQueryOptions struct {
	ApplicantID int64
	Types       []string
	Limit       int
}

// QueryLogs returns audit entries for an applicant, oldest first.
func (d *DB) QueryLogs(ctx context.Context, opts LogQueryOptions) ([]LogEntry, error) {
	var b strings.Builder
	var args []any

	b.WriteString(`SELECT id, applicant_id, type, summary, details, created_at
		FROM auto_pilot_logs WHERE applicant_id = ?`)
	args = append(args, opts.ApplicantID)

	if len(opts.Types) > 0 {
		placeholders := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		b.WriteString(" AND type IN (" + strings.Join(placeholders, ", ") + ")")
	}

	b.WriteString(" ORDER BY created_at ASC, id ASC")
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := d.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var details sql.NullString
		var createdAt sql.NullString
		if err := rows.Scan(&e.ID, &e.ApplicantID, &e.Type, &e.Summary, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if details.Valid && details.String != "" {
			var data any
			if err := json.Unmarshal([]byte(details.String), &data); err == nil {
				e.Details = data
			} else {
				e.Details = details.String
			}
		}
		if t := parseTime(createdAt); t != nil {
			e.CreatedAt = *t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountLogs returns the number of audit entries of a given type for an
// applicant. Empty type counts all entries.
func (d *DB) CountLogs(ctx context.Context, applicantID int64, logType string) (int, error) {
	query := "SELECT COUNT(*) FROM auto_pilot_logs WHERE applicant_id = ?"
	args := []any{applicantID}
	if logType != "" {
		query += " AND type = ?"
		args = append(args, logType)
	}
	var n int
	if err := d.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}
