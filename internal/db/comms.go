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

// ContextKindApplicant is the context_kind value linking a thread to an
// applicant.
const ContextKindApplicant = "applicant"

// Channel is a communication channel (email, WhatsApp, ...).
type Channel struct {
	ID       int64  `json:"comms_channel_id"`
	Name     string `json:"name"`
	Sender   string `json:"sender_identifier"`
	IsActive bool   `json:"-"`
}

// ThreadSummary summarizes one communication thread for the agent payload
// and the scenario classifier.
type ThreadSummary struct {
	ThreadID       int64      `json:"thread_id"`
	ChannelID      int64      `json:"channel_id"`
	Subject        string     `json:"subject"`
	Counterpart    string     `json:"counterpart"`
	LastInboundAt  *time.Time `json:"last_inbound_at"`
	LastOutboundAt *time.Time `json:"last_outbound_at"`
	IsLinked       bool       `json:"is_linked"`
}

// HasNewInbound reports whether any thread carries an inbound message newer
// than its last outbound one (or has never seen an outbound message).
func HasNewInbound(threads []ThreadSummary) bool {
	for _, t := range threads {
		if t.LastInboundAt == nil {
			continue
		}
		if t.LastOutboundAt == nil || t.LastInboundAt.After(*t.LastOutboundAt) {
			return true
		}
	}
	return false
}

// ThreadsForApplicant returns up to limit thread summaries linked to the
// applicant, most recent activity first.
func (d *DB) ThreadsForApplicant(ctx context.Context, applicantID int64, limit int) ([]ThreadSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.Query(ctx, `
		SELECT id, channel_id, subject, last_inbound_from, last_outbound_to,
		       last_inbound_at, last_outbound_at
		FROM comms_threads
		WHERE context_kind = ? AND context_id = ?
		ORDER BY COALESCE(last_inbound_at, last_outbound_at, updated_at) DESC
		LIMIT ?`, ContextKindApplicant, applicantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var threads []ThreadSummary
	for rows.Next() {
		var t ThreadSummary
		var subject, inFrom, outTo sql.NullString
		var inAt, outAt sql.NullString
		if err := rows.Scan(&t.ThreadID, &t.ChannelID, &subject, &inFrom, &outTo, &inAt, &outAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		t.Subject = subject.String
		// Counterpart address: whoever wrote last inbound, else outbound target.
		if inFrom.Valid && inFrom.String != "" {
			t.Counterpart = inFrom.String
		} else {
			t.Counterpart = outTo.String
		}
		t.LastInboundAt = parseTime(inAt)
		t.LastOutboundAt = parseTime(outAt)
		t.IsLinked = true
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// PreferredChannel resolves the team's configured default channel. Returns
// nil when the team has no settings, no channel, or the channel is inactive.
func (d *DB) PreferredChannel(ctx context.Context, teamID int64) (*Channel, error) {
	var c Channel
	var active int
	err := d.QueryRow(ctx, `
		SELECT ch.id, ch.name, ch.sender_identifier, ch.is_active
		FROM applicant_settings s
		JOIN comms_channels ch ON ch.id = s.preferred_channel_id
		WHERE s.team_id = ? AND ch.is_active = 1`, teamID).
		Scan(&c.ID, &c.Name, &c.Sender, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("preferred channel: %w", err)
	}
	c.IsActive = active != 0
	return &c, nil
}

// LinkRecentThreads associates unlinked threads on the channel with the
// applicant when they were created within the trailing window and their
// sender or recipient address matches one of the candidates. Returns the
// number of threads linked; zero is a normal outcome.
func (d *DB) LinkRecentThreads(ctx context.Context, channelID int64, addresses []string, window time.Duration, applicantID int64) (int, error) {
	if channelID == 0 || len(addresses) == 0 {
		return 0, nil
	}

	var match strings.Builder
	var args []any
	args = append(args, ContextKindApplicant, applicantID, channelID)
	for i, addr := range addresses {
		if i > 0 {
			match.WriteString(" OR ")
		}
		match.WriteString("last_outbound_to = ? OR last_inbound_from = ?")
		args = append(args, addr, addr)
	}
	cutoff := time.Now().UTC().Add(-window).Format(timeLayout)
	args = append(args, cutoff)

	res, err := d.Exec(ctx, `
		UPDATE comms_threads SET context_kind = ?, context_id = ?
		WHERE channel_id = ? AND context_kind IS NULL
		  AND (`+match.String()+`)
		  AND created_at >= ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("link threads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("linked thread count: %w", err)
	}
	return int(n), nil
}

// CreateChannel inserts a communication channel.
func (d *DB) CreateChannel(ctx context.Context, name, sender string, active bool) (int64, error) {
	res, err := d.Exec(ctx, "INSERT INTO comms_channels (name, sender_identifier, is_active) VALUES (?, ?, ?)",
		name, sender, boolToInt(active))
	if err != nil {
		return 0, fmt.Errorf("create channel: %w", err)
	}
	return res.LastInsertId()
}

// SetPreferredChannel stores the team's default channel.
func (d *DB) SetPreferredChannel(ctx context.Context, teamID, channelID int64) error {
	_, err := d.Exec(ctx, `INSERT INTO applicant_settings (team_id, preferred_channel_id) VALUES (?, ?)
		ON CONFLICT (team_id) DO UPDATE SET preferred_channel_id = excluded.preferred_channel_id`,
		teamID, channelID)
	if err != nil {
		return fmt.Errorf("set preferred channel: %w", err)
	}
	return nil
}

// Thread is a full communication thread row, used for seeding and tests.
type Thread struct {
	ID              int64
	ChannelID       int64
	Subject         string
	ContextKind     *string
	ContextID       *int64
	LastInboundFrom string
	LastOutboundTo  string
	LastInboundAt   *time.Time
	LastOutboundAt  *time.Time
	CreatedAt       time.Time
}

// CreateThread inserts a thread row.
func (d *DB) CreateThread(ctx context.Context, t *Thread) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := d.Exec(ctx, `INSERT INTO comms_threads
		(uuid, channel_id, subject, context_kind, context_id, last_inbound_from,
		 last_outbound_to, last_inbound_at, last_outbound_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), t.ChannelID, t.Subject, t.ContextKind, t.ContextID,
		nullIfEmpty(t.LastInboundFrom), nullIfEmpty(t.LastOutboundTo),
		formatTime(t.LastInboundAt), formatTime(t.LastOutboundAt),
		t.CreatedAt.UTC().Format(timeLayout), t.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("thread id: %w", err)
	}
	t.ID = id
	return nil
}

// GetThread loads a thread row by id. Returns nil when not found.
func (d *DB) GetThread(ctx context.Context, id int64) (*Thread, error) {
	var t Thread
	var subject, kind, inFrom, outTo sql.NullString
	var ctxID sql.NullInt64
	var inAt, outAt, createdAt sql.NullString
	err := d.QueryRow(ctx, `
		SELECT id, channel_id, subject, context_kind, context_id, last_inbound_from,
		       last_outbound_to, last_inbound_at, last_outbound_at, created_at
		FROM comms_threads WHERE id = ?`, id).
		Scan(&t.ID, &t.ChannelID, &subject, &kind, &ctxID, &inFrom, &outTo, &inAt, &outAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %d: %w", id, err)
	}
	t.Subject = subject.String
	if kind.Valid {
		t.ContextKind = &kind.String
	}
	if ctxID.Valid {
		t.ContextID = &ctxID.Int64
	}
	t.LastInboundFrom = inFrom.String
	t.LastOutboundTo = outTo.String
	t.LastInboundAt = parseTime(inAt)
	t.LastOutboundAt = parseTime(outAt)
	if ts := parseTime(createdAt); ts != nil {
		t.CreatedAt = *ts
	}
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
