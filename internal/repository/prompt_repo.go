package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airfilter_hub/internal/models"
)

// ProcessedEventSQLite is the append-only audit trail of handled events.
type ProcessedEventSQLite struct {
	db *sql.DB
}

func NewProcessedEventSQLite(db *sql.DB) *ProcessedEventSQLite {
	return &ProcessedEventSQLite{db: db}
}

var _ ProcessedEventRepo = (*ProcessedEventSQLite)(nil)

const (
	insertProcessedSQL = `INSERT INTO processed_event (event_id, action, processed_at) VALUES (?, ?, ?)`
	selectProcessedSQL = `SELECT 1 FROM processed_event WHERE event_id = ? LIMIT 1`
)

func (r *ProcessedEventSQLite) Mark(ctx context.Context, eventID int64, action string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, insertProcessedSQL, eventID, action, at.UTC()); err != nil {
		return fmt.Errorf("mark event %d processed: %w", eventID, err)
	}
	return nil
}

func (r *ProcessedEventSQLite) IsProcessed(ctx context.Context, eventID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, selectProcessedSQL, eventID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check processed event %d: %w", eventID, err)
	}
	return true, nil
}

// ReminderSQLite stores deferred re-prompts. Rows are deleted on
// consumption, fired or invalidated alike.
type ReminderSQLite struct {
	db *sql.DB
}

func NewReminderSQLite(db *sql.DB) *ReminderSQLite { return &ReminderSQLite{db: db} }

var _ ReminderRepo = (*ReminderSQLite)(nil)

const (
	insertReminderSQL = `INSERT INTO reminder (event_id, due_at, kind) VALUES (?, ?, ?)`
	selectNextDueSQL  = `
		SELECT id, event_id, due_at, kind FROM reminder
		WHERE due_at <= ? ORDER BY due_at ASC LIMIT 1
	`
	deleteReminderSQL = `DELETE FROM reminder WHERE id = ?`
)

func (r *ReminderSQLite) Add(ctx context.Context, eventID int64, dueAt time.Time, kind models.ReminderKind) error {
	if _, err := r.db.ExecContext(ctx, insertReminderSQL, eventID, dueAt.UTC(), string(kind)); err != nil {
		return fmt.Errorf("add reminder for event %d: %w", eventID, err)
	}
	return nil
}

func (r *ReminderSQLite) NextDue(ctx context.Context, now time.Time) (models.Reminder, bool, error) {
	row := r.db.QueryRowContext(ctx, selectNextDueSQL, now.UTC())
	var rem models.Reminder
	if err := row.Scan(&rem.ID, &rem.EventID, &rem.DueAt, &rem.Kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reminder{}, false, nil
		}
		return models.Reminder{}, false, fmt.Errorf("select due reminder: %w", err)
	}
	rem.DueAt = rem.DueAt.UTC()
	return rem, true, nil
}

func (r *ReminderSQLite) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, deleteReminderSQL, id); err != nil {
		return fmt.Errorf("delete reminder %d: %w", id, err)
	}
	return nil
}
