package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airfilter_hub/internal/models"
)

type DecisionSQLite struct {
	db *sql.DB
}

func NewDecisionSQLite(db *sql.DB) *DecisionSQLite { return &DecisionSQLite{db: db} }

var _ DecisionRepo = (*DecisionSQLite)(nil)

// CurrentOnEvent: first ON row after the last OFF row. If the latest state
// is OFF, MAX(id of OFF rows) is the latest row and the query matches
// nothing, so the guard is built into the SQL.
const selectCurrentOnEventSQL = `
	SELECT id FROM automatic_decision
	WHERE state = 'ON'
	  AND id > COALESCE((SELECT MAX(id) FROM automatic_decision WHERE state = 'OFF'), 0)
	ORDER BY id ASC LIMIT 1
`

const selectAnyOnSinceSQL = `
	SELECT 1 FROM (
		SELECT timestamp FROM automatic_decision WHERE state = 'ON'
		UNION ALL
		SELECT timestamp FROM manual_decision WHERE state = 'ON'
	) WHERE timestamp >= ? LIMIT 1
`

func tableFor(src models.DecisionSource) (string, error) {
	switch src {
	case models.SourceAutomatic:
		return "automatic_decision", nil
	case models.SourceManual:
		return "manual_decision", nil
	default:
		return "", fmt.Errorf("unknown decision source %q", src)
	}
}

// Append inserts one decision row and returns its id.
func (r *DecisionSQLite) Append(ctx context.Context, src models.DecisionSource, state models.RelayState, at time.Time) (int64, error) {
	table, err := tableFor(src)
	if err != nil {
		return 0, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (timestamp, state) VALUES (?, ?)`, table),
		at.UTC(), string(state))
	if err != nil {
		return 0, fmt.Errorf("insert %s decision: %w", src, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for %s decision: %w", src, err)
	}
	return id, nil
}

// Latest returns the most recent decision row for the given source.
func (r *DecisionSQLite) Latest(ctx context.Context, src models.DecisionSource) (models.RelayDecision, bool, error) {
	table, err := tableFor(src)
	if err != nil {
		return models.RelayDecision{}, false, err
	}
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, timestamp, state FROM %s ORDER BY id DESC LIMIT 1`, table))

	var d models.RelayDecision
	if err := row.Scan(&d.ID, &d.Timestamp, &d.State); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RelayDecision{}, false, nil
		}
		return models.RelayDecision{}, false, fmt.Errorf("select latest %s decision: %w", src, err)
	}
	d.Source = src
	d.Timestamp = d.Timestamp.UTC()
	return d, true, nil
}

func (r *DecisionSQLite) CurrentOnEvent(ctx context.Context) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, selectCurrentOnEventSQL).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select current on event: %w", err)
	}
	return id, true, nil
}

func (r *DecisionSQLite) AnyOnSince(ctx context.Context, since time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, selectAnyOnSinceSQL, since.UTC()).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select relay-on since %s: %w", since.Format(time.RFC3339), err)
	}
	return true, nil
}
