package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type BaselineSQLite struct {
	db *sql.DB
}

func NewBaselineSQLite(db *sql.DB) *BaselineSQLite { return &BaselineSQLite{db: db} }

var _ BaselineRepo = (*BaselineSQLite)(nil)

const (
	insertBaselineSQL       = `INSERT INTO baseline (timestamp, value) VALUES (?, ?)`
	selectLatestBaselineSQL = `SELECT value FROM baseline ORDER BY id DESC LIMIT 1`
	selectLastBaselinesSQL  = `SELECT value FROM baseline ORDER BY id DESC LIMIT ?`
)

func (r *BaselineSQLite) Append(ctx context.Context, value float64, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, insertBaselineSQL, at.UTC(), value); err != nil {
		return fmt.Errorf("insert baseline: %w", err)
	}
	return nil
}

// Latest returns the authoritative baseline value (latest row).
func (r *BaselineSQLite) Latest(ctx context.Context) (float64, bool, error) {
	var v float64
	err := r.db.QueryRowContext(ctx, selectLatestBaselineSQL).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select latest baseline: %w", err)
	}
	return v, true, nil
}

// LastValues returns up to n most recent baseline values, newest first.
func (r *BaselineSQLite) LastValues(ctx context.Context, n int) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, selectLastBaselinesSQL, n)
	if err != nil {
		return nil, fmt.Errorf("select last baselines: %w", err)
	}
	defer rows.Close()

	out := make([]float64, 0, n)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
