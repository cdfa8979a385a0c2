package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"airfilter_hub/internal/models"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

const (
	insertReadingSQL = `
		INSERT INTO readings (channel, timestamp, pm25, temperature, humidity, wifi_strength)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectWindowSQL = `
		SELECT id, channel, timestamp, pm25, temperature, humidity, wifi_strength
		FROM readings WHERE channel = ? ORDER BY id DESC LIMIT ?
	`

	selectLatestReadingSQL = `
		SELECT id, channel, timestamp, pm25, temperature, humidity, wifi_strength
		FROM readings WHERE channel = ? ORDER BY id DESC LIMIT 1
	`
)

// Append inserts one sample. OccurredAt zero is set to now; all times UTC.
func (r *ReadingSQLite) Append(ctx context.Context, rd models.Reading) error {
	ts := rd.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		string(rd.Channel), ts, rd.PM25, rd.Temperature, rd.Humidity, rd.WifiStrength)
	if err != nil {
		return fmt.Errorf("insert reading for %s: %w", rd.Channel, err)
	}
	return nil
}

// Window returns up to n most recent samples for a channel, newest first.
func (r *ReadingSQLite) Window(ctx context.Context, ch models.Channel, n int) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, selectWindowSQL, string(ch), n)
	if err != nil {
		return nil, fmt.Errorf("select window for %s: %w", ch, err)
	}
	defer rows.Close()

	out := make([]models.Reading, 0, n)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent sample for a channel.
func (r *ReadingSQLite) Latest(ctx context.Context, ch models.Channel) (models.Reading, bool, error) {
	row := r.db.QueryRowContext(ctx, selectLatestReadingSQL, string(ch))
	var rd models.Reading
	var temp, hum, wifi sql.NullFloat64
	err := row.Scan(&rd.ID, &rd.Channel, &rd.Timestamp, &rd.PM25, &temp, &hum, &wifi)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reading{}, false, nil
		}
		return models.Reading{}, false, fmt.Errorf("select latest reading for %s: %w", ch, err)
	}
	rd.Temperature, rd.Humidity, rd.WifiStrength = temp.Float64, hum.Float64, wifi.Float64
	rd.Timestamp = rd.Timestamp.UTC()
	return rd, true, nil
}

// RecentPM25 returns the n most recent pm25 values across the given
// channels, newest first. NULL pm25 rows are excluded by the schema.
func (r *ReadingSQLite) RecentPM25(ctx context.Context, chs []models.Channel, n int) ([]float64, error) {
	if len(chs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(chs)), ",")
	q := fmt.Sprintf(
		`SELECT pm25 FROM readings WHERE channel IN (%s) ORDER BY id DESC LIMIT ?`,
		placeholders,
	)

	args := make([]any, 0, len(chs)+1)
	for _, ch := range chs {
		args = append(args, string(ch))
	}
	args = append(args, n)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select recent pm25: %w", err)
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

func scanReading(rows *sql.Rows) (models.Reading, error) {
	var rd models.Reading
	var temp, hum, wifi sql.NullFloat64
	if err := rows.Scan(&rd.ID, &rd.Channel, &rd.Timestamp, &rd.PM25, &temp, &hum, &wifi); err != nil {
		return models.Reading{}, err
	}
	rd.Temperature, rd.Humidity, rd.WifiStrength = temp.Float64, hum.Float64, wifi.Float64
	rd.Timestamp = rd.Timestamp.UTC()
	return rd, nil
}
