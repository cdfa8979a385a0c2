package service

import (
	"context"
	"errors"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
)

var errTest = errors.New("store unavailable")

// Shared in-memory fakes for the repository interfaces. Each keeps rows in
// append order and supports a single injectable error per method group.

func testLogger() *logger.Logger {
	return logger.Get(logger.ErrorLevel)
}

type fakeReadingRepo struct {
	rows      []models.Reading
	windowErr error
	nextID    int64
}

func (f *fakeReadingRepo) Append(ctx context.Context, r models.Reading) error {
	f.nextID++
	r.ID = f.nextID
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeReadingRepo) Window(ctx context.Context, ch models.Channel, n int) ([]models.Reading, error) {
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var out []models.Reading
	for i := len(f.rows) - 1; i >= 0 && len(out) < n; i-- {
		if f.rows[i].Channel == ch {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeReadingRepo) Latest(ctx context.Context, ch models.Channel) (models.Reading, bool, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].Channel == ch {
			return f.rows[i], true, nil
		}
	}
	return models.Reading{}, false, nil
}

func (f *fakeReadingRepo) RecentPM25(ctx context.Context, chs []models.Channel, n int) ([]float64, error) {
	member := make(map[models.Channel]bool, len(chs))
	for _, ch := range chs {
		member[ch] = true
	}
	var out []float64
	for i := len(f.rows) - 1; i >= 0 && len(out) < n; i-- {
		if member[f.rows[i].Channel] {
			out = append(out, f.rows[i].PM25)
		}
	}
	return out, nil
}

// fill appends n readings for one channel, oldest first, all at value.
func (f *fakeReadingRepo) fill(ch models.Channel, n int, value float64, end time.Time) {
	for i := 0; i < n; i++ {
		_ = f.Append(context.Background(), models.Reading{
			Channel:   ch,
			Timestamp: end.Add(-time.Duration(n-1-i) * time.Minute),
			PM25:      value,
		})
	}
}

type fakeBaselineRepo struct {
	values    []float64
	times     []time.Time
	latestErr error
}

func (f *fakeBaselineRepo) Append(ctx context.Context, value float64, at time.Time) error {
	f.values = append(f.values, value)
	f.times = append(f.times, at)
	return nil
}

func (f *fakeBaselineRepo) Latest(ctx context.Context) (float64, bool, error) {
	if f.latestErr != nil {
		return 0, false, f.latestErr
	}
	if len(f.values) == 0 {
		return 0, false, nil
	}
	return f.values[len(f.values)-1], true, nil
}

func (f *fakeBaselineRepo) LastValues(ctx context.Context, n int) ([]float64, error) {
	var out []float64
	for i := len(f.values) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.values[i])
	}
	return out, nil
}

type fakeDecisionRepo struct {
	automatic []models.RelayDecision
	manual    []models.RelayDecision
	latestErr error
	appendErr error
	nextID    int64
}

func (f *fakeDecisionRepo) Append(ctx context.Context, src models.DecisionSource, state models.RelayState, at time.Time) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.nextID++
	d := models.RelayDecision{ID: f.nextID, Timestamp: at, Source: src, State: state}
	if src == models.SourceManual {
		f.manual = append(f.manual, d)
	} else {
		f.automatic = append(f.automatic, d)
	}
	return d.ID, nil
}

func (f *fakeDecisionRepo) rows(src models.DecisionSource) []models.RelayDecision {
	if src == models.SourceManual {
		return f.manual
	}
	return f.automatic
}

func (f *fakeDecisionRepo) Latest(ctx context.Context, src models.DecisionSource) (models.RelayDecision, bool, error) {
	if f.latestErr != nil {
		return models.RelayDecision{}, false, f.latestErr
	}
	rows := f.rows(src)
	if len(rows) == 0 {
		return models.RelayDecision{}, false, nil
	}
	return rows[len(rows)-1], true, nil
}

func (f *fakeDecisionRepo) CurrentOnEvent(ctx context.Context) (int64, bool, error) {
	if len(f.automatic) == 0 || f.automatic[len(f.automatic)-1].State != models.RelayOn {
		return 0, false, nil
	}
	// first ON row after the last OFF row
	for i := len(f.automatic) - 1; i >= 0; i-- {
		if f.automatic[i].State == models.RelayOff {
			return f.automatic[i+1].ID, true, nil
		}
	}
	return f.automatic[0].ID, true, nil
}

func (f *fakeDecisionRepo) AnyOnSince(ctx context.Context, since time.Time) (bool, error) {
	for _, rows := range [][]models.RelayDecision{f.automatic, f.manual} {
		for _, d := range rows {
			if d.State == models.RelayOn && !d.Timestamp.Before(since) {
				return true, nil
			}
		}
	}
	return false, nil
}

type processedRow struct {
	eventID int64
	action  string
	at      time.Time
}

type fakeProcessedRepo struct {
	rows    []processedRow
	markErr error
}

func (f *fakeProcessedRepo) Mark(ctx context.Context, eventID int64, action string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.rows = append(f.rows, processedRow{eventID: eventID, action: action, at: at})
	return nil
}

func (f *fakeProcessedRepo) IsProcessed(ctx context.Context, eventID int64) (bool, error) {
	for _, r := range f.rows {
		if r.eventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProcessedRepo) actionsFor(eventID int64) []string {
	var out []string
	for _, r := range f.rows {
		if r.eventID == eventID {
			out = append(out, r.action)
		}
	}
	return out
}

type fakeReminderRepo struct {
	rows   []models.Reminder
	nextID int64
}

func (f *fakeReminderRepo) Add(ctx context.Context, eventID int64, dueAt time.Time, kind models.ReminderKind) error {
	f.nextID++
	f.rows = append(f.rows, models.Reminder{ID: f.nextID, EventID: eventID, DueAt: dueAt, Kind: kind})
	return nil
}

func (f *fakeReminderRepo) NextDue(ctx context.Context, now time.Time) (models.Reminder, bool, error) {
	var (
		best  models.Reminder
		found bool
	)
	for _, r := range f.rows {
		if r.DueAt.After(now) {
			continue
		}
		if !found || r.DueAt.Before(best.DueAt) {
			best = r
			found = true
		}
	}
	return best, found, nil
}

func (f *fakeReminderRepo) Delete(ctx context.Context, id int64) error {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeControlEventRepo struct {
	events []models.ControlEvent
}

func (f *fakeControlEventRepo) Append(ctx context.Context, e models.ControlEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeControlEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.ControlEvent, error) {
	var out []models.ControlEvent
	for _, e := range f.events {
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeControlEventRepo) typesSeen() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}
