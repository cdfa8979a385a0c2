package service

import (
	"context"
	"time"

	"airfilter_hub/internal/models"
	"airfilter_hub/internal/repository"
)

// ReminderScheduler is a pure data layer over the reminder store. It has no
// thread of control of its own; the reconciler polls it once per cycle.
type ReminderScheduler struct {
	repo repository.ReminderRepo
	cfg  Config
}

func NewReminderScheduler(repo repository.ReminderRepo, cfg Config) *ReminderScheduler {
	return &ReminderScheduler{repo: repo, cfg: cfg}
}

// Schedule persists a deferred re-prompt for the event.
func (s *ReminderScheduler) Schedule(ctx context.Context, eventID int64, kind models.ReminderKind) error {
	delay := s.cfg.ShortDelay
	if kind == models.ReminderLong {
		delay = s.cfg.LongDelay
	}
	return s.repo.Add(ctx, eventID, time.Now().UTC().Add(delay), kind)
}

// PollDue returns the single earliest reminder whose due time has passed.
func (s *ReminderScheduler) PollDue(ctx context.Context, now time.Time) (models.Reminder, bool, error) {
	return s.repo.NextDue(ctx, now)
}

// Cancel consumes a reminder, fired or invalidated alike.
func (s *ReminderScheduler) Cancel(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
