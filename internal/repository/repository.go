package repository

import (
	"context"
	"database/sql"
	"time"

	"airfilter_hub/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// ReadingRepo is the append-only sample store. Window and RecentPM25 return
// newest-first, per the last-row-wins ordering contract.
type ReadingRepo interface {
	Append(ctx context.Context, r models.Reading) error
	Window(ctx context.Context, ch models.Channel, n int) ([]models.Reading, error)
	Latest(ctx context.Context, ch models.Channel) (models.Reading, bool, error)
	RecentPM25(ctx context.Context, chs []models.Channel, n int) ([]float64, error)
}

type BaselineRepo interface {
	Append(ctx context.Context, value float64, at time.Time) error
	Latest(ctx context.Context) (float64, bool, error)
	LastValues(ctx context.Context, n int) ([]float64, error)
}

// DecisionRepo covers both decision audit logs; Source picks the table.
type DecisionRepo interface {
	Append(ctx context.Context, src models.DecisionSource, state models.RelayState, at time.Time) (int64, error)
	Latest(ctx context.Context, src models.DecisionSource) (models.RelayDecision, bool, error)
	// CurrentOnEvent returns the id of the automatic row that began the
	// current ON run, if the latest automatic state is ON.
	CurrentOnEvent(ctx context.Context) (int64, bool, error)
	// AnyOnSince reports whether any relay-on decision (either source)
	// exists at or after the given instant.
	AnyOnSince(ctx context.Context, since time.Time) (bool, error)
}

type ProcessedEventRepo interface {
	Mark(ctx context.Context, eventID int64, action string, at time.Time) error
	IsProcessed(ctx context.Context, eventID int64) (bool, error)
}

type ReminderRepo interface {
	Add(ctx context.Context, eventID int64, dueAt time.Time, kind models.ReminderKind) error
	// NextDue returns the earliest reminder with due_at <= now, if any.
	NextDue(ctx context.Context, now time.Time) (models.Reminder, bool, error)
	Delete(ctx context.Context, id int64) error
}

type ControlEventRepo interface {
	Append(ctx context.Context, e models.ControlEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControlEvent, error)
}

type Repository struct {
	Readings        ReadingRepo
	Baselines       BaselineRepo
	Decisions       DecisionRepo
	ProcessedEvents ProcessedEventRepo
	Reminders       ReminderRepo
	ControlEvents   ControlEventRepo
	Auth            Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Readings:        NewReadingSQLite(db),
		Baselines:       NewBaselineSQLite(db),
		Decisions:       NewDecisionSQLite(db),
		ProcessedEvents: NewProcessedEventSQLite(db),
		Reminders:       NewReminderSQLite(db),
		ControlEvents:   NewControlEventSQLite(db),
		Auth:            NewUserRepository(db),
	}
}
