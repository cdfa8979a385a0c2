package service

import (
	"context"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/mqtt"
	"airfilter_hub/internal/repository"
)

// Config carries every tunable of the decision/reconciliation core so the
// same code serves both study deployments (no copy-pasted variants).
type Config struct {
	// Channels monitored by the decision engine, in fixed evaluation order.
	Channels []models.Channel
	// BaselineChannels feed the baseline estimator.
	BaselineChannels []models.Channel

	WindowSize    int           // readings per hysteresis window
	MaxReadingAge time.Duration // readings older than this never trigger a transition
	RisingFactor  float64       // OFF->ON threshold multiplier over baseline

	BaselineFloor   float64       // minimum plausible baseline
	SpikeFactor     float64       // history multiplier in the clamp inequality
	BaselineSamples int           // readings averaged into a candidate
	BaselineHistory int           // prior baselines averaged for the clamp
	QuietPeriod     time.Duration // no estimation while the relay ran recently

	ShortDelay time.Duration // "remind me in 20 minutes"
	LongDelay  time.Duration // "remind me in an hour"

	// SensorTopics maps MQTT topics to reading channels for ingest.
	SensorTopics map[string]models.Channel

	SigningKey string // JWT signing key
}

// DefaultConfig mirrors the deployed constants.
func DefaultConfig() Config {
	return Config{
		Channels:         models.OutdoorChannels(),
		BaselineChannels: models.OutdoorChannels(),
		WindowSize:       20,
		MaxReadingAge:    time.Hour,
		RisingFactor:     1.25,
		BaselineFloor:    7.5,
		SpikeFactor:      1.5,
		BaselineSamples:  60,
		BaselineHistory:  5,
		QuietPeriod:      time.Hour,
		ShortDelay:       20 * time.Minute,
		LongDelay:        time.Hour,
	}
}

// Bounds for one loop cycle's store work. A stalled query must fail the
// cycle, not eat into the next period.
const (
	minCycleTimeout = time.Second
	maxCycleTimeout = 10 * time.Second
)

// cycleTimeout derives the per-cycle store deadline from the loop period:
// half the tick, clamped to [minCycleTimeout, maxCycleTimeout].
func cycleTimeout(tick time.Duration) time.Duration {
	d := tick / 2
	if d < minCycleTimeout {
		return minCycleTimeout
	}
	if d > maxCycleTimeout {
		return maxCycleTimeout
	}
	return d
}

// Estimator recomputes the slow-moving reference particulate level.
type Estimator interface {
	Recompute(ctx context.Context) error
	Run(ctx context.Context, interval time.Duration)
}

// Engine applies rolling-window hysteresis to the monitored channels and
// records an automatic relay decision each cycle.
type Engine interface {
	EvaluateCycle(ctx context.Context) error
	Run(ctx context.Context, tick time.Duration)
}

// Reconciler merges the automatic recommendation, the manual decision and
// pending reminders into one authoritative relay state, and drives the
// user-prompt workflow.
type Reconciler interface {
	Tick(ctx context.Context) error
	Run(ctx context.Context, tick time.Duration)

	Accept(ctx context.Context) error
	Decline(ctx context.Context) error
	DeferShort(ctx context.Context) error
	DeferLong(ctx context.Context) error
	ConfirmDecline(ctx context.Context) error
	ReverseDecline(ctx context.Context) error
	CloseCaution(ctx context.Context)
	CloseReminderNotice(ctx context.Context)

	Prompts() models.PromptFlags
	// Authoritative returns the derived relay state; known=false means a
	// store read failed and the caller must treat the state as unknown.
	Authoritative(ctx context.Context) (state models.RelayState, known bool)
}

// Relay publishes the authoritative command token to the actuator topic.
type Relay interface {
	Run(ctx context.Context, tick time.Duration)
}

// Monitoring exposes the read-only dashboard views.
type Monitoring interface {
	Snapshot(ctx context.Context) (models.DashboardSnapshot, error)
	Window(ctx context.Context, ch models.Channel, n int) ([]models.Reading, error)
}

// EventLog exposes the controller audit log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error)
}

// Ingest decodes sensor bus messages into reading rows.
type Ingest interface {
	HandleMessage(ctx context.Context, topic string, payload []byte)
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Service aggregates all sub-services.
type Service struct {
	Estimator
	Engine
	Reconciler
	Relay
	Monitoring
	EventLog
	Ingest
	Authorization
}

// NewService wires the repository layer, the MQTT relay publisher and the
// control configuration into concrete services.
func NewService(repos *repository.Repository, pub mqtt.RelayPublisher, cfg Config, log *logger.Logger) *Service {
	scheduler := NewReminderScheduler(repos.Reminders, cfg)
	reconciler := NewReconcilerService(repos.Decisions, repos.ProcessedEvents, scheduler, repos.ControlEvents, cfg, log)

	return &Service{
		Estimator:     NewBaselineService(repos.Readings, repos.Baselines, repos.Decisions, repos.ControlEvents, cfg, log),
		Engine:        NewEngineService(repos.Readings, repos.Baselines, repos.Decisions, repos.ControlEvents, cfg, log),
		Reconciler:    reconciler,
		Relay:         NewRelayService(repos.Decisions, repos.ControlEvents, pub, log),
		Monitoring:    NewMonitoringService(repos.Readings, repos.Baselines, repos.Decisions, reconciler, cfg),
		EventLog:      NewEventLogService(repos.ControlEvents),
		Ingest:        NewIngestService(repos.Readings, cfg.SensorTopics, log),
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey),
	}
}
