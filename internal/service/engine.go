package service

import (
	"context"
	"sync"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/repository"
)

// EngineService runs the rolling-window hysteresis algorithm. Each
// monitored channel keeps its own state; the recorded automatic decision
// is the OR across channels, so any one node's degraded air commands the
// filter.
type EngineService struct {
	readings  repository.ReadingRepo
	baselines repository.BaselineRepo
	decisions repository.DecisionRepo
	events    repository.ControlEventRepo
	cfg       Config
	log       *logger.Logger

	mu     sync.Mutex
	states map[models.Channel]models.RelayState
	seeded bool
}

func NewEngineService(
	readings repository.ReadingRepo,
	baselines repository.BaselineRepo,
	decisions repository.DecisionRepo,
	events repository.ControlEventRepo,
	cfg Config,
	log *logger.Logger,
) *EngineService {
	return &EngineService{
		readings:  readings,
		baselines: baselines,
		decisions: decisions,
		events:    events,
		cfg:       cfg,
		log:       log,
		states:    make(map[models.Channel]models.RelayState, len(cfg.Channels)),
	}
}

var _ Engine = (*EngineService)(nil)

// EvaluateCycle walks the monitored channels in fixed order, advances each
// channel's hysteresis state, and appends one automatic decision row for
// the cycle regardless of whether anything changed.
func (s *EngineService) EvaluateCycle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.seedStates(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	baseline := s.currentBaseline(ctx)

	for _, ch := range s.cfg.Channels {
		prev := s.states[ch]
		window, err := s.readings.Window(ctx, ch, s.cfg.WindowSize)
		if err != nil {
			// Unreachable store must never flip a relay; leave the channel as is.
			s.log.Errorw("window fetch failed", "channel", ch, "err", err)
			continue
		}

		pm25, ok := validWindow(window, s.cfg.WindowSize, now, s.cfg.MaxReadingAge)
		if !ok {
			s.log.Infow("channel skipped, insufficient or stale window",
				"channel", ch, "got", len(window), "want", s.cfg.WindowSize)
			continue
		}

		next := nextState(prev, pm25, baseline, s.cfg.RisingFactor)
		if next != prev {
			s.states[ch] = next
			s.logTransition(ctx, ch, next, baseline)
		}
	}

	combined := s.combinedState()
	if _, err := s.decisions.Append(ctx, models.SourceAutomatic, combined, now); err != nil {
		return err
	}
	return nil
}

// Run evaluates at the given tick until ctx is cancelled.
func (s *EngineService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cctx, cancel := context.WithTimeout(ctx, cycleTimeout(tick))
			err := s.EvaluateCycle(cctx)
			cancel()
			if err != nil {
				s.log.Errorw("decision cycle failed", "err", err)
			}
		}
	}
}

// nextState is the pure hysteresis step: OFF->ON only when the whole window
// exceeds risingFactor*baseline, ON->OFF only when the whole window is at or
// below baseline. The band in between changes nothing, which is what keeps
// the relay from chattering.
func nextState(prev models.RelayState, window []float64, baseline, risingFactor float64) models.RelayState {
	switch prev {
	case models.RelayOn:
		if allAtOrBelow(window, baseline) {
			return models.RelayOff
		}
	default: // OFF
		if allAbove(window, risingFactor*baseline) {
			return models.RelayOn
		}
	}
	return prev
}

// validWindow extracts pm25 values when the window has exactly want
// readings, all within maxAge of now. Anything less is a no-decision cycle.
func validWindow(window []models.Reading, want int, now time.Time, maxAge time.Duration) ([]float64, bool) {
	if len(window) != want {
		return nil, false
	}
	oldest := now.Add(-maxAge)
	pm25 := make([]float64, len(window))
	for i, rd := range window {
		if rd.Timestamp.Before(oldest) {
			return nil, false
		}
		pm25[i] = rd.PM25
	}
	return pm25, true
}

func allAbove(values []float64, threshold float64) bool {
	for _, v := range values {
		if v <= threshold {
			return false
		}
	}
	return len(values) > 0
}

func allAtOrBelow(values []float64, threshold float64) bool {
	for _, v := range values {
		if v > threshold {
			return false
		}
	}
	return len(values) > 0
}

// seedStates initializes every channel from the latest automatic decision,
// defaulting to OFF, once per process lifetime.
func (s *EngineService) seedStates(ctx context.Context) error {
	if s.seeded {
		return nil
	}
	initial := models.RelayOff
	if d, ok, err := s.decisions.Latest(ctx, models.SourceAutomatic); err != nil {
		return err
	} else if ok {
		initial = d.State
	}
	for _, ch := range s.cfg.Channels {
		s.states[ch] = initial
	}
	s.seeded = true
	return nil
}

// currentBaseline reads the latest baseline, falling back to the floor when
// absent or unreadable.
func (s *EngineService) currentBaseline(ctx context.Context) float64 {
	v, ok, err := s.baselines.Latest(ctx)
	if err != nil {
		s.log.Errorw("baseline read failed, using floor", "err", err)
		return s.cfg.BaselineFloor
	}
	if !ok {
		return s.cfg.BaselineFloor
	}
	return v
}

func (s *EngineService) combinedState() models.RelayState {
	for _, ch := range s.cfg.Channels {
		if s.states[ch] == models.RelayOn {
			return models.RelayOn
		}
	}
	return models.RelayOff
}

func (s *EngineService) logTransition(ctx context.Context, ch models.Channel, next models.RelayState, baseline float64) {
	typ := EventRelayOff
	msg := "PM2.5 at or below baseline; channel recovered"
	if next == models.RelayOn {
		typ = EventRelayOn
		msg = "PM2.5 above threshold; channel demands filtration"
	}
	err := s.events.Append(ctx, controlEvent(typ, msg, map[string]any{
		"channel":  ch,
		"baseline": baseline,
	}))
	if err != nil {
		s.log.Errorw("transition audit append failed", "channel", ch, "err", err)
	}
}
