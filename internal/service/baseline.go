package service

import (
	"context"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/repository"
)

// BaselineService computes the slow-moving "clean air" reference level.
type BaselineService struct {
	readings  repository.ReadingRepo
	baselines repository.BaselineRepo
	decisions repository.DecisionRepo
	events    repository.ControlEventRepo
	cfg       Config
	log       *logger.Logger
}

func NewBaselineService(
	readings repository.ReadingRepo,
	baselines repository.BaselineRepo,
	decisions repository.DecisionRepo,
	events repository.ControlEventRepo,
	cfg Config,
	log *logger.Logger,
) *BaselineService {
	return &BaselineService{
		readings:  readings,
		baselines: baselines,
		decisions: decisions,
		events:    events,
		cfg:       cfg,
		log:       log,
	}
}

var _ Estimator = (*BaselineService)(nil)

// Recompute derives a new baseline from recent outdoor readings and
// persists it. It skips entirely while the filter ran within the quiet
// period: filtration activity contaminates the ambient baseline. Any store
// error aborts the cycle without writing a partial baseline.
func (s *BaselineService) Recompute(ctx context.Context) error {
	now := time.Now().UTC()

	ran, err := s.decisions.AnyOnSince(ctx, now.Add(-s.cfg.QuietPeriod))
	if err != nil {
		return err
	}
	if ran {
		s.log.Infow("baseline skipped, relay active within quiet period")
		return nil
	}

	values, err := s.readings.RecentPM25(ctx, s.cfg.BaselineChannels, s.cfg.BaselineSamples)
	if err != nil {
		return err
	}
	candidate := mean(values)

	history, err := s.baselines.LastValues(ctx, s.cfg.BaselineHistory)
	if err != nil {
		return err
	}
	clamped := false
	if len(history) > 0 {
		// A candidate suspiciously above recent history yet still under the
		// floor is treated as damped noise and pinned to the floor.
		avg := mean(history)
		if candidate > s.cfg.SpikeFactor*avg && candidate < s.cfg.BaselineFloor {
			candidate = s.cfg.BaselineFloor
			clamped = true
		}
	}

	if err := s.baselines.Append(ctx, candidate, now); err != nil {
		return err
	}
	s.logEvent(ctx, candidate, clamped, len(values))
	return nil
}

// Run recomputes at the given interval until ctx is cancelled. A failed
// cycle is logged and the next one still runs.
func (s *BaselineService) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cctx, cancel := context.WithTimeout(ctx, cycleTimeout(interval))
			err := s.Recompute(cctx)
			cancel()
			if err != nil {
				s.log.Errorw("baseline recompute failed", "err", err)
			}
		}
	}
}

func (s *BaselineService) logEvent(ctx context.Context, value float64, clamped bool, samples int) {
	err := s.events.Append(ctx, controlEvent(EventBaseline, "Baseline recomputed", map[string]any{
		"value":   value,
		"clamped": clamped,
		"samples": samples,
	}))
	if err != nil {
		s.log.Errorw("baseline audit append failed", "err", err)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
