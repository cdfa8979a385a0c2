package service

import (
	"context"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/mqtt"
	"airfilter_hub/internal/repository"
)

// RelayService is the actuator-facing companion loop: each tick it derives
// the authoritative command and publishes the ON/OFF token. Store failures
// fail closed to OFF. The physical GPIO lives behind the broker.
type RelayService struct {
	decisions repository.DecisionRepo
	events    repository.ControlEventRepo
	pub       mqtt.RelayPublisher
	log       *logger.Logger

	lastSent models.RelayState
	sentAny  bool
}

func NewRelayService(
	decisions repository.DecisionRepo,
	events repository.ControlEventRepo,
	pub mqtt.RelayPublisher,
	log *logger.Logger,
) *RelayService {
	return &RelayService{
		decisions: decisions,
		events:    events,
		pub:       pub,
		log:       log,
	}
}

var _ Relay = (*RelayService)(nil)

// Run publishes at the given tick until ctx is cancelled. Only changes are
// sent; the consumer additionally suppresses redundant toggles.
func (s *RelayService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cctx, cancel := context.WithTimeout(ctx, cycleTimeout(tick))
			s.publishCycle(cctx)
			cancel()
		}
	}
}

func (s *RelayService) publishCycle(ctx context.Context) {
	state, known := deriveAuthoritative(ctx, s.decisions)
	if !known {
		// Unknown is commanded as OFF but not latched, so recovery resends.
		state = models.RelayOff
	}

	if s.sentAny && state == s.lastSent {
		return
	}

	if err := s.pub.PublishState(state); err != nil {
		s.log.Errorw("relay publish failed", "state", state, "err", err)
		return
	}
	s.lastSent = state
	s.sentAny = known

	err := s.events.Append(ctx, controlEvent(EventRelayCommand, "Relay command published", map[string]any{
		"state": state,
	}))
	if err != nil {
		s.log.Errorw("relay audit append failed", "err", err)
	}
}
