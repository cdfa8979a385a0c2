package service

import (
	"context"
	"math/rand"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/repository"
)

// ----------- Simulation constants -----------
const (
	SimBasePM25         = 8.0   // resting outdoor level µg/m³
	SimMaxStep          = 1.5   // largest random-walk step per tick
	SimPullFactor       = 0.05  // fraction of the gap to base recovered per tick
	SimSpikeChance      = 0.02  // probability of a smoke spike per channel per tick
	SimSpikePM25        = 35.0  // added on a spike
	SimFloorPM25        = 1.0   // µg/m³
	SimCeilPM25         = 250.0 // µg/m³
	SimIndoorAttenuated = 0.6   // indoor fraction of the outdoor mean
)

// SimulatorService feeds synthetic sensor readings into the store so the
// whole pipeline can run on a bench with no hardware attached.
type SimulatorService struct {
	readings repository.ReadingRepo
	outdoor  []models.Channel
	log      *logger.Logger

	rnd    *rand.Rand
	levels map[models.Channel]float64
	indoor float64
}

// NewSimulatorService returns a simulator over the given outdoor channels.
func NewSimulatorService(readings repository.ReadingRepo, outdoor []models.Channel, log *logger.Logger) *SimulatorService {
	s := &SimulatorService{
		readings: readings,
		outdoor:  outdoor,
		log:      log,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		levels:   make(map[models.Channel]float64, len(outdoor)),
		indoor:   SimBasePM25 * SimIndoorAttenuated,
	}
	for _, ch := range outdoor {
		s.levels[ch] = SimBasePM25
	}
	return s
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			cctx, cancel := context.WithTimeout(ctx, cycleTimeout(tick))
			s.emit(cctx, now.UTC())
			cancel()
		}
	}
}

// emit advances every channel one step and appends one reading per channel.
func (s *SimulatorService) emit(ctx context.Context, now time.Time) {
	sum := 0.0
	for _, ch := range s.outdoor {
		level := s.stepOutdoor(s.levels[ch])
		s.levels[ch] = level
		sum += level
		s.append(ctx, ch, level, now)
	}

	if len(s.outdoor) > 0 {
		// Indoor lags behind the attenuated outdoor mean.
		target := (sum / float64(len(s.outdoor))) * SimIndoorAttenuated
		s.indoor += (target - s.indoor) * 0.2
		s.append(ctx, models.ChannelIndoor, clampPM25(s.indoor), now)
	}
}

func (s *SimulatorService) stepOutdoor(level float64) float64 {
	level += (s.rnd.Float64()*2 - 1) * SimMaxStep
	level += (SimBasePM25 - level) * SimPullFactor
	if s.rnd.Float64() < SimSpikeChance {
		level += SimSpikePM25
	}
	return clampPM25(level)
}

func (s *SimulatorService) append(ctx context.Context, ch models.Channel, pm25 float64, now time.Time) {
	rd := models.Reading{
		Channel:      ch,
		Timestamp:    now,
		PM25:         pm25,
		Temperature:  21.0 + (s.rnd.Float64()*2 - 1),
		Humidity:     40.0 + (s.rnd.Float64()*10 - 5),
		WifiStrength: -55.0 + (s.rnd.Float64()*10 - 5),
	}
	if err := s.readings.Append(ctx, rd); err != nil {
		s.log.Errorw("simulated reading insert failed", "channel", ch, "err", err)
	}
}

func clampPM25(v float64) float64 {
	if v < SimFloorPM25 {
		return SimFloorPM25
	}
	if v > SimCeilPM25 {
		return SimCeilPM25
	}
	return v
}
