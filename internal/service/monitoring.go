package service

import (
	"context"
	"time"

	"airfilter_hub/internal/models"
	"airfilter_hub/internal/repository"
)

// trendSamples is how many recent readings feed the dashboard delta.
const trendSamples = 2

// MonitoringService assembles the read-only dashboard view. Partial store
// failures mark the snapshot degraded instead of fabricating values.
type MonitoringService struct {
	readings  repository.ReadingRepo
	baselines repository.BaselineRepo
	decisions repository.DecisionRepo
	prompts   interface{ Prompts() models.PromptFlags }
	cfg       Config
}

func NewMonitoringService(
	readings repository.ReadingRepo,
	baselines repository.BaselineRepo,
	decisions repository.DecisionRepo,
	prompts interface{ Prompts() models.PromptFlags },
	cfg Config,
) *MonitoringService {
	return &MonitoringService{
		readings:  readings,
		baselines: baselines,
		decisions: decisions,
		prompts:   prompts,
		cfg:       cfg,
	}
}

var _ Monitoring = (*MonitoringService)(nil)

// Snapshot returns the current conditions for every channel plus the
// derived relay states and open prompt flags.
func (s *MonitoringService) Snapshot(ctx context.Context) (models.DashboardSnapshot, error) {
	snap := models.DashboardSnapshot{
		GeneratedAt: time.Now().UTC(),
		Prompts:     s.prompts.Prompts(),
	}

	channels := append([]models.Channel{models.ChannelIndoor}, s.cfg.Channels...)
	for _, ch := range channels {
		snap.Channels = append(snap.Channels, s.channelReading(ctx, ch, &snap.Degraded))
	}

	if v, ok, err := s.baselines.Latest(ctx); err != nil {
		snap.Degraded = true
		snap.Baseline = s.cfg.BaselineFloor
	} else if ok {
		snap.Baseline = v
	} else {
		snap.Baseline = s.cfg.BaselineFloor
	}

	auto, okA, errA := s.decisions.Latest(ctx, models.SourceAutomatic)
	man, okM, errM := s.decisions.Latest(ctx, models.SourceManual)
	if errA != nil || errM != nil {
		// Unknown relay state: leave Authoritative empty rather than claim OFF.
		snap.Degraded = true
		return snap, nil
	}
	if okA {
		snap.Automatic = auto.State
	}
	if okM {
		snap.Manual = man.State
	}
	snap.Authoritative = models.RelayOff
	if okA && okM && auto.State == models.RelayOn && man.State == models.RelayOn {
		snap.Authoritative = models.RelayOn
	}
	return snap, nil
}

// Window exposes the recent samples of one channel for trend display.
func (s *MonitoringService) Window(ctx context.Context, ch models.Channel, n int) ([]models.Reading, error) {
	if n <= 0 || n > 500 {
		n = s.cfg.WindowSize
	}
	return s.readings.Window(ctx, ch, n)
}

func (s *MonitoringService) channelReading(ctx context.Context, ch models.Channel, degraded *bool) models.ChannelReading {
	cr := models.ChannelReading{Channel: ch, Stale: true}

	recent, err := s.readings.Window(ctx, ch, trendSamples)
	if err != nil {
		*degraded = true
		return cr
	}
	if len(recent) == 0 {
		return cr
	}

	latest := recent[0]
	cr.Stale = time.Since(latest.Timestamp) > s.cfg.MaxReadingAge
	cr.Timestamp = latest.Timestamp
	cr.PM25 = latest.PM25
	cr.Temperature = latest.Temperature
	cr.Humidity = latest.Humidity
	cr.Band = pm25Band(latest.PM25)
	if len(recent) > 1 {
		cr.Delta = latest.PM25 - recent[1].PM25
	}
	return cr
}
