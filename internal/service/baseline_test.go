package service

import (
	"context"
	"testing"
	"time"

	"airfilter_hub/internal/models"
)

func baselineConfig() Config {
	cfg := DefaultConfig()
	cfg.BaselineChannels = []models.Channel{models.ChannelOutdoorOne}
	cfg.BaselineSamples = 4
	cfg.BaselineHistory = 3
	return cfg
}

func newTestEstimator(readings *fakeReadingRepo, baselines *fakeBaselineRepo, decisions *fakeDecisionRepo, events *fakeControlEventRepo, cfg Config) *BaselineService {
	return NewBaselineService(readings, baselines, decisions, events, cfg, testLogger())
}

func lastBaseline(t *testing.T, b *fakeBaselineRepo) float64 {
	t.Helper()
	if len(b.values) == 0 {
		t.Fatalf("expected a baseline to be written")
	}
	return b.values[len(b.values)-1]
}

func TestRecompute_SkipsDuringQuietPeriod(t *testing.T) {
	cfg := baselineConfig()
	now := time.Now().UTC()

	decisions := &fakeDecisionRepo{}
	if _, err := decisions.Append(context.Background(), models.SourceManual, models.RelayOn, now.Add(-10*time.Minute)); err != nil {
		t.Fatal(err)
	}
	readings := &fakeReadingRepo{}
	readings.fill(models.ChannelOutdoorOne, cfg.BaselineSamples, 6, now)
	baselines := &fakeBaselineRepo{}
	est := newTestEstimator(readings, baselines, decisions, &fakeControlEventRepo{}, cfg)

	if err := est.Recompute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(baselines.values) != 0 {
		t.Fatalf("no baseline may be written while the relay ran recently, got %v", baselines.values)
	}
}

func TestRecompute_OldRelayActivityDoesNotBlock(t *testing.T) {
	cfg := baselineConfig()
	now := time.Now().UTC()

	decisions := &fakeDecisionRepo{}
	if _, err := decisions.Append(context.Background(), models.SourceAutomatic, models.RelayOn, now.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	readings := &fakeReadingRepo{}
	readings.fill(models.ChannelOutdoorOne, cfg.BaselineSamples, 6, now)
	baselines := &fakeBaselineRepo{}
	est := newTestEstimator(readings, baselines, decisions, &fakeControlEventRepo{}, cfg)

	if err := est.Recompute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lastBaseline(t, baselines); got != 6 {
		t.Fatalf("baseline = %v, want mean 6", got)
	}
}

func TestRecompute_NoReadingsYieldsZero(t *testing.T) {
	cfg := baselineConfig()

	baselines := &fakeBaselineRepo{}
	est := newTestEstimator(&fakeReadingRepo{}, baselines, &fakeDecisionRepo{}, &fakeControlEventRepo{}, cfg)

	if err := est.Recompute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lastBaseline(t, baselines); got != 0 {
		t.Fatalf("empty store must produce a 0.0 baseline, got %v", got)
	}
}

func TestRecompute_SpikeClamp(t *testing.T) {
	cfg := baselineConfig()
	now := time.Now().UTC()

	cases := []struct {
		name      string
		history   []float64
		candidate float64
		want      float64
	}{
		// candidate > 1.5*avg(history) and candidate < 7.5: pin to floor
		{"clamped_to_floor", []float64{4, 4, 4}, 7.0, 7.5},
		// candidate above the floor is trusted even when far above history
		{"above_floor_kept", []float64{4, 4, 4}, 9.0, 9.0},
		// candidate within 1.5x history is kept as computed
		{"within_history_kept", []float64{5, 5, 5}, 6.0, 6.0},
		// first run, no history: no clamp possible
		{"no_history_kept", nil, 7.0, 7.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			readings := &fakeReadingRepo{}
			readings.fill(models.ChannelOutdoorOne, cfg.BaselineSamples, tc.candidate, now)
			baselines := &fakeBaselineRepo{}
			for _, v := range tc.history {
				_ = baselines.Append(context.Background(), v, now.Add(-time.Hour))
			}
			events := &fakeControlEventRepo{}
			est := newTestEstimator(readings, baselines, &fakeDecisionRepo{}, events, cfg)

			if err := est.Recompute(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := lastBaseline(t, baselines); got != tc.want {
				t.Fatalf("baseline = %v, want %v", got, tc.want)
			}
			if len(events.events) != 1 || events.events[0].Type != EventBaseline {
				t.Fatalf("expected one BASELINE audit event, got %v", events.typesSeen())
			}
		})
	}
}
