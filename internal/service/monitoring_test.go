package service

import (
	"context"
	"testing"
	"time"

	"airfilter_hub/internal/models"
)

type staticPrompts struct {
	flags models.PromptFlags
}

func (s staticPrompts) Prompts() models.PromptFlags { return s.flags }

func monitoringConfig() Config {
	cfg := DefaultConfig()
	cfg.Channels = []models.Channel{models.ChannelOutdoorOne, models.ChannelOutdoorTwo}
	return cfg
}

func TestSnapshot_AssemblesChannelsAndStates(t *testing.T) {
	cfg := monitoringConfig()
	now := time.Now().UTC()
	ctx := context.Background()

	readings := &fakeReadingRepo{}
	_ = readings.Append(ctx, models.Reading{Channel: models.ChannelIndoor, Timestamp: now.Add(-time.Minute), PM25: 4})
	_ = readings.Append(ctx, models.Reading{Channel: models.ChannelOutdoorOne, Timestamp: now.Add(-2 * time.Minute), PM25: 30})
	_ = readings.Append(ctx, models.Reading{Channel: models.ChannelOutdoorOne, Timestamp: now.Add(-time.Minute), PM25: 35})

	baselines := &fakeBaselineRepo{values: []float64{9.1}, times: []time.Time{now}}
	decisions := &fakeDecisionRepo{}
	if _, err := decisions.Append(ctx, models.SourceAutomatic, models.RelayOn, now); err != nil {
		t.Fatal(err)
	}
	if _, err := decisions.Append(ctx, models.SourceManual, models.RelayOn, now); err != nil {
		t.Fatal(err)
	}

	mon := NewMonitoringService(readings, baselines, decisions,
		staticPrompts{flags: models.PromptFlags{Main: true, EventID: 5}}, cfg)

	snap, err := mon.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// indoor plus the two configured outdoor channels
	if len(snap.Channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(snap.Channels))
	}
	if snap.Degraded {
		t.Fatalf("healthy store must not be degraded")
	}
	if snap.Baseline != 9.1 {
		t.Fatalf("baseline = %v, want 9.1", snap.Baseline)
	}
	if snap.Automatic != models.RelayOn || snap.Manual != models.RelayOn || snap.Authoritative != models.RelayOn {
		t.Fatalf("unexpected relay states: %+v", snap)
	}
	if !snap.Prompts.Main || snap.Prompts.EventID != 5 {
		t.Fatalf("prompt flags lost: %+v", snap.Prompts)
	}

	byChannel := make(map[models.Channel]models.ChannelReading)
	for _, cr := range snap.Channels {
		byChannel[cr.Channel] = cr
	}
	out1 := byChannel[models.ChannelOutdoorOne]
	if out1.Stale || out1.PM25 != 35 || out1.Delta != 5 {
		t.Fatalf("unexpected outdoor_one reading: %+v", out1)
	}
	if out1.Band != BandModerate {
		t.Fatalf("pm25 35 must band as moderate, got %q", out1.Band)
	}
	// Channel with no readings is stale with zero values.
	out2 := byChannel[models.ChannelOutdoorTwo]
	if !out2.Stale {
		t.Fatalf("silent channel must be stale: %+v", out2)
	}
}

func TestSnapshot_StaleAndDegraded(t *testing.T) {
	cfg := monitoringConfig()
	now := time.Now().UTC()
	ctx := context.Background()

	readings := &fakeReadingRepo{}
	// Reading older than MaxReadingAge shows up but is flagged stale.
	_ = readings.Append(ctx, models.Reading{Channel: models.ChannelOutdoorOne, Timestamp: now.Add(-2 * time.Hour), PM25: 12})

	baselines := &fakeBaselineRepo{latestErr: errTest}
	decisions := &fakeDecisionRepo{latestErr: errTest}
	mon := NewMonitoringService(readings, baselines, decisions, staticPrompts{}, cfg)

	snap, err := mon.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot must degrade, not fail: %v", err)
	}
	if !snap.Degraded {
		t.Fatalf("store failures must mark the snapshot degraded")
	}
	if snap.Baseline != cfg.BaselineFloor {
		t.Fatalf("unreadable baseline must fall back to the floor, got %v", snap.Baseline)
	}
	// Relay state unknown: must not claim OFF.
	if snap.Authoritative != "" {
		t.Fatalf("unknown relay state must stay empty, got %q", snap.Authoritative)
	}

	for _, cr := range snap.Channels {
		if cr.Channel == models.ChannelOutdoorOne && !cr.Stale {
			t.Fatalf("old reading must be flagged stale: %+v", cr)
		}
	}
}

func TestWindow_ClampsRequestSize(t *testing.T) {
	cfg := monitoringConfig()
	now := time.Now().UTC()
	readings := &fakeReadingRepo{}
	readings.fill(models.ChannelOutdoorOne, 30, 10, now)
	mon := NewMonitoringService(readings, &fakeBaselineRepo{}, &fakeDecisionRepo{}, staticPrompts{}, cfg)

	cases := []struct {
		n    int
		want int
	}{
		{5, 5},
		{0, cfg.WindowSize},    // default
		{-3, cfg.WindowSize},   // invalid
		{9999, cfg.WindowSize}, // over the cap
	}
	for _, tc := range cases {
		got, err := mon.Window(context.Background(), models.ChannelOutdoorOne, tc.n)
		if err != nil {
			t.Fatalf("n=%d: %v", tc.n, err)
		}
		if len(got) != tc.want {
			t.Fatalf("n=%d: got %d readings, want %d", tc.n, len(got), tc.want)
		}
	}
}

func TestPM25Band(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{0, BandGood},
		{25, BandGood},
		{25.1, BandModerate},
		{50, BandModerate},
		{75, BandUnhealthySensitive},
		{100, BandUnhealthy},
		{125, BandVeryUnhealthy},
		{126, BandHazardous},
		{500, BandHazardous},
	}
	for _, tc := range cases {
		if got := pm25Band(tc.v); got != tc.want {
			t.Fatalf("pm25Band(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}
