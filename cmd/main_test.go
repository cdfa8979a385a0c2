package main

import (
	"testing"

	"airfilter_hub/internal/models"

	"github.com/spf13/viper"
)

// The decision loops only ever query the channels in models; a config typo
// in a topic mapping would orphan every reading on that topic.
func TestShippedConfigSensorChannelsAreKnown(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetConfigFile("../configs/config.yml")
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("reading shipped config: %v", err)
	}

	topics, err := sensorTopics()
	if err != nil {
		t.Fatalf("sensorTopics() error = %v", err)
	}
	if len(topics) == 0 {
		t.Fatalf("shipped config maps no sensor topics")
	}

	known := map[models.Channel]bool{models.ChannelIndoor: true}
	for _, ch := range models.OutdoorChannels() {
		known[ch] = true
	}
	for topic, ch := range topics {
		if !known[ch] {
			t.Fatalf("topic %q maps to unknown channel %q", topic, ch)
		}
	}

	// every outdoor node must have a feeding topic or its window never fills
	fed := make(map[models.Channel]bool, len(topics))
	for _, ch := range topics {
		fed[ch] = true
	}
	for _, ch := range models.OutdoorChannels() {
		if !fed[ch] {
			t.Fatalf("no sensor topic feeds channel %q", ch)
		}
	}
}

func TestSensorTopics_RejectsUnknownChannel(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("mqtt.sensor_topics", map[string]string{
		"home/air/outdoor_1": "outdoor_1",
	})

	if _, err := sensorTopics(); err == nil {
		t.Fatalf("expected error for unknown channel name")
	}
}

func TestControlConfig_OverridesAndDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("control.window_size", 10)
	viper.Set("mqtt.sensor_topics", map[string]string{
		"home/air/indoor": "indoor",
	})

	cfg, err := controlConfig()
	if err != nil {
		t.Fatalf("controlConfig() error = %v", err)
	}
	if cfg.WindowSize != 10 {
		t.Fatalf("WindowSize = %d, want override 10", cfg.WindowSize)
	}
	// untouched knobs keep their defaults
	if cfg.RisingFactor != 1.25 {
		t.Fatalf("RisingFactor = %v, want default 1.25", cfg.RisingFactor)
	}
	if cfg.SensorTopics["home/air/indoor"] != models.ChannelIndoor {
		t.Fatalf("sensor topic mapping lost: %+v", cfg.SensorTopics)
	}
}
