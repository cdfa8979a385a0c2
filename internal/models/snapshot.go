package models

import "time"

// PromptFlags mirrors which decision dialogs the dashboard should show.
type PromptFlags struct {
	Main              bool  `json:"main"`
	Disclaimer        bool  `json:"disclaimer"`
	Caution           bool  `json:"caution"`
	ReminderCancelled bool  `json:"reminder_cancelled"`
	EventID           int64 `json:"event_id,omitempty"`
}

// ChannelReading is the latest sample for one channel plus its short trend.
type ChannelReading struct {
	Channel     Channel   `json:"channel"`
	Timestamp   time.Time `json:"timestamp"`
	PM25        float64   `json:"pm25"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Delta       float64   `json:"delta"` // change vs. previous sample
	Band        string    `json:"band"`  // good .. hazardous
	Stale       bool      `json:"stale"` // no usable data for this channel
}

// DashboardSnapshot is everything the presentation layer reads in one shot.
// Authoritative is "ON"/"OFF", or "" with Degraded set when the store could
// not be read; the dashboard then shows "unknown" instead of fabricated state.
type DashboardSnapshot struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	Channels      []ChannelReading `json:"channels"`
	Baseline      float64          `json:"baseline"`
	Automatic     RelayState       `json:"automatic,omitempty"`
	Manual        RelayState       `json:"manual,omitempty"`
	Authoritative RelayState       `json:"authoritative,omitempty"`
	Degraded      bool             `json:"degraded"`
	Prompts       PromptFlags      `json:"prompts"`
}
