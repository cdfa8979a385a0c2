package models

import "time"

// Channel identifies a logical sensor channel. Each outdoor node publishes
// on its own MQTT topic and is stored under its own channel name.
type Channel string

const (
	ChannelIndoor       Channel = "indoor"
	ChannelOutdoorOne   Channel = "outdoor_one"
	ChannelOutdoorTwo   Channel = "outdoor_two"
	ChannelOutdoorThree Channel = "outdoor_three"
	ChannelOutdoorFour  Channel = "outdoor_four"
)

// OutdoorChannels lists the outdoor nodes in their fixed evaluation order.
func OutdoorChannels() []Channel {
	return []Channel{ChannelOutdoorOne, ChannelOutdoorTwo, ChannelOutdoorThree, ChannelOutdoorFour}
}

// ParseChannel maps a channel name from config or a query parameter onto a
// known channel. Readings stored under any other name would never be seen
// by the decision loops, so unknown names are rejected at the boundary.
func ParseChannel(s string) (Channel, bool) {
	ch := Channel(s)
	if ch == ChannelIndoor {
		return ch, true
	}
	for _, known := range OutdoorChannels() {
		if ch == known {
			return ch, true
		}
	}
	return "", false
}

// Reading is a single sensor sample. Rows are append-only; timestamp order
// defines "recent".
type Reading struct {
	ID           int64     `json:"id"`
	Channel      Channel   `json:"channel"`
	Timestamp    time.Time `json:"timestamp"`
	PM25         float64   `json:"pm25"`
	Temperature  float64   `json:"temperature"` // °F
	Humidity     float64   `json:"humidity"`    // %
	WifiStrength float64   `json:"wifi_strength,omitempty"`
}

// Baseline is one computed reference particulate level. The latest row by
// id is authoritative.
type Baseline struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
