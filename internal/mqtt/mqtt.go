// Package mqtt wraps the message bus: sensor ingest subscriptions and the
// relay command topic, with fakes for testing.
package mqtt

import (
	"encoding/json"
	"fmt"

	"airfilter_hub/internal/models"
)

// RelayPublisher delivers the authoritative command token to the actuator
// topic. The consumer applies last-value-wins and only acts on change.
type RelayPublisher interface {
	// PublishState sends the "ON"/"OFF" token.
	// Returns error if publishing fails (must not crash the loop).
	PublishState(state models.RelayState) error
	Close() error
}

// MessageHandler receives raw sensor messages from subscribed topics.
type MessageHandler func(topic string, payload []byte)

// SensorSubscriber attaches a handler to the configured sensor topics.
type SensorSubscriber interface {
	Subscribe(topics []string, handler MessageHandler) error
}

// SensorSample is a decoded sensor message. Wifi strength is optional
// because the indoor node does not report it.
type SensorSample struct {
	PM25         float64
	Temperature  float64
	Humidity     float64
	WifiStrength float64
}

// sensorPayload is the wire schema. Pointers distinguish absent fields so
// a malformed message is rejected whole instead of half-applied.
type sensorPayload struct {
	PM25         *float64 `json:"pm25"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	WifiStrength *float64 `json:"wifi"`
}

// DecodeSensorPayload validates and decodes one sensor message. pm25,
// temperature and humidity are required; anything missing or non-numeric
// fails the whole message.
func DecodeSensorPayload(b []byte) (SensorSample, error) {
	var p sensorPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return SensorSample{}, fmt.Errorf("decode sensor payload: %w", err)
	}
	if p.PM25 == nil {
		return SensorSample{}, fmt.Errorf("sensor payload missing pm25")
	}
	if p.Temperature == nil {
		return SensorSample{}, fmt.Errorf("sensor payload missing temperature")
	}
	if p.Humidity == nil {
		return SensorSample{}, fmt.Errorf("sensor payload missing humidity")
	}

	s := SensorSample{
		PM25:        *p.PM25,
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
	}
	if p.WifiStrength != nil {
		s.WifiStrength = *p.WifiStrength
	}
	return s, nil
}
