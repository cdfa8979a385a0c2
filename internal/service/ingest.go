package service

import (
	"context"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/mqtt"
	"airfilter_hub/internal/repository"
)

// IngestService turns sensor bus messages into reading rows. A malformed
// payload is dropped whole and logged, never partially applied.
type IngestService struct {
	readings repository.ReadingRepo
	topics   map[string]models.Channel
	log      *logger.Logger
}

func NewIngestService(readings repository.ReadingRepo, topics map[string]models.Channel, log *logger.Logger) *IngestService {
	return &IngestService{readings: readings, topics: topics, log: log}
}

var _ Ingest = (*IngestService)(nil)

func (s *IngestService) HandleMessage(ctx context.Context, topic string, payload []byte) {
	ch, ok := s.topics[topic]
	if !ok {
		s.log.Infow("message on unknown topic dropped", "topic", topic)
		return
	}

	sample, err := mqtt.DecodeSensorPayload(payload)
	if err != nil {
		s.log.Errorw("sensor payload rejected", "topic", topic, "err", err)
		return
	}

	rd := models.Reading{
		Channel:      ch,
		PM25:         sample.PM25,
		Temperature:  sample.Temperature,
		Humidity:     sample.Humidity,
		WifiStrength: sample.WifiStrength,
	}
	if err := s.readings.Append(ctx, rd); err != nil {
		s.log.Errorw("reading insert failed", "channel", ch, "err", err)
	}
}
