package service

import (
	"time"

	"airfilter_hub/internal/models"

	"github.com/google/uuid"
)

// Audit event types.
const (
	EventRelayOn      = "RELAY_ON"
	EventRelayOff     = "RELAY_OFF"
	EventRelayCommand = "RELAY_COMMAND"
	EventPrompt       = "PROMPT"
	EventUserAction   = "USER_ACTION"
	EventBaseline     = "BASELINE"
	EventError        = "ERROR"
)

func controlEvent(typ, msg string, meta any) models.ControlEvent {
	return models.ControlEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: msg,
		Metadata:    meta,
	}
}
