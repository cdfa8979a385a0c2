package models

import "time"

// ControlEvent is a single entry of the controller audit log.
type ControlEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // RELAY_ON | RELAY_OFF | RELAY_COMMAND | PROMPT | USER_ACTION | BASELINE | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
