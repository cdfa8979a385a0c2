package models

import "time"

// RelayState is the binary relay command value.
type RelayState string

const (
	RelayOn  RelayState = "ON"
	RelayOff RelayState = "OFF"
)

// DecisionSource distinguishes the writer of a relay decision.
type DecisionSource string

const (
	SourceAutomatic DecisionSource = "automatic"
	SourceManual    DecisionSource = "manual"
)

// RelayDecision is one row of the append-only decision audit log. The
// authoritative relay state is always derived from the latest automatic and
// manual rows, never stored on its own.
type RelayDecision struct {
	ID        int64          `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Source    DecisionSource `json:"source"`
	State     RelayState     `json:"state"`
}

// ProcessedEvent records what happened to an automatic ON event. Existence
// of any row for an event id means the initial prompt must not re-trigger.
type ProcessedEvent struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"event_id"`
	Action      string    `json:"action"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ReminderKind says how long the user asked to be left alone.
type ReminderKind string

const (
	ReminderShort ReminderKind = "short_delay" // 20 minutes
	ReminderLong  ReminderKind = "long_delay"  // 1 hour
)

// Reminder is a deferred re-prompt. It is consumed exactly once: either it
// fires at due time or it is invalidated because the air condition reversed.
type Reminder struct {
	ID      int64        `json:"id"`
	EventID int64        `json:"event_id"`
	DueAt   time.Time    `json:"due_at"`
	Kind    ReminderKind `json:"kind"`
}
