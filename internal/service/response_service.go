package service

import "time"

// LogFilter supports audit-log filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "RELAY_ON", "RELAY_OFF", "RELAY_COMMAND", "PROMPT", "USER_ACTION", "BASELINE", "ERROR"
}
