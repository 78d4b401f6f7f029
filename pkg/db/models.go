package db

import "time"

// CallRecord represents a row in the bridge_calls table.
type CallRecord struct {
	ID           int64     `json:"id"`
	CallID       string    `json:"call_id"`
	Method       string    `json:"method"`
	Outcome      string    `json:"outcome"`
	ErrorCode    *int      `json:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	SettledAt    time.Time `json:"settled_at"`
	DurationMs   int64     `json:"duration_ms"`
}

// OutcomeCount is the number of journaled calls per method and outcome.
type OutcomeCount struct {
	Method  string `json:"method"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}
