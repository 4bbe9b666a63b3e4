package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of tracker event fanned out by the Broker.
type EventType string

// Event type constants.
const (
	EventSessionOpened EventType = "session.opened"
	EventSessionClosed EventType = "session.closed"
	EventStateChanged  EventType = "job.state_changed"
	EventFetchRetrying EventType = "job.fetch_retrying"
	EventFetchFailed   EventType = "job.fetch_failed"
)

// Event is one message delivered to broker subscribers.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Topic     string          `json:"topic,omitempty"`
	JobID     string          `json:"job_id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// SessionEventData is the payload of session.* events.
type SessionEventData struct {
	JobID     string `json:"job_id"`
	Source    string `json:"source,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}

// StateEventData is the payload of job.state_changed events.
type StateEventData struct {
	JobID     string `json:"job_id"`
	State     string `json:"state"`
	PrevState string `json:"prev_state,omitempty"`
}

// FetchEventData is the payload of job.fetch_* events.
type FetchEventData struct {
	JobID      string `json:"job_id"`
	Attempt    int    `json:"attempt,omitempty"`
	RetryInMs  int64  `json:"retry_in_ms,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error"`
}
