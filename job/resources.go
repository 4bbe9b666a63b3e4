package job

import "encoding/json"

// List is the envelope of every collection endpoint.
type List[T any] struct {
	Object string `json:"object,omitempty"`
	Data   []T    `json:"data"`
	Count  int    `json:"count,omitempty"`
}

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// ServiceID filters by service. Empty means all services.
	ServiceID string
	// State filters by job state. Empty means all states.
	State State
	// Limit is the maximum number of jobs to return. Zero means the
	// server default.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// CreateRequest holds the fields of a new job.
type CreateRequest struct {
	ServiceID   string         `json:"serviceId"`
	Input       map[string]any `json:"input,omitempty"`
	Category    string         `json:"category,omitempty"`
	CallbackURL string         `json:"callbackUrl,omitempty"`
}

// Service is an automation script jobs are created against.
type Service struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Draft     bool      `json:"draft,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Input is a staged value submitted to a job.
type Input struct {
	JobID     string          `json:"jobId,omitempty"`
	Key       string          `json:"key"`
	Stage     string          `json:"stage,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt Timestamp       `json:"createdAt"`
}

// Output is a value emitted by a job.
type Output struct {
	JobID     string          `json:"jobId,omitempty"`
	Key       string          `json:"key"`
	Stage     string          `json:"stage,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt Timestamp       `json:"createdAt"`
}

// PreviousOutputsRequest asks a service for outputs of earlier jobs with
// matching inputs.
type PreviousOutputsRequest struct {
	Inputs []Input `json:"inputs"`
}

// Screenshot describes an image captured while a job ran.
type Screenshot struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Ext       string    `json:"ext,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
}

// MimoLog is one engine log line of a job.
type MimoLog struct {
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt Timestamp       `json:"createdAt"`
}

// EndUser carries the short-lived token an end user drives a job with.
type EndUser struct {
	Token     string    `json:"token"`
	JobID     string    `json:"jobId,omitempty"`
	ServiceID string    `json:"serviceId,omitempty"`
	ExpiresAt Timestamp `json:"expiresAt"`
}

// EventObject is the object tag of job event records.
const EventObject = "job-event"

// Event is one entry of a job's event log.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Object    string          `json:"object"`
	Name      string          `json:"name"`
	JobID     string          `json:"jobId,omitempty"`
	Key       string          `json:"key,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt Timestamp       `json:"createdAt"`
}

// StateFromEvent maps an event name to the state it announces. Events
// that do not name a state (outputs, restarts, ...) report false.
func StateFromEvent(name string) (State, bool) {
	s := State(name)
	if s.IsKnown() {
		return s, true
	}
	return "", false
}

// SnapshotFromEvent builds the snapshot a state-naming event implies.
func SnapshotFromEvent(jobID string, e Event) (*Snapshot, bool) {
	if e.Object != "" && e.Object != EventObject {
		return nil, false
	}
	st, ok := StateFromEvent(e.Name)
	if !ok {
		return nil, false
	}
	if e.JobID != "" {
		jobID = e.JobID
	}
	return &Snapshot{
		ID:        jobID,
		State:     st,
		UpdatedAt: e.CreatedAt.Time,
	}, true
}
