package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// State represents the lifecycle state of a remote job.
type State string

const (
	// StatePending means the job is created but not picked up yet.
	StatePending State = "pending"
	// StateProcessing means the job is being executed.
	StateProcessing State = "processing"
	// StateAwaitingInput means the job waits for a staged input.
	StateAwaitingInput State = "awaitingInput"
	// StateAwaitingTds means the job waits for a 3-D Secure challenge.
	StateAwaitingTds State = "awaitingTds"
	// StateSuccess means the job finished successfully.
	StateSuccess State = "success"
	// StateFail means the job failed.
	StateFail State = "fail"
)

// States lists every known lifecycle label.
var States = []State{
	StatePending,
	StateProcessing,
	StateAwaitingInput,
	StateAwaitingTds,
	StateSuccess,
	StateFail,
}

// IsTerminal reports whether the job can no longer change state.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFail
}

// IsKnown reports whether s is one of States.
func (s State) IsKnown() bool {
	for _, k := range States {
		if s == k {
			return true
		}
	}
	return false
}

// Snapshot is an immutable observation of a job at one fetch instant.
// Fields other than id, state and the timestamps are kept verbatim in
// Metadata.
type Snapshot struct {
	ID        string                     `json:"id"`
	State     State                      `json:"state"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Metadata  map[string]json.RawMessage `json:"-"`
}

// ErrIncomplete is returned by Validate for snapshots lacking id or state.
var ErrIncomplete = errors.New("job: snapshot requires id and state")

// Validate checks that the snapshot carries an identifier and a state.
func (s *Snapshot) Validate() error {
	if s.ID == "" || s.State == "" {
		return ErrIncomplete
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Metadata != nil {
		c.Metadata = make(map[string]json.RawMessage, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// Field decodes the metadata field key into dst. It reports false when
// the field is absent.
func (s *Snapshot) Field(key string, dst any) (bool, error) {
	raw, ok := s.Metadata[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("job: decode field %q: %w", key, err)
	}
	return true, nil
}

// UnmarshalJSON decodes a job representation, collecting unknown fields
// into Metadata.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Snapshot
	for key, raw := range fields {
		var err error
		switch key {
		case "id":
			err = json.Unmarshal(raw, &out.ID)
		case "state":
			err = json.Unmarshal(raw, &out.State)
		case "createdAt":
			out.CreatedAt, err = decodeTime(raw)
		case "updatedAt":
			out.UpdatedAt, err = decodeTime(raw)
		default:
			if out.Metadata == nil {
				out.Metadata = make(map[string]json.RawMessage)
			}
			out.Metadata[key] = raw
		}
		if err != nil {
			return fmt.Errorf("job: decode %q: %w", key, err)
		}
	}
	*s = out
	return nil
}

// MarshalJSON encodes the snapshot with its metadata flattened back in.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(s.Metadata)+4)
	for k, v := range s.Metadata {
		fields[k] = v
	}
	fields["id"] = s.ID
	fields["state"] = s.State
	if !s.CreatedAt.IsZero() {
		fields["createdAt"] = s.CreatedAt.UnixMilli()
	}
	if !s.UpdatedAt.IsZero() {
		fields["updatedAt"] = s.UpdatedAt.UnixMilli()
	}
	return json.Marshal(fields)
}

// decodeTime accepts epoch milliseconds or an RFC 3339 string.
func decodeTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		if str == "" {
			return time.Time{}, nil
		}
		if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Parse(time.RFC3339Nano, str)
	}
	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// Timestamp is a time that decodes from epoch milliseconds or RFC 3339.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	tm, err := decodeTime(data)
	if err != nil {
		return err
	}
	t.Time = tm
	return nil
}

// MarshalJSON encodes the time as epoch milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, t.UnixMilli(), 10), nil
}
