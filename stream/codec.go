package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/jobwatch/job"
)

// Codec defines the serialization contract for pushed job events.
type Codec interface {
	// Encode serializes an event to a frame payload.
	Encode(e *job.Event) ([]byte, error)

	// Decode deserializes a frame payload into e.
	Decode(data []byte, e *job.Event) error

	// Name returns the codec identifier ("json", "msgpack").
	Name() string
}

// CodecName constants for format negotiation.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &JSONCodec{}
	}
}

// JSONCodec encodes/decodes events as JSON text frames.
type JSONCodec struct{}

func (c *JSONCodec) Encode(e *job.Event) ([]byte, error) {
	return json.Marshal(e)
}

func (c *JSONCodec) Decode(data []byte, e *job.Event) error {
	return json.Unmarshal(data, e)
}

func (c *JSONCodec) Name() string { return CodecNameJSON }

// MsgpackCodec encodes/decodes events as MessagePack binary frames.
// createdAt travels as epoch milliseconds and data as a generic value.
type MsgpackCodec struct{}

type msgpackEvent struct {
	ID        string `msgpack:"id,omitempty"`
	Object    string `msgpack:"object"`
	Name      string `msgpack:"name"`
	JobID     string `msgpack:"jobId,omitempty"`
	Key       string `msgpack:"key,omitempty"`
	Data      any    `msgpack:"data,omitempty"`
	CreatedAt int64  `msgpack:"createdAt,omitempty"`
}

func (c *MsgpackCodec) Encode(e *job.Event) ([]byte, error) {
	w := msgpackEvent{
		ID:     e.ID,
		Object: e.Object,
		Name:   e.Name,
		JobID:  e.JobID,
		Key:    e.Key,
	}
	if !e.CreatedAt.IsZero() {
		w.CreatedAt = e.CreatedAt.UnixMilli()
	}
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &w.Data); err != nil {
			return nil, fmt.Errorf("stream: msgpack encode data: %w", err)
		}
	}
	return msgpack.Marshal(&w)
}

func (c *MsgpackCodec) Decode(data []byte, e *job.Event) error {
	var w msgpackEvent
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	// String-keyed maps so Data can be re-encoded as JSON.
	dec.SetMapDecoder(func(d *msgpack.Decoder) (any, error) {
		return d.DecodeMap()
	})
	if err := dec.Decode(&w); err != nil {
		return err
	}

	*e = job.Event{
		ID:     w.ID,
		Object: w.Object,
		Name:   w.Name,
		JobID:  w.JobID,
		Key:    w.Key,
	}
	if w.CreatedAt != 0 {
		e.CreatedAt = job.Timestamp{Time: time.UnixMilli(w.CreatedAt).UTC()}
	}
	if w.Data != nil {
		raw, err := json.Marshal(w.Data)
		if err != nil {
			return fmt.Errorf("stream: msgpack decode data: %w", err)
		}
		e.Data = raw
	}
	return nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }
