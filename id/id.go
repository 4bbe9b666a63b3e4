// Package id defines TypeID-based identifiers for the handles jobwatch
// hands out. IDs are UUIDv7-based, so they sort by creation time, and
// render as "prefix_suffix" with a base32 suffix.
package id

import (
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in an ID.
type Prefix string

// Prefix constants.
const (
	PrefixSubscription Prefix = "sub"
	PrefixSession      Prefix = "ses"
	PrefixStream       Prefix = "str"
)

// ID is a prefix-qualified, time-ordered TypeID.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new ID with the given prefix. It panics if prefix is
// not a valid TypeID prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// NewSubscriptionID generates a subscription handle ID.
func NewSubscriptionID() ID { return New(PrefixSubscription) }

// NewSessionID generates a tracking session ID.
func NewSessionID() ID { return New(PrefixSession) }

// NewStreamID generates an event stream subscriber ID.
func NewStreamID() ID { return New(PrefixStream) }

// Parse parses "prefix_suffix" into an ID. IDs without a prefix are
// rejected.
func Parse(s string) (ID, error) {
	if strings.IndexByte(s, '_') <= 0 {
		return Nil, fmt.Errorf("id: parse %q: missing prefix", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks its prefix.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the ID's prefix.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
