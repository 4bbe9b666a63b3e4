package jobwatch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Configuration errors.
	ErrNoToken     = errors.New("jobwatch: token required")
	ErrNoJobID     = errors.New("jobwatch: job id required")
	ErrNoServiceID = errors.New("jobwatch: service id required")

	// Argument errors.
	ErrEmptyArgument = errors.New("jobwatch: argument must be a non-empty string")
	ErrInvalidOffset = errors.New("jobwatch: offset must be a non-negative integer")

	// Tracker errors.
	ErrTrackerClosed = errors.New("jobwatch: tracker closed")
	ErrSessionClosed = errors.New("jobwatch: tracking session closed before a terminal state")
)

// ClientError is a non-retryable API failure (status < 500). The caller
// must change something before the request can succeed.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("jobwatch: client error %d: %s", e.StatusCode, e.Message)
}

// ServerError is a transient failure: status >= 500, a transport error, or
// a fetch timeout. Requests failing with it may be retried.
type ServerError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServerError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("jobwatch: server error %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return "jobwatch: transport error: " + e.Err.Error()
	default:
		return "jobwatch: server error: " + e.Message
	}
}

func (e *ServerError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be decoded. It
// terminates tracking like a ClientError.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "jobwatch: malformed response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Classify maps a non-2xx HTTP status and message to ClientError or
// ServerError.
func Classify(status int, message string) error {
	if message == "" {
		message = "Unexpected response"
	}
	if status >= http.StatusInternalServerError {
		return &ServerError{StatusCode: status, Message: message}
	}
	return &ClientError{StatusCode: status, Message: message}
}

// Transport wraps a round-trip failure as a retryable ServerError.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	var se *ServerError
	if errors.As(err, &se) {
		return err
	}
	return &ServerError{Err: err}
}

// IsRetryable reports whether err is a ServerError.
func IsRetryable(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsFatal reports whether err ends a tracking session: everything that is
// not a ServerError.
func IsFatal(err error) bool {
	return err != nil && !IsRetryable(err)
}

// StatusCode extracts the HTTP status carried by a classified error, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
