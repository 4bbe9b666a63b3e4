package middleware

import (
	"errors"

	"github.com/xraph/jobwatch"
)

// Outcome labels used by the logging, tracing and metrics middleware.
const (
	OutcomeOK          = "ok"
	OutcomeClientError = "client_error"
	OutcomeServerError = "server_error"
	OutcomeParseError  = "parse_error"
	OutcomeError       = "error"
)

// Outcome classifies the result of a call.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var (
		ce *jobwatch.ClientError
		se *jobwatch.ServerError
		pe *jobwatch.ParseError
	)
	switch {
	case errors.As(err, &ce):
		return OutcomeClientError
	case errors.As(err, &se):
		return OutcomeServerError
	case errors.As(err, &pe):
		return OutcomeParseError
	default:
		return OutcomeError
	}
}
