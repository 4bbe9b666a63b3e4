package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Debug("api: write response failed", slog.String("error", err.Error()))
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.logger.Warn("api: request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	a.writeJSON(w, status, ErrorResponse{Error: err.Error(), Status: status})
}

// statusOf maps jobwatch errors to HTTP status codes.
func statusOf(err error) int {
	var (
		ce *jobwatch.ClientError
		se *jobwatch.ServerError
		pe *jobwatch.ParseError
	)
	switch {
	case errors.Is(err, jobwatch.ErrNoJobID),
		errors.Is(err, jobwatch.ErrEmptyArgument),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNotImplemented):
		return http.StatusNotImplemented
	case errors.As(err, &ce):
		return ce.StatusCode
	case errors.As(err, &se), errors.As(err, &pe):
		return http.StatusBadGateway
	case errors.Is(err, jobwatch.ErrTrackerClosed), errors.Is(err, jobwatch.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest     = errors.New("jobwatch/api: bad request")
	errNotImplemented = errors.New("jobwatch/api: store cannot list snapshots")
)
