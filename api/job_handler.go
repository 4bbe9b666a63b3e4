package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/tracker"
)

// SessionResponse describes an active tracking session.
type SessionResponse struct {
	ID          string        `json:"id"`
	JobID       string        `json:"jobId"`
	Phase       string        `json:"phase"`
	Backoff     int           `json:"backoff"`
	Fetches     int           `json:"fetches"`
	Subscribers int           `json:"subscribers"`
	Started     time.Time     `json:"started"`
	Last        *job.Snapshot `json:"last,omitempty"`
}

// StatsResponse holds tracker and broker counters.
type StatsResponse struct {
	Transport      string              `json:"transport"`
	ActiveSessions int                 `json:"activeSessions"`
	Broker         *brokerStatsPayload `json:"broker,omitempty"`
}

type brokerStatsPayload struct {
	Topics      int   `json:"topics"`
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Dropped     int64 `json:"dropped"`
}

type snapshotLister interface {
	ListSnapshots(ctx context.Context) ([]*job.Snapshot, error)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	snap, err := a.eng.Client().GetJob(r.Context(), r.PathValue("jobId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snap)
}

// waitJob blocks until the job reaches a terminal state or the timeout
// query parameter (default DefaultWaitTimeout) elapses.
func (a *API) waitJob(w http.ResponseWriter, r *http.Request) {
	timeout := a.waitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			a.writeError(w, fmt.Errorf("%w: invalid timeout %q", errBadRequest, raw))
			return
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	snap, err := a.eng.Wait(ctx, r.PathValue("jobId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snap)
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	info, ok := a.eng.Tracker().Session(r.PathValue("jobId"))
	if !ok {
		a.writeError(w, fmt.Errorf("session %q: %w", r.PathValue("jobId"), job.ErrNotFound))
		return
	}
	a.writeJSON(w, http.StatusOK, sessionResponse(info))
}

func (a *API) listSnapshots(w http.ResponseWriter, r *http.Request) {
	lister, ok := a.eng.Store().(snapshotLister)
	if !ok {
		a.writeError(w, errNotImplemented)
		return
	}
	snaps, err := lister.ListSnapshots(r.Context())
	if err != nil {
		a.writeError(w, fmt.Errorf("list snapshots: %w", err))
		return
	}
	if snaps == nil {
		snaps = []*job.Snapshot{}
	}
	a.writeJSON(w, http.StatusOK, snaps)
}

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{
		Transport:      a.eng.Source().Name(),
		ActiveSessions: a.eng.Tracker().ActiveSessions(),
	}
	if a.broker != nil {
		s := a.broker.Stats()
		resp.Broker = &brokerStatsPayload{
			Topics:      s.TopicCount,
			Subscribers: s.SubscriberCount,
			Published:   s.TotalPublished,
			Dropped:     s.TotalDropped,
		}
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func sessionResponse(info tracker.SessionInfo) SessionResponse {
	return SessionResponse{
		ID:          info.ID.String(),
		JobID:       info.JobID,
		Phase:       string(info.Phase),
		Backoff:     info.Backoff,
		Fetches:     info.Fetches,
		Subscribers: info.Subscribers,
		Started:     info.Started,
		Last:        info.Last,
	}
}
