package client

import (
	"context"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

// EndUser is a client for a short-lived end-user token. Every call is
// bound to the job and service the token was issued for.
type EndUser struct {
	c         *Client
	jobID     string
	serviceID string
}

// NewEndUser creates an end-user client. cfg.Token, jobID and serviceID
// are all required.
func NewEndUser(cfg jobwatch.Config, jobID, serviceID string, opts ...Option) (*EndUser, error) {
	if cfg.Token == "" {
		return nil, jobwatch.ErrNoToken
	}
	if jobID == "" {
		return nil, jobwatch.ErrNoJobID
	}
	if serviceID == "" {
		return nil, jobwatch.ErrNoServiceID
	}
	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &EndUser{c: c, jobID: jobID, serviceID: serviceID}, nil
}

// JobID returns the job the token is bound to.
func (u *EndUser) JobID() string { return u.jobID }

// ServiceID returns the service the token is bound to.
func (u *EndUser) ServiceID() string { return u.serviceID }

// Client returns the underlying API client.
func (u *EndUser) Client() *Client { return u.c }

// Service fetches the bound service.
func (u *EndUser) Service(ctx context.Context) (*job.Service, error) {
	return u.c.Service(ctx, u.serviceID)
}

// PreviousJobOutputs looks up outputs of earlier jobs of the bound service.
func (u *EndUser) PreviousJobOutputs(ctx context.Context, inputs []job.Input) (*job.List[job.Output], error) {
	return u.c.PreviousJobOutputs(ctx, u.serviceID, inputs)
}

// Job fetches the bound job.
func (u *EndUser) Job(ctx context.Context) (*job.Snapshot, error) {
	return u.c.GetJob(ctx, u.jobID)
}

// Fetch implements tracker.Fetcher. The token only grants access to the
// bound job, so other ids fail with a ClientError from the API.
func (u *EndUser) Fetch(ctx context.Context, jobID string) (*job.Snapshot, error) {
	return u.c.GetJob(ctx, jobID)
}

// CancelJob cancels the bound job.
func (u *EndUser) CancelJob(ctx context.Context) (*job.Snapshot, error) {
	return u.c.CancelJob(ctx, u.jobID)
}

// ResetJob restarts the bound job.
func (u *EndUser) ResetJob(ctx context.Context) (*job.Snapshot, error) {
	return u.c.ResetJob(ctx, u.jobID)
}

// CreateJobInput submits an input to the bound job.
func (u *EndUser) CreateJobInput(ctx context.Context, key, stage string, data any) (*job.Input, error) {
	return u.c.CreateJobInput(ctx, u.jobID, key, stage, data)
}

// JobOutputs lists the bound job's outputs.
func (u *EndUser) JobOutputs(ctx context.Context) (*job.List[job.Output], error) {
	return u.c.JobOutputs(ctx, u.jobID)
}

// JobOutput fetches one output of the bound job.
func (u *EndUser) JobOutput(ctx context.Context, key, stage string) (*job.Output, error) {
	return u.c.JobOutput(ctx, u.jobID, key, stage)
}

// JobScreenshots lists the bound job's screenshots.
func (u *EndUser) JobScreenshots(ctx context.Context) (*job.List[job.Screenshot], error) {
	return u.c.JobScreenshots(ctx, u.jobID)
}

// JobScreenshot downloads a screenshot of the bound job by id, or by
// server-supplied path when idOrPath starts with "/".
func (u *EndUser) JobScreenshot(ctx context.Context, idOrPath string) ([]byte, error) {
	if len(idOrPath) > 0 && idOrPath[0] == '/' {
		return u.c.JobScreenshot(ctx, idOrPath, "", "")
	}
	return u.c.JobScreenshot(ctx, u.jobID, idOrPath, "")
}

// JobMimoLogs lists the bound job's engine log.
func (u *EndUser) JobMimoLogs(ctx context.Context) (*job.List[job.MimoLog], error) {
	return u.c.JobMimoLogs(ctx, u.jobID)
}

// JobEvents lists the bound job's events from offset.
func (u *EndUser) JobEvents(ctx context.Context, offset int) (*job.List[job.Event], error) {
	return u.c.JobEvents(ctx, u.jobID, offset)
}

// VaultPan exchanges a card number for a temporary vault token.
func (u *EndUser) VaultPan(ctx context.Context, pan string) (string, error) {
	return u.c.VaultPan(ctx, pan)
}
