package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

// Jobs lists jobs matching opts.
func (c *Client) Jobs(ctx context.Context, opts job.ListOpts) (*job.List[job.Snapshot], error) {
	q := url.Values{}
	if opts.ServiceID != "" {
		q.Set("serviceId", opts.ServiceID)
	}
	if opts.State != "" {
		q.Set("state", string(opts.State))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var out job.List[job.Snapshot]
	if err := c.do(ctx, request{op: "job.list", path: "jobs", query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateJob creates a job for req.ServiceID.
func (c *Client) CreateJob(ctx context.Context, req job.CreateRequest) (*job.Snapshot, error) {
	if err := require("serviceId", req.ServiceID); err != nil {
		return nil, err
	}
	return c.snapshot(ctx, request{op: "job.create", method: http.MethodPost, path: "jobs", body: req})
}

// GetJob fetches the current representation of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*job.Snapshot, error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	return c.snapshot(ctx, request{op: "job.get", path: "jobs/" + jobID, jobID: jobID})
}

// Fetch implements tracker.Fetcher.
func (c *Client) Fetch(ctx context.Context, jobID string) (*job.Snapshot, error) {
	return c.GetJob(ctx, jobID)
}

// CancelJob asks the API to cancel a job.
func (c *Client) CancelJob(ctx context.Context, jobID string) (*job.Snapshot, error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	return c.snapshot(ctx, request{op: "job.cancel", method: http.MethodPost, path: "jobs/" + jobID + "/cancel", jobID: jobID})
}

// ResetJob asks the API to restart a job.
func (c *Client) ResetJob(ctx context.Context, jobID string) (*job.Snapshot, error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	return c.snapshot(ctx, request{op: "job.reset", method: http.MethodPost, path: "jobs/" + jobID + "/reset", jobID: jobID})
}

// snapshot performs r and decodes a complete job representation.
func (c *Client) snapshot(ctx context.Context, r request) (*job.Snapshot, error) {
	var s job.Snapshot
	if err := c.do(ctx, r, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, &jobwatch.ParseError{Err: err}
	}
	return &s, nil
}

// CreateJobInput submits data for the input key. Stage may be empty.
func (c *Client) CreateJobInput(ctx context.Context, jobID, key, stage string, data any) (*job.Input, error) {
	if err := require("jobId", jobID, "key", key); err != nil {
		return nil, err
	}
	body := struct {
		Key   string `json:"key"`
		Stage string `json:"stage,omitempty"`
		Data  any    `json:"data"`
	}{key, stage, data}

	var out job.Input
	err := c.do(ctx, request{
		op:     "job.input.create",
		method: http.MethodPost,
		path:   "jobs/" + jobID + "/inputs",
		jobID:  jobID,
		body:   body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// JobOutputs lists every output a job emitted so far.
func (c *Client) JobOutputs(ctx context.Context, jobID string) (*job.List[job.Output], error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	var out job.List[job.Output]
	if err := c.do(ctx, request{op: "job.outputs", path: "jobs/" + jobID + "/outputs", jobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobOutput fetches one output by key, optionally narrowed to a stage.
func (c *Client) JobOutput(ctx context.Context, jobID, key, stage string) (*job.Output, error) {
	if err := require("jobId", jobID, "key", key); err != nil {
		return nil, err
	}
	path := "jobs/" + jobID + "/outputs/" + key
	if stage != "" {
		path += "/" + stage
	}
	var out job.Output
	if err := c.do(ctx, request{op: "job.output", path: path, jobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobMimoLogs lists the engine log of a job.
func (c *Client) JobMimoLogs(ctx context.Context, jobID string) (*job.List[job.MimoLog], error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	var out job.List[job.MimoLog]
	if err := c.do(ctx, request{op: "job.mimo_logs", path: "jobs/" + jobID + "/mimo-logs", jobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobEndUser issues an end-user token for a job.
func (c *Client) JobEndUser(ctx context.Context, jobID string) (*job.EndUser, error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	var out job.EndUser
	if err := c.do(ctx, request{op: "job.end_user", path: "jobs/" + jobID + "/end-user", jobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobEvents lists a job's events starting at offset.
func (c *Client) JobEvents(ctx context.Context, jobID string, offset int) (*job.List[job.Event], error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, jobwatch.ErrInvalidOffset
	}
	q := url.Values{"offset": {strconv.Itoa(offset)}}

	var out job.List[job.Event]
	if err := c.do(ctx, request{op: "job.events", path: "jobs/" + jobID + "/events", jobID: jobID, query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
