package client

import (
	"context"
	"net/http"

	"github.com/xraph/jobwatch/job"
)

// Services lists the services the token can create jobs for.
func (c *Client) Services(ctx context.Context) (*job.List[job.Service], error) {
	var out job.List[job.Service]
	if err := c.do(ctx, request{op: "service.list", path: "services"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Service fetches one service.
func (c *Client) Service(ctx context.Context, serviceID string) (*job.Service, error) {
	if err := require("serviceId", serviceID); err != nil {
		return nil, err
	}
	var out job.Service
	if err := c.do(ctx, request{op: "service.get", path: "services/" + serviceID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviousJobOutputs looks up outputs of earlier jobs of a service whose
// inputs match. A nil inputs slice is sent as an empty list.
func (c *Client) PreviousJobOutputs(ctx context.Context, serviceID string, inputs []job.Input) (*job.List[job.Output], error) {
	if err := require("serviceId", serviceID); err != nil {
		return nil, err
	}
	if inputs == nil {
		inputs = []job.Input{}
	}
	var out job.List[job.Output]
	err := c.do(ctx, request{
		op:     "service.previous_outputs",
		method: http.MethodPost,
		path:   "services/" + serviceID + "/previous-job-outputs",
		body:   job.PreviousOutputsRequest{Inputs: inputs},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
