package client

import (
	"context"
	"strings"

	"github.com/xraph/jobwatch/job"
)

// JobScreenshots lists the screenshots taken while a job ran.
func (c *Client) JobScreenshots(ctx context.Context, jobID string) (*job.List[job.Screenshot], error) {
	if err := require("jobId", jobID); err != nil {
		return nil, err
	}
	var out job.List[job.Screenshot]
	if err := c.do(ctx, request{op: "job.screenshots", path: "jobs/" + jobID + "/screenshots", jobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobScreenshot downloads one screenshot image. When jobIDOrPath starts
// with "/" it is a server-supplied path (Screenshot.URL) and the other
// arguments are ignored. An empty ext means "png".
func (c *Client) JobScreenshot(ctx context.Context, jobIDOrPath, screenshotID, ext string) ([]byte, error) {
	r := request{op: "job.screenshot"}
	if strings.HasPrefix(jobIDOrPath, "/") {
		r.path = jobIDOrPath
	} else {
		if err := require("jobId", jobIDOrPath, "id", screenshotID); err != nil {
			return nil, err
		}
		if ext == "" {
			ext = "png"
		}
		r.path = "jobs/" + jobIDOrPath + "/screenshots/" + screenshotID + "." + ext
		r.jobID = jobIDOrPath
	}

	var img []byte
	err := c.send(ctx, r, func(data []byte) error {
		img = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
