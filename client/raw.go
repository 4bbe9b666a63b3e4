package client

import (
	"context"
	"net/url"
)

// Raw performs an arbitrary API call relative to the API base URL. body,
// when non-nil, is sent as JSON; a 2xx response is decoded into out when
// out is non-nil.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := require("path", path); err != nil {
		return err
	}
	return c.do(ctx, request{op: "raw", method: method, path: path, query: query, body: body}, out)
}
