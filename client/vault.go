package client

import (
	"context"
	"net/http"
)

// VaultPan stores a card number in the vault and returns a temporary
// token that jobs accept in its place. It runs the three-step vault
// exchange: one-time password, PAN upload, temporary token.
func (c *Client) VaultPan(ctx context.Context, pan string) (string, error) {
	if err := require("pan", pan); err != nil {
		return "", err
	}

	var otp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, request{op: "vault.otp", method: http.MethodPost, base: c.vaultURL, path: "otp"}, &otp); err != nil {
		return "", err
	}

	var stored struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	err := c.do(ctx, request{
		op:     "vault.pan",
		method: http.MethodPost,
		base:   c.vaultURL,
		path:   "pan",
		body:   map[string]string{"otp": otp.ID, "pan": pan},
	}, &stored)
	if err != nil {
		return "", err
	}

	var temp struct {
		PanToken string `json:"panToken"`
	}
	err = c.do(ctx, request{
		op:     "vault.pan_temporary",
		method: http.MethodPost,
		base:   c.vaultURL,
		path:   "pan/temporary",
		body:   map[string]string{"panId": stored.ID, "key": stored.Key},
	}, &temp)
	if err != nil {
		return "", err
	}
	return temp.PanToken, nil
}
