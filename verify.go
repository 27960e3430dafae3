package wrengo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// SessionVerifyPath is the endpoint queried to confirm session validity.
const SessionVerifyPath = "/public/session"

// CheckSession queries the session-verification endpoint and reports whether
// the current session is still valid. A 401 or 403 from the endpoint is a
// clean invalid-session result, not an error; any other failure is an
// infrastructure error of the verification itself.
func (c *Client) CheckSession(ctx context.Context) (VerifyResult, error) {
	resp, err := c.Get(ctx, SessionVerifyPath, nil)
	if err != nil {
		var wErr *Error
		if errors.As(err, &wErr) {
			switch wErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return VerifyResult{Valid: false, ReasonStatus: wErr.StatusCode}, nil
			}
		}
		return VerifyResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return VerifyResult{Valid: true}, nil
	}
	return VerifyResult{}, NewAPIError(
		fmt.Sprintf("unexpected session check status: %s", resp.Status), resp.StatusCode)
}

// TeardownSession clears the client's session state. The server-side logout
// is best effort; a failed logout call never fails the teardown, since the
// local credentials are cleared either way.
func (c *Client) TeardownSession(ctx context.Context) error {
	if err := c.Logout(ctx); err != nil {
		c.logger.Warn("logout during session teardown failed", "error", err)
	}
	return nil
}

// EnableReauth constructs a ReauthCoordinator bound to this client and
// registers its hooks on the response interceptor chain. Zero-value config
// fields are filled with client-backed defaults: CheckSession as the
// verifier, TeardownSession as the teardown, and SessionVerifyPath as the
// excluded verification endpoint. The coordinator is returned so callers can
// inspect it.
func (c *Client) EnableReauth(cfg ReauthConfig) *ReauthCoordinator {
	if cfg.Verify == nil {
		cfg.Verify = c.CheckSession
	}
	if cfg.Teardown == nil {
		cfg.Teardown = c.TeardownSession
	}
	if cfg.VerifyEndpoint == "" {
		cfg.VerifyEndpoint = SessionVerifyPath
	}
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}

	coordinator := NewReauthCoordinator(cfg)
	c.UseResponseHooks(coordinator.OnExchangeSuccess, coordinator.OnExchangeFailure)
	return coordinator
}
