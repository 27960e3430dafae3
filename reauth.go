package wrengo

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Exchange describes one failed HTTP request/response attempt as observed by
// the failure hooks.
type Exchange struct {
	URL        string
	Path       string
	StatusCode int
	RequestID  string
	Err        error // The original failure; hooks must re-signal this
}

// VerifyResult is the discriminated outcome of a session verification.
// ReasonStatus is only meaningful when Valid is false.
type VerifyResult struct {
	Valid        bool
	ReasonStatus int
}

// SessionVerifier queries whether the current session is still valid. An
// error return means the verification itself failed (infrastructure error),
// which is distinct from a clean invalid-session result.
type SessionVerifier func(ctx context.Context) (VerifyResult, error)

// TeardownFunc clears session state after a confirmed invalid session.
type TeardownFunc func(ctx context.Context) error

// NavigateFunc sends the user to the given path after session teardown.
type NavigateFunc func(path string)

// ReauthConfig configures a ReauthCoordinator. Verify is required; the other
// collaborators are optional.
type ReauthConfig struct {
	// Verify is the shared session verification operation. Its owner is
	// responsible for ensuring it settles (e.g. via an HTTP timeout);
	// a verification that never returns leaves the guard held forever.
	Verify SessionVerifier

	// Teardown is invoked once per verification cycle when the session is
	// confirmed invalid.
	Teardown TeardownFunc

	// Navigate is invoked with LoginPath after teardown, unless CurrentPath
	// already reports that path.
	Navigate NavigateFunc

	// CurrentPath reports the user's current location, used to avoid
	// redundant navigation. May be nil, in which case Navigate always runs.
	CurrentPath func() string

	// LoginPath is the redirect target for unauthenticated users.
	LoginPath string

	// VerifyEndpoint is the request path of the session-verification
	// endpoint. Failures on this path never trigger another verification.
	VerifyEndpoint string

	Logger *slog.Logger
}

func (cfg *ReauthConfig) defaults() {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// ReauthCoordinator decides, for each failed exchange, whether the failure
// represents a potential session invalidation, and resolves the ambiguity
// through a single shared verification call. However many requests fail with
// 401 concurrently, at most one verification is in flight at a time; the
// losers keep their original failures and return immediately.
//
// Each coordinator owns its own guard. Independent clients get independent
// coordinators and never contend with each other.
type ReauthCoordinator struct {
	cfg       ReauthConfig
	verifying atomic.Bool
}

// NewReauthCoordinator creates a coordinator with the given configuration.
func NewReauthCoordinator(cfg ReauthConfig) *ReauthCoordinator {
	cfg.defaults()
	return &ReauthCoordinator{cfg: cfg}
}

// OnExchangeSuccess is the pass-through success hook.
func (rc *ReauthCoordinator) OnExchangeSuccess(resp *http.Response) *http.Response {
	return resp
}

// OnExchangeFailure inspects a failed exchange and, for an unverified 401,
// runs the session verification. The returned error is always ex.Err: the
// coordinator adds side effects (at most one verification, at most one
// teardown, at most one navigation per cycle) but never replaces or
// suppresses the original failure.
func (rc *ReauthCoordinator) OnExchangeFailure(ctx context.Context, ex Exchange) error {
	if ex.StatusCode != http.StatusUnauthorized {
		return ex.Err
	}

	// A 401 from the verification endpoint itself must not recurse.
	if rc.cfg.VerifyEndpoint != "" && strings.HasSuffix(ex.Path, rc.cfg.VerifyEndpoint) {
		return ex.Err
	}

	// Latch acquisition and the in-flight check are a single atomic step.
	// Losers skip: their original 401 is still a valid signal to their
	// callers, and the winner's verification covers the whole burst.
	if !rc.verifying.CompareAndSwap(false, true) {
		return ex.Err
	}
	defer rc.verifying.Store(false)

	result, err := rc.cfg.Verify(ctx)
	if err != nil {
		rc.cfg.Logger.Error("session verification failed",
			"url", ex.URL, "request_id", ex.RequestID, "error", err)
		return ex.Err
	}

	if result.Valid {
		// The 401 was incidental (e.g. a resource-level permission issue).
		return ex.Err
	}

	if result.ReasonStatus != http.StatusUnauthorized {
		// Invalid for a non-auth reason: not grounds for logout.
		return ex.Err
	}

	rc.cfg.Logger.Info("session confirmed invalid, tearing down",
		"request_id", ex.RequestID)

	if rc.cfg.Teardown != nil {
		if err := rc.cfg.Teardown(ctx); err != nil {
			rc.cfg.Logger.Error("session teardown failed", "error", err)
		}
	}

	if rc.cfg.Navigate != nil {
		if rc.cfg.CurrentPath == nil || rc.cfg.CurrentPath() != rc.cfg.LoginPath {
			rc.cfg.Navigate(rc.cfg.LoginPath)
		}
	}

	return ex.Err
}

// Verifying reports whether a session verification is currently in flight.
func (rc *ReauthCoordinator) Verifying() bool {
	return rc.verifying.Load()
}
