package wrengo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestOnExchangeFailureNonAuthStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"forbidden", http.StatusForbidden},
		{"not found", http.StatusNotFound},
		{"validation", http.StatusUnprocessableEntity},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verifyCalls, teardownCalls, navigateCalls atomic.Int32
			coordinator := NewReauthCoordinator(ReauthConfig{
				Verify: func(ctx context.Context) (VerifyResult, error) {
					verifyCalls.Add(1)
					return VerifyResult{Valid: true}, nil
				},
				Teardown: func(ctx context.Context) error {
					teardownCalls.Add(1)
					return nil
				},
				Navigate: func(path string) {
					navigateCalls.Add(1)
				},
			})

			origErr := errors.New("request failed")
			ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: tt.statusCode, Err: origErr}

			err := coordinator.OnExchangeFailure(context.Background(), ex)
			if err != origErr {
				t.Errorf("Expected original error, got %v", err)
			}
			if verifyCalls.Load() != 0 || teardownCalls.Load() != 0 || navigateCalls.Load() != 0 {
				t.Errorf("Expected no side effects, got verify=%d teardown=%d navigate=%d",
					verifyCalls.Load(), teardownCalls.Load(), navigateCalls.Load())
			}
		})
	}
}

func TestOnExchangeFailureVerifyEndpointNoRecursion(t *testing.T) {
	var verifyCalls atomic.Int32
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			verifyCalls.Add(1)
			return VerifyResult{Valid: false, ReasonStatus: http.StatusUnauthorized}, nil
		},
		VerifyEndpoint: "/public/session",
	})

	origErr := errors.New("unauthorized")
	ex := Exchange{
		URL:        "https://api.wren.localhost/public/session",
		Path:       "/public/session",
		StatusCode: http.StatusUnauthorized,
		Err:        origErr,
	}

	err := coordinator.OnExchangeFailure(context.Background(), ex)
	if err != origErr {
		t.Errorf("Expected original error, got %v", err)
	}
	if verifyCalls.Load() != 0 {
		t.Errorf("Expected no verification for the verify endpoint itself, got %d", verifyCalls.Load())
	}
	if coordinator.Verifying() {
		t.Error("Guard must stay released for verify-endpoint failures")
	}
}

func TestOnExchangeFailureConcurrentBurst(t *testing.T) {
	var verifyCalls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			verifyCalls.Add(1)
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return VerifyResult{Valid: true}, nil
		},
	})

	origErr := errors.New("unauthorized")
	makeExchange := func(i int) Exchange {
		return Exchange{
			URL:        fmt.Sprintf("https://api/things/%d", i),
			Path:       fmt.Sprintf("/things/%d", i),
			StatusCode: http.StatusUnauthorized,
			Err:        origErr,
		}
	}

	// First failure acquires the guard and blocks in the verifier.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := coordinator.OnExchangeFailure(context.Background(), makeExchange(0)); err != origErr {
			t.Errorf("Expected original error from winner, got %v", err)
		}
	}()
	<-started

	// The rest of the burst must skip immediately without a second
	// verification, while the first is still in flight.
	for i := 1; i < 8; i++ {
		err := coordinator.OnExchangeFailure(context.Background(), makeExchange(i))
		if err != origErr {
			t.Errorf("Expected original error from skipped failure %d, got %v", i, err)
		}
	}
	if got := verifyCalls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 verification for the burst, got %d", got)
	}

	close(release)
	wg.Wait()

	if coordinator.Verifying() {
		t.Error("Guard must be released after the verification settles")
	}

	// A fresh failure after settlement triggers exactly one new
	// verification. The release channel is closed, so it returns promptly.
	done := make(chan error, 1)
	go func() {
		done <- coordinator.OnExchangeFailure(context.Background(), makeExchange(100))
	}()
	select {
	case err := <-done:
		if err != origErr {
			t.Errorf("Expected original error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Second verification cycle did not complete")
	}
	if got := verifyCalls.Load(); got != 2 {
		t.Errorf("Expected a second verification after the guard reset, got %d total", got)
	}
}

func TestOnExchangeFailureSessionStillValid(t *testing.T) {
	var teardownCalls, navigateCalls atomic.Int32
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			return VerifyResult{Valid: true}, nil
		},
		Teardown: func(ctx context.Context) error {
			teardownCalls.Add(1)
			return nil
		},
		Navigate: func(path string) {
			navigateCalls.Add(1)
		},
	})

	origErr := errors.New("unauthorized")
	ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: http.StatusUnauthorized, Err: origErr}

	if err := coordinator.OnExchangeFailure(context.Background(), ex); err != origErr {
		t.Errorf("Expected original error, got %v", err)
	}
	if teardownCalls.Load() != 0 || navigateCalls.Load() != 0 {
		t.Errorf("Expected no teardown/navigation for a valid session, got teardown=%d navigate=%d",
			teardownCalls.Load(), navigateCalls.Load())
	}
}

func TestOnExchangeFailureSessionConfirmedInvalid(t *testing.T) {
	var teardownCalls atomic.Int32
	var navigatedTo []string
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			return VerifyResult{Valid: false, ReasonStatus: http.StatusUnauthorized}, nil
		},
		Teardown: func(ctx context.Context) error {
			teardownCalls.Add(1)
			return nil
		},
		Navigate: func(path string) {
			navigatedTo = append(navigatedTo, path)
		},
		CurrentPath: func() string { return "/dashboard" },
	})

	origErr := errors.New("unauthorized")
	ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: http.StatusUnauthorized, Err: origErr}

	if err := coordinator.OnExchangeFailure(context.Background(), ex); err != origErr {
		t.Errorf("Expected original error even after teardown, got %v", err)
	}
	if teardownCalls.Load() != 1 {
		t.Errorf("Expected exactly one teardown, got %d", teardownCalls.Load())
	}
	if len(navigatedTo) != 1 || navigatedTo[0] != "/login" {
		t.Errorf("Expected single navigation to /login, got %v", navigatedTo)
	}
	if coordinator.Verifying() {
		t.Error("Guard must be released after teardown")
	}
}

func TestOnExchangeFailureAlreadyAtLoginPath(t *testing.T) {
	var navigateCalls atomic.Int32
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			return VerifyResult{Valid: false, ReasonStatus: http.StatusUnauthorized}, nil
		},
		Navigate: func(path string) {
			navigateCalls.Add(1)
		},
		CurrentPath: func() string { return "/login" },
	})

	ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: http.StatusUnauthorized, Err: errors.New("unauthorized")}
	coordinator.OnExchangeFailure(context.Background(), ex)

	if navigateCalls.Load() != 0 {
		t.Errorf("Expected no navigation when already at the login path, got %d", navigateCalls.Load())
	}
}

func TestOnExchangeFailureInvalidNonAuthReason(t *testing.T) {
	var teardownCalls, navigateCalls atomic.Int32
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			return VerifyResult{Valid: false, ReasonStatus: http.StatusServiceUnavailable}, nil
		},
		Teardown: func(ctx context.Context) error {
			teardownCalls.Add(1)
			return nil
		},
		Navigate: func(path string) {
			navigateCalls.Add(1)
		},
	})

	origErr := errors.New("unauthorized")
	ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: http.StatusUnauthorized, Err: origErr}

	if err := coordinator.OnExchangeFailure(context.Background(), ex); err != origErr {
		t.Errorf("Expected original error, got %v", err)
	}
	if teardownCalls.Load() != 0 || navigateCalls.Load() != 0 {
		t.Error("Non-auth invalid reason must not trigger teardown or navigation")
	}
}

func TestOnExchangeFailureVerifierInfrastructureError(t *testing.T) {
	var teardownCalls atomic.Int32
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			return VerifyResult{}, errors.New("verification endpoint unreachable")
		},
		Teardown: func(ctx context.Context) error {
			teardownCalls.Add(1)
			return nil
		},
	})

	origErr := errors.New("unauthorized")
	ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: http.StatusUnauthorized, Err: origErr}

	err := coordinator.OnExchangeFailure(context.Background(), ex)
	if err != origErr {
		t.Errorf("Verifier failure must never replace the original error, got %v", err)
	}
	if teardownCalls.Load() != 0 {
		t.Error("Verifier failure must not trigger teardown")
	}
	if coordinator.Verifying() {
		t.Error("Guard must be released after a verifier failure")
	}
}

func TestOnExchangeSuccessPassThrough(t *testing.T) {
	coordinator := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			return VerifyResult{Valid: true}, nil
		},
	})

	resp := &http.Response{StatusCode: http.StatusOK}
	if got := coordinator.OnExchangeSuccess(resp); got != resp {
		t.Error("Success hook must pass the response through unchanged")
	}
}

func TestIndependentCoordinatorsDoNotShareGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocking := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			close(started)
			<-release
			return VerifyResult{Valid: true}, nil
		},
	})

	var otherVerifyCalls atomic.Int32
	other := NewReauthCoordinator(ReauthConfig{
		Verify: func(ctx context.Context) (VerifyResult, error) {
			otherVerifyCalls.Add(1)
			return VerifyResult{Valid: true}, nil
		},
	})

	origErr := errors.New("unauthorized")
	ex := Exchange{URL: "https://api/things", Path: "/things", StatusCode: http.StatusUnauthorized, Err: origErr}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		blocking.OnExchangeFailure(context.Background(), ex)
	}()
	<-started

	// The second coordinator has its own guard and verifies independently.
	if err := other.OnExchangeFailure(context.Background(), ex); err != origErr {
		t.Errorf("Expected original error, got %v", err)
	}
	if otherVerifyCalls.Load() != 1 {
		t.Errorf("Expected independent coordinator to verify, got %d calls", otherVerifyCalls.Load())
	}

	close(release)
	wg.Wait()
}
