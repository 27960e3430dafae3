package wrengo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wrenhq/wren-go/cache"
)

// RequestHook is invoked on every outgoing request before it is sent.
type RequestHook func(req *http.Request) error

// SuccessHook is invoked on every response that is not an error. It may
// replace the response; returning the input unchanged is the pass-through.
type SuccessHook func(resp *http.Response) *http.Response

// FailureHook is invoked on every failed exchange (HTTP status >= 400).
// It must return the error that the caller ultimately observes; hooks that
// only add side effects return ex.Err unchanged.
type FailureHook func(ctx context.Context, ex Exchange) error

// Client represents the main Wren API client
type Client struct {
	baseURL          string
	httpClient       *http.Client
	refreshTokenPath string
	accessToken      string
	accessExpiry     time.Time
	mu               sync.RWMutex // Protects accessToken and accessExpiry
	logger           *slog.Logger

	hookMu       sync.RWMutex // Protects the hook chains
	requestHooks []RequestHook
	successHooks []SuccessHook
	failureHooks []FailureHook

	cacheStore cache.Store
	cacheTTL   time.Duration
}

// ClientOption represents a functional option for configuring the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRefreshTokenPath sets a custom path for storing the refresh token
func WithRefreshTokenPath(path string) ClientOption {
	return func(c *Client) {
		c.refreshTokenPath = path
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithResponseCache enables serving GET responses from the given store.
// Entries are kept for ttl; expired entries are refetched and overwritten.
func WithResponseCache(store cache.Store, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cacheStore = store
		c.cacheTTL = ttl
	}
}

// NewClient creates a new Wren API client with the given base URL and options
func NewClient(baseURL string, options ...ClientOption) *Client {
	// Set default refresh token path
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultRefreshTokenPath := filepath.Join(homeDir, ".wren", "refresh_token")

	client := &Client{
		baseURL:          baseURL,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		refreshTokenPath: defaultRefreshTokenPath,
		logger:           slog.Default(),
	}

	// Apply options
	for _, option := range options {
		option(client)
	}

	if tlsConfig, err := configureTLSForLocalhost(baseURL); err == nil {
		applyTLSConfig(client.httpClient, tlsConfig)
	}

	return client
}

// GetBaseURL returns the client's base URL
func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// GetHTTPClient returns the underlying HTTP client
func (c *Client) GetHTTPClient() *http.Client {
	return c.httpClient
}

// GetRefreshTokenPath returns the path where refresh tokens are stored
func (c *Client) GetRefreshTokenPath() string {
	return c.refreshTokenPath
}

// Log returns the client's logger
func (c *Client) Log() *slog.Logger {
	return c.logger
}

// UseRequestHook registers a hook run on every outgoing request
func (c *Client) UseRequestHook(hook RequestHook) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.requestHooks = append(c.requestHooks, hook)
}

// UseResponseHooks registers a success hook and a failure hook. Either may
// be nil. This is the interceptor registration point used by EnableReauth.
func (c *Client) UseResponseHooks(onSuccess SuccessHook, onFailure FailureHook) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	if onSuccess != nil {
		c.successHooks = append(c.successHooks, onSuccess)
	}
	if onFailure != nil {
		c.failureHooks = append(c.failureHooks, onFailure)
	}
}

// setAccessToken sets the access token in a thread-safe manner
func (c *Client) setAccessToken(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
	c.accessExpiry = expiry
}

// getAccessToken gets the access token in a thread-safe manner
func (c *Client) getAccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// clearAccessToken clears the access token in a thread-safe manner
func (c *Client) clearAccessToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.accessExpiry = time.Time{}
}

// makeRequest performs an HTTP request with authentication headers and runs
// the registered hook chains.
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := c.baseURL + path

	// Auth and session endpoints must never be served from cache; a stale
	// 200 on the session check would mask an invalidated session.
	cacheable := method == http.MethodGet && c.cacheStore != nil && !strings.HasPrefix(path, "/public/")
	if cacheable {
		if resp := c.serveFromCache(ctx, url); resp != nil {
			return resp, nil
		}
	}

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, NewErrorWithCause(ErrorTypeValidation, "failed to marshal request body", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add authentication header if we have an access token
	if token := c.getAccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	req.Header.Set("X-Request-Id", uuid.New().String())

	// Add custom headers
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// Set default content type for JSON requests
	if req.Header.Get("Content-Type") == "" && (method == "POST" || method == "PUT" || method == "PATCH") {
		req.Header.Set("Content-Type", "application/json")
	}

	c.hookMu.RLock()
	requestHooks := c.requestHooks
	successHooks := c.successHooks
	failureHooks := c.failureHooks
	c.hookMu.RUnlock()

	for _, hook := range requestHooks {
		if err := hook(req); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("request failed", err)
	}

	if resp.StatusCode >= 400 {
		return c.handleFailedExchange(ctx, resp, failureHooks)
	}

	for _, hook := range successHooks {
		resp = hook(resp)
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		c.fillCache(ctx, url, resp)
	}

	return resp, nil
}

// handleFailedExchange drains the response body, builds the structured error
// and the Exchange record, and runs the failure hooks. The error returned to
// the caller is always the exchange's original failure.
func (c *Client) handleFailedExchange(ctx context.Context, resp *http.Response, failureHooks []FailureHook) (*http.Response, error) {
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		body = nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	wErr := WrapHTTPError(resp, body, "request failed")
	ex := Exchange{
		URL:        resp.Request.URL.String(),
		Path:       resp.Request.URL.Path,
		StatusCode: resp.StatusCode,
		RequestID:  resp.Request.Header.Get("X-Request-Id"),
		Err:        wErr,
	}

	err := error(wErr)
	for _, hook := range failureHooks {
		err = hook(ctx, ex)
	}

	return resp, err
}

// serveFromCache returns a synthesized response for a fresh cache entry, or
// nil when the store has nothing usable.
func (c *Client) serveFromCache(ctx context.Context, url string) *http.Response {
	entry, err := c.cacheStore.Get(ctx, url)
	if err != nil || entry == nil {
		return nil
	}

	header := make(http.Header)
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}

	return &http.Response{
		Status:        http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
	}
}

// fillCache records a successful GET response body in the cache store. The
// response body is drained and restored so the caller can still read it.
func (c *Client) fillCache(ctx context.Context, url string, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return
	}

	entry := &cache.Entry{
		Key:         url,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if err := c.cacheStore.Set(ctx, url, entry, c.cacheTTL); err != nil {
		c.logger.Warn("response cache store failed", "url", url, "error", err)
	}
}

// Get performs a GET request to the specified path
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) (*http.Response, error) {
	return c.makeRequest(ctx, "GET", path, nil, headers)
}

// Post performs a POST request to the specified path
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	return c.makeRequest(ctx, "POST", path, body, headers)
}

// Put performs a PUT request to the specified path
func (c *Client) Put(ctx context.Context, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	return c.makeRequest(ctx, "PUT", path, body, headers)
}

// Delete performs a DELETE request to the specified path
func (c *Client) Delete(ctx context.Context, path string, headers map[string]string) (*http.Response, error) {
	return c.makeRequest(ctx, "DELETE", path, nil, headers)
}

// Initialize performs initial setup including token refresh
func (c *Client) Initialize(ctx context.Context) error {
	// Try to refresh access token on initialization
	if err := c.RefreshAccessToken(ctx); err != nil {
		return fmt.Errorf("failed to refresh access token during initialization: %w", err)
	}
	return nil
}
