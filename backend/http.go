package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRetryBackoff   = 500 * time.Millisecond
	maxErrorBodySize      = 64 << 10
)

// HTTPConfig tunes the HTTP client. Zero values fall back to defaults.
type HTTPConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	// RetryBackoff is the fixed delay before the single transient retry.
	RetryBackoff time.Duration
	HTTPClient   *http.Client
}

// HTTPClient implements Client over JSON HTTP. Transient failures
// (timeouts, connection errors, 5xx) are retried exactly once after a
// fixed backoff; 401/403 and other 4xx responses surface immediately.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	backoff time.Duration
}

// NewHTTPClient validates the configuration and returns an HTTPClient.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  client,
		backoff: cfg.RetryBackoff,
	}, nil
}

func (c *HTTPClient) CheckSession(ctx context.Context, accessToken string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodGet, "/v1/session", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/v1/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PinLogin(ctx context.Context, identifier, pin, profileID string) (*LoginResponse, error) {
	body := map[string]string{"identifier": identifier, "pin": pin}
	if profileID != "" {
		body["profile_id"] = profileID
	}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/v1/login/pin", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) BiometricLogin(ctx context.Context, deviceToken string) (*LoginResponse, error) {
	body := map[string]string{"device_token": deviceToken}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/v1/login/biometric", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SwitchProfile(ctx context.Context, accessToken, targetProfileID string) (*LoginResponse, error) {
	body := map[string]string{"profile_id": targetProfileID}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/v1/profiles/switch", accessToken, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AvailableProfiles(ctx context.Context, accessToken string) ([]Profile, error) {
	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/profiles", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

func (c *HTTPClient) RevokeSession(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "/v1/session", accessToken, nil, nil)
}

// do runs one request with the single-retry policy. The retry fires only
// for transient failures, never for auth failures or other 4xx.
func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	err := c.doOnce(ctx, method, path, accessToken, body, out)
	if err == nil {
		return nil
	}

	be, ok := AsError(err)
	if !ok || !be.Transient() {
		return err
	}

	select {
	case <-time.After(c.backoff):
	case <-ctx.Done():
		return &Error{Code: CodeTimeout, Message: ctx.Err().Error()}
	}

	return c.doOnce(ctx, method, path, accessToken, body, out)
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{Code: CodeTimeout, Message: err.Error()}
		}
		return &Error{Code: CodeNetwork, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("malformed response body: %v", err),
			HTTPStatus: resp.StatusCode,
		}
	}
	return nil
}

func parseErrorResponse(resp *http.Response) error {
	blob, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(blob, &payload); err == nil && payload.Code != "" {
		return &Error{
			Code:       payload.Code,
			Message:    payload.Message,
			HTTPStatus: resp.StatusCode,
		}
	}

	code := CodeInternal
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		code = CodeSessionExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		code = CodeRateLimited
	case resp.StatusCode >= 500:
		code = CodeNetwork
	}

	return &Error{
		Code:       code,
		Message:    http.StatusText(resp.StatusCode),
		HTTPStatus: resp.StatusCode,
	}
}
