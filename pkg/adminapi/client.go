package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Options configures a Client
type Options struct {
	BaseURL string
	// Timeout bounds each request. Zero keeps the transport default (none).
	Timeout time.Duration
	// RateLimit paces outgoing requests per second. Zero disables pacing.
	RateLimit float64
	// TokenSecret, when set, signs a bearer token for every request.
	TokenSecret string
	// Limiter, when set, replaces the local RateLimit pacing.
	Limiter Limiter
}

// Limiter blocks until the next request may go out. *rate.Limiter
// satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Client wraps the admin API calls used by the key management console.
// It holds no key material; the only state is the session cookie jar.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	limiter     Limiter
	tokenSecret string
	now         func() time.Time
}

// NewClient creates a new admin API client
func NewClient(opts Options) *Client {
	// cookiejar.New never fails without a public suffix list
	jar, _ := cookiejar.New(nil)

	var limiter Limiter
	switch {
	case opts.Limiter != nil:
		limiter = opts.Limiter
	case opts.RateLimit > 0:
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Jar:     jar,
			// Login answers with a redirect whose target tells success from failure
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		limiter:     limiter,
		tokenSecret: opts.TokenSecret,
		now:         time.Now,
	}
}

// BaseURL returns the admin API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// waitRateLimit blocks until a request is allowed
func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokenSecret != "" {
		token, err := SignToken(c.tokenSecret, AdminSubject, c.now())
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return resp, nil
}

// postMutation sends a JSON body and interprets the {success, error} envelope
func (c *Client) postMutation(ctx context.Context, op, path string, payload interface{}) (*mutationResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	resp, err := c.do(ctx, op, http.MethodPost, path, bytes.NewReader(data), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	// An unreadable body is a transport failure whatever the status code
	var out mutationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)}
	}

	if !isSuccess(resp.StatusCode) {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	return &out, nil
}

// CreateKey asks the admin API to issue a new key. The returned record
// carries the secret exactly once; callers display it and drop it.
func (c *Client) CreateKey(ctx context.Context, ownerName string, dailyLimit, expiryDays int) (*KeyRecord, error) {
	owner := strings.TrimSpace(ownerName)
	if owner == "" {
		return nil, &ValidationError{Field: "owner_name", Message: "Please enter owner name"}
	}
	if dailyLimit < 0 {
		return nil, &ValidationError{Field: "daily_limit", Message: "Daily limit must not be negative"}
	}
	if expiryDays < 0 {
		return nil, &ValidationError{Field: "expiry_days", Message: "Expiry days must not be negative"}
	}

	out, err := c.postMutation(ctx, "create key", "/admin/create_key", createKeyRequest{
		OwnerName:  owner,
		DailyLimit: dailyLimit,
		ExpiryDays: expiryDays,
	})
	if err != nil {
		return nil, err
	}

	if out.APIKey == "" {
		return nil, &TransportError{Op: "create key", Err: fmt.Errorf("response is missing api_key")}
	}

	log.Info().
		Str("owner_name", owner).
		Int("daily_limit", dailyLimit).
		Int("expiry_days", expiryDays).
		Msg("API key created")

	return &KeyRecord{
		OwnerName:  owner,
		DailyLimit: dailyLimit,
		ExpiryDays: expiryDays,
		APIKey:     out.APIKey,
	}, nil
}

// DeleteKey removes a key. Confirmation is the caller's responsibility.
func (c *Client) DeleteKey(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return &ValidationError{Field: "api_key", Message: "API key is required"}
	}

	if _, err := c.postMutation(ctx, "delete key", "/admin/delete_key", deleteKeyRequest{APIKey: apiKey}); err != nil {
		return err
	}

	log.Info().Str("api_key", MaskKey(apiKey)).Msg("API key deleted")
	return nil
}

// FetchStats retrieves the current aggregate metrics
func (c *Client) FetchStats(ctx context.Context) (*StatsSnapshot, error) {
	const op = "fetch stats"

	resp, err := c.do(ctx, op, http.MethodGet, "/admin/stats", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if !isSuccess(resp.StatusCode) {
		var envelope mutationResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)}
		}
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	var snapshot StatsSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	return &snapshot, nil
}

// ListKeys fetches the admin key list. Keys come back masked.
func (c *Client) ListKeys(ctx context.Context) ([]KeySummary, error) {
	const op = "list keys"

	resp, err := c.do(ctx, op, http.MethodGet, "/admin/keys", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var out keyListResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)}
	}

	if !isSuccess(resp.StatusCode) {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	for i := range out.Keys {
		if !isMasked(out.Keys[i].MaskedKey) {
			out.Keys[i].MaskedKey = MaskKey(out.Keys[i].MaskedKey)
		}
	}

	return out.Keys, nil
}

// CheckHealth maps one /admin/health call to a status. It never fails:
// transport errors are reported as HealthError.
func (c *Client) CheckHealth(ctx context.Context) HealthStatus {
	resp, err := c.do(ctx, "check health", http.MethodGet, "/admin/health", nil, "")
	if err != nil {
		log.Debug().Err(err).Msg("Health check failed")
		return HealthError
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		log.Debug().Int("status", resp.StatusCode).Msg("Health check returned non-OK status")
		return HealthOffline
	}
	return HealthOnline
}

// Login opens an admin session. The session cookie is kept in the client's jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	const op = "login"

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.do(ctx, op, http.MethodPost, "/admin/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case isSuccess(resp.StatusCode):
		return nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location, err := resp.Location()
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("redirect without location: %w", err)}
		}
		if location.Path == "/admin/dashboard" {
			log.Info().Str("username", username).Msg("Admin session opened")
			return nil
		}
		return &ServerError{Op: op, StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	default:
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
}

// Logout ends the admin session
func (c *Client) Logout(ctx context.Context) error {
	const op = "logout"

	resp, err := c.do(ctx, op, http.MethodGet, "/admin/logout", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
