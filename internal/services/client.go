package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://localhost:8080"
	defaultTimeout   = 15 * time.Second
	defaultRateLimit = 10
	defaultBurst     = 5

	requestIDHeader = "X-Request-ID"
)

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	Burst      int
	Logger     *log.Logger
}

// Response is a raw backend response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	RequestID  string
}

// IsJSON reports whether the body parses as JSON.
func (r *Response) IsJSON() bool {
	return json.Valid(r.Body)
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return shared.ErrNotAuthenticated
	}
	return shared.ErrAPIRequest
}

// Client performs authenticated, rate-limited requests against the backend.
type Client struct {
	baseURL string
	token   string
	base    *http.Client
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  *log.Logger
}

// NewClient creates a [Client]. An empty BaseURL defaults to http://localhost:8080.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", shared.ErrInvalidConfig, opts.BaseURL)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	logger := shared.WithLogger(opts.Logger, "component", "api")
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		base:    opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "cadence-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	c.setToken(opts.Token, opts.Timeout)
	return c, nil
}

func (c *Client) setToken(token string, timeout time.Duration) {
	c.token = token
	if token == "" {
		httpClient := *c.base
		httpClient.Timeout = timeout
		c.http = &httpClient
		return
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	httpClient.Timeout = timeout
	c.http = httpClient
}

// WithToken returns a copy of the client that authenticates with token.
// The copy shares the rate limiter and circuit breaker.
func (c *Client) WithToken(token string) *Client {
	cpy := *c
	cpy.setToken(token, c.http.Timeout)
	return &cpy
}

// Authenticated reports whether the client carries a token.
func (c *Client) Authenticated() bool { return c.token != "" }

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// Do sends a request and returns the raw response.
//
// 4xx responses are returned without an error. 5xx responses count against the circuit breaker
// and are returned together with an [*APIError]. payload, when non-nil, is encoded as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, payload any) (*Response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	requestID := shared.GenerateID()

	var failed *Response
	resp, err := c.breaker.Execute(func() (*Response, error) {
		var reader io.Reader = http.NoBody
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, requestID)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		resp := &Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: data, RequestID: requestID}
		if resp.StatusCode >= 500 {
			failed = resp
			return nil, newAPIError(resp)
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return failed, err
	}

	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
	return resp, nil
}

// request sends a request and fails with [*APIError] for non-2xx responses.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, payload any) (*Response, error) {
	resp, err := c.Do(ctx, method, path, query, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

// requestData sends a request and decodes the `data` field of the envelope into out.
func (c *Client) requestData(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	resp, err := c.request(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%w: response has no data", shared.ErrAPIRequest)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response data: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// newAPIError extracts a message from an error body of the form {"message": "..."} or {"error": "..."}.
func newAPIError(resp *Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.RequestID}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = shared.Truncate(strings.TrimSpace(string(resp.Body)), 200)
	}
	return apiErr
}

func pageQuery(page, limit int, limitKey string) url.Values {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set(limitKey, fmt.Sprint(limit))
	return q
}
