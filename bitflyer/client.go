package bitflyer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/execfeed/market"
)

const (
	// DefaultBaseURL is the public bitFlyer Lightning API.
	DefaultBaseURL = "https://api.bitflyer.com"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 10 * time.Second

	// MaxCount is the largest page the venue serves.
	MaxCount = 1000

	executionsPath = "/v1/getexecutions"
	maxErrorBody   = 512
)

var (
	// ErrInvalidRequest marks a request that can never succeed. It is not retried.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMalformedPayload marks a 2xx response that did not decode into executions.
	ErrMalformedPayload = errors.New("malformed payload")
)

// StatusError is a non-2xx response from the venue.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Body)
}

// ExecutionsRequest selects one page of the execution feed. Before and After
// are exclusive id bounds; at most one may be set.
type ExecutionsRequest struct {
	ProductCode string
	Count       int
	Before      *int64
	After       *int64
}

// Validate reports request shapes the venue would reject outright.
func (r ExecutionsRequest) Validate() error {
	if strings.TrimSpace(r.ProductCode) == "" {
		return fmt.Errorf("%w: product code is required", ErrInvalidRequest)
	}
	if r.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRequest, r.Count)
	}
	if r.Count > MaxCount {
		return fmt.Errorf("%w: count cannot exceed %d", ErrInvalidRequest, MaxCount)
	}
	if r.Before != nil && r.After != nil {
		return fmt.Errorf("%w: before and after are mutually exclusive", ErrInvalidRequest)
	}
	return nil
}

func (r ExecutionsRequest) query() url.Values {
	params := url.Values{}
	params.Set("product_code", r.ProductCode)
	params.Set("count", strconv.Itoa(r.Count))
	if r.Before != nil {
		params.Set("before", strconv.FormatInt(*r.Before, 10))
	}
	if r.After != nil {
		params.Set("after", strconv.FormatInt(*r.After, 10))
	}
	return params
}

// Client talks to the public executions endpoint. Each call is one attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL and a
// zero timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the venue root the client is pointed at.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetExecutions fetches one page of executions, most recent first.
func (c *Client) GetExecutions(ctx context.Context, req ExecutionsRequest) ([]market.Execution, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	apiURL := fmt.Sprintf("%s%s?%s", c.baseURL, executionsPath, req.query().Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var recs []market.ExecutionRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrMalformedPayload, err)
	}
	execs, err := market.ExecutionsFromRecords(recs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return execs, nil
}
