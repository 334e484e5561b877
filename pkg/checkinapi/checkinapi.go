// Package checkinapi provides a client for the remote ticket check-in endpoint.
package checkinapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/gatecheck/internal/logger"
)

// DefaultTimeout bounds a single check-in round trip
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is read
const maxBodySize = 1 << 20

// FlexString is a string type that can be unmarshaled from either a string or a number.
// Check-in backends disagree on whether timestamps and codes are strings or numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler for FlexString
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	return fmt.Errorf("FlexString: cannot unmarshal %s", string(data))
}

// String returns the string value
func (f FlexString) String() string {
	return string(f)
}

// Ticket is the ticket object of a check-in response
type Ticket struct {
	FullName    string     `json:"full_name"`
	TicketCode  FlexString `json:"ticket_code"`
	CheckedInAt FlexString `json:"checked_in_at"`
}

// Event is the event object of a check-in response
type Event struct {
	Title string `json:"title"`
}

// Payload is the "data" member of a check-in response
type Payload struct {
	Ticket *Ticket `json:"ticket,omitempty"`
	Event  *Event  `json:"event,omitempty"`
}

// CheckInRequest is the body POSTed to the endpoint
type CheckInRequest struct {
	Code string `json:"code"`
}

// CheckInResponse is any HTTP answer from the endpoint, successful or not
type CheckInResponse struct {
	StatusCode int      `json:"-"`
	Data       *Payload `json:"data,omitempty"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Detail returns the server supplied explanation, if any
func (r *CheckInResponse) Detail() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

// Client defines the interface for check-in operations
type Client interface {
	// CheckIn submits a ticket code. Any HTTP status is returned as a response;
	// an error means no usable answer was received (network, timeout, bad body).
	CheckIn(ctx context.Context, code string) (*CheckInResponse, error)
	// BaseURL returns the configured endpoint URL
	BaseURL() string
	// SetBaseURL updates the endpoint URL
	SetBaseURL(url string)
}

// HTTPClient is a real HTTP client for the check-in endpoint
type HTTPClient struct {
	mu         sync.RWMutex
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new check-in client with the given request timeout
func NewHTTPClient(baseURL string, timeout time.Duration, log logger.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// NewHTTPClientWithHTTPClient creates a new check-in client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured endpoint URL
func (c *HTTPClient) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL updates the endpoint URL
func (c *HTTPClient) SetBaseURL(url string) {
	c.mu.Lock()
	c.baseURL = url
	c.mu.Unlock()
}

// CheckIn posts {"code": code} to the endpoint and decodes whatever comes back
func (c *HTTPClient) CheckIn(ctx context.Context, code string) (*CheckInResponse, error) {
	endpoint := c.BaseURL()
	if endpoint == "" {
		return nil, fmt.Errorf("check-in endpoint not configured")
	}

	body, err := json.Marshal(CheckInRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.log.Debug("Check-in request", "method", "POST", "url", endpoint, "code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach check-in endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Check-in response", "status", resp.StatusCode, "body", string(raw))

	result := &CheckInResponse{}
	if len(bytes.TrimSpace(raw)) > 0 && looksJSON(resp.Header.Get("Content-Type"), raw) {
		if err := json.Unmarshal(raw, result); err != nil {
			// A 2xx with a broken body is not a usable answer; error statuses stand on their own.
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}
			result = &CheckInResponse{}
		}
	}
	result.StatusCode = resp.StatusCode

	return result, nil
}

func looksJSON(contentType string, body []byte) bool {
	if strings.Contains(contentType, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
