package checkinapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MockClient is a mock check-in client for testing and demo runs
type MockClient struct {
	mu        sync.Mutex
	baseURL   string
	responses map[string]*CheckInResponse
	fallback  *CheckInResponse
	err       error
	delay     time.Duration
	calls     []string
	started   chan string
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithResponse sets the response returned for a specific code
func WithResponse(code string, resp *CheckInResponse) MockOption {
	return func(m *MockClient) {
		m.responses[strings.ToUpper(code)] = resp
	}
}

// WithTicket answers code with status and a ticket payload
func WithTicket(code string, status int, fullName, checkedInAt string) MockOption {
	return WithResponse(code, &CheckInResponse{
		StatusCode: status,
		Data: &Payload{
			Ticket: &Ticket{FullName: fullName, TicketCode: FlexString(strings.ToUpper(code)), CheckedInAt: FlexString(checkedInAt)},
		},
	})
}

// WithFallback sets the response for codes without a specific response
func WithFallback(resp *CheckInResponse) MockOption {
	return func(m *MockClient) {
		m.fallback = resp
	}
}

// WithError makes every call fail with err
func WithError(err error) MockOption {
	return func(m *MockClient) {
		m.err = err
	}
}

// WithDelay makes every call wait d (or until the context is done)
func WithDelay(d time.Duration) MockOption {
	return func(m *MockClient) {
		m.delay = d
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(url string) MockOption {
	return func(m *MockClient) {
		m.baseURL = url
	}
}

// NewMockClient creates a new mock client. Unknown codes answer 404.
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:   "http://mock-checkin.local/api/checkin",
		responses: make(map[string]*CheckInResponse),
		fallback:  &CheckInResponse{StatusCode: http.StatusNotFound, Message: "ticket not found"},
		started:   make(chan string, 64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseURL
}

// SetBaseURL updates the base URL
func (m *MockClient) SetBaseURL(url string) {
	m.mu.Lock()
	m.baseURL = url
	m.mu.Unlock()
}

// CheckIn records the call and returns the configured response
func (m *MockClient) CheckIn(ctx context.Context, code string) (*CheckInResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, code)
	delay, err := m.delay, m.err
	resp, ok := m.responses[strings.ToUpper(code)]
	if !ok {
		resp = m.fallback
	}
	m.mu.Unlock()

	select {
	case m.started <- code:
	default:
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	cp := *resp
	return &cp, nil
}

// Started delivers each code as its call begins
func (m *MockClient) Started() <-chan string {
	return m.started
}

// Calls returns the codes submitted so far, in order
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many check-ins were submitted
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
