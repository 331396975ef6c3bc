package client

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockResponse is one canned reply of mockDoer.
type mockResponse struct {
	status int
	body   string
	header http.Header
	err    error
}

// mockDoer returns canned responses in call order; the last one repeats.
type mockDoer struct {
	mu        sync.Mutex
	responses []mockResponse
	calls     int
	requests  []*http.Request
	bodies    []string
}

func newMockDoer(responses ...mockResponse) *mockDoer {
	return &mockDoer{responses: responses}
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(b))
	}

	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++

	r := m.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	header := r.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: r.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

func (m *mockDoer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// sleepRecorder replaces the transport's backoff wait.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// newTestClient builds a client on doer with instant backoff.
func newTestClient(t *testing.T, doer Doer) (*Client, *sleepRecorder) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = "https://api.test/v1"
	cfg.Timeout = 5 * time.Second
	cfg.HTTPClient = doer

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &sleepRecorder{}
	c.transport.sleep = rec.sleep
	return c, rec
}

const okBody = `{
  "id": "resp_123",
  "status": "completed",
  "model": "grok-4-1-fast-non-reasoning",
  "output": [
    {"type": "message", "content": [{"type": "output_text", "text": "Hello, world!"}]}
  ],
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`
