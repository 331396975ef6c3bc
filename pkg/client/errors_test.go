package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitGeneric},
		{"invalid request", &ClientError{Kind: KindInvalidRequest}, ExitInvalidRequest},
		{"auth", &ClientError{Kind: KindAuth}, ExitAuth},
		{"rate limited", &ClientError{Kind: KindRateLimited}, ExitRateLimited},
		{"network", &ClientError{Kind: KindNetwork}, ExitNetwork},
		{"invalid response", &ClientError{Kind: KindInvalidResponse}, ExitInvalidResponse},
		{"wrapped", fmt.Errorf("query: %w", &ClientError{Kind: KindAuth}), ExitAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		transient bool
	}{
		{401, KindAuth, false},
		{403, KindAuth, false},
		{429, KindRateLimited, false},
		{500, KindNetwork, true},
		{503, KindNetwork, true},
		{408, KindNetwork, true},
		{425, KindNetwork, true},
		{400, KindNetwork, false},
		{422, KindNetwork, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			got := ClassifyStatus(tt.status, http.Header{}, nil)
			if got.Kind != tt.kind || got.Transient != tt.transient || got.StatusCode != tt.status {
				t.Errorf("ClassifyStatus(%d) = %+v", tt.status, got)
			}
			if got.RetryAfter != nil {
				t.Errorf("RetryAfter = %v, want nil without header", *got.RetryAfter)
			}
		})
	}
}

func TestClassifyStatusDetail(t *testing.T) {
	got := ClassifyStatus(400, http.Header{}, []byte(`{"error":{"code":"bad","message":"model not found"}}`))
	if got.Detail != "model not found" {
		t.Errorf("Detail = %q, want %q", got.Detail, "model not found")
	}

	got = ClassifyStatus(502, http.Header{}, []byte("  upstream down  "))
	if got.Detail != "upstream down" {
		t.Errorf("Detail = %q, want %q", got.Detail, "upstream down")
	}
}

func TestClassifyTransportError(t *testing.T) {
	got := ClassifyTransportError(context.Background(), errors.New("dial tcp: connection refused"))
	if got.Kind != KindNetwork || !got.Transient || !got.Retryable() {
		t.Errorf("connection error = %+v, want retryable network", got)
	}

	got = ClassifyTransportError(context.Background(), fmt.Errorf("read: %w", context.DeadlineExceeded))
	if got.Detail != "request timed out" || !got.Retryable() {
		t.Errorf("timeout = %+v, want retryable timeout", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got = ClassifyTransportError(ctx, errors.New("net/http: request canceled"))
	if !got.Canceled() || got.Retryable() {
		t.Errorf("cancellation = %+v, want canceled and not retryable", got)
	}
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		code, message string
		want          ErrorKind
	}{
		{"invalid_api_key", "", KindAuth},
		{"", "Incorrect API key provided", KindAuth},
		{"permission_denied", "no access", KindAuth},
		{"rate_limit_exceeded", "", KindRateLimited},
		{"", "Too Many Requests", KindRateLimited},
		{"server_error", "", KindNetwork},
		{"", "service unavailable", KindNetwork},
		{"invalid_request_error", "bad field", KindInvalidRequest},
		{"", "maximum context length exceeded", KindInvalidRequest},
		{"weird", "unexpected", KindInvalidResponse},
		{"401", "", KindAuth},
		{"403", "nope", KindAuth},
		{"429", "", KindRateLimited},
		{"502", "", KindNetwork},
		{"400", "", KindInvalidRequest},
		{"404", "not found", KindInvalidResponse},
		{"", "Invalid credentials", KindAuth},
		{"", "Access denied", KindAuth},
	}

	for _, tt := range tests {
		got := ClassifyAPIError(tt.code, tt.message)
		if got.Kind != tt.want {
			t.Errorf("ClassifyAPIError(%q, %q) = %s, want %s", tt.code, tt.message, got.Kind, tt.want)
		}
		if got.Detail == "" {
			t.Errorf("ClassifyAPIError(%q, %q) has empty detail", tt.code, tt.message)
		}
		if got.Kind == KindNetwork && !got.Transient {
			t.Errorf("ClassifyAPIError(%q, %q) should be transient", tt.code, tt.message)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  *time.Duration
	}{
		{"", nil},
		{"5", durPtr(5 * time.Second)},
		{"0", durPtr(0)},
		{"-1", nil},
		{"soon", nil},
		{"Wed, 01 Jan 2025 12:00:30 GMT", durPtr(30 * time.Second)},
		{"Wed, 01 Jan 2025 11:00:00 GMT", durPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := parseRetryAfter(tt.value, now)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("parseRetryAfter() = %v, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("parseRetryAfter() = nil, want %v", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("parseRetryAfter() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestClientErrorMessage(t *testing.T) {
	retry := 3 * time.Second
	tests := []struct {
		err  *ClientError
		want string
	}{
		{&ClientError{Kind: KindAuth, StatusCode: 401, Detail: "bad key"}, "auth (HTTP 401): bad key"},
		{&ClientError{Kind: KindRateLimited, StatusCode: 429, RetryAfter: &retry}, "rate_limited (HTTP 429) (retry after 3s)"},
		{&ClientError{Kind: KindNetwork, Err: errors.New("connection refused")}, "network: connection refused"},
		{&ClientError{Kind: KindInvalidRequest, Detail: "query must not be empty"}, "invalid_request: query must not be empty"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func durPtr(d time.Duration) *time.Duration {
	return &d
}
