package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

// ErrorKind is the closed set of failure categories surfaced by the client.
type ErrorKind string

const (
	KindAuth            ErrorKind = "auth"
	KindRateLimited     ErrorKind = "rate_limited"
	KindNetwork         ErrorKind = "network"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindInvalidRequest  ErrorKind = "invalid_request"
)

// Process exit codes, one per ErrorKind. Scripts branch on these.
const (
	ExitOK              = 0
	ExitGeneric         = 1
	ExitInvalidRequest  = 2
	ExitAuth            = 3
	ExitRateLimited     = 4
	ExitNetwork         = 5
	ExitInvalidResponse = 6
)

// ClientError is the only error type returned by Client.Execute.
type ClientError struct {
	Kind ErrorKind
	// Transient is meaningful for KindNetwork: true for timeouts, connection
	// failures and 5xx, false for other 4xx.
	Transient bool
	// RetryAfter is the provider's hint on KindRateLimited, nil when absent.
	RetryAfter *time.Duration
	StatusCode int
	// Code is the provider's embedded error code, if any.
	Code   string
	Detail string
	Err    error
}

func (e *ClientError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.RetryAfter != nil {
		fmt.Fprintf(&b, " (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil && e.Detail == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the transport may retry after this error.
func (e *ClientError) Retryable() bool {
	return e.Kind == KindNetwork && e.Transient && !e.Canceled()
}

// Canceled reports whether the error was caused by caller cancellation.
func (e *ClientError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// ExitCode maps an error to a stable process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *ClientError
	if !errors.As(err, &ce) {
		return ExitGeneric
	}
	switch ce.Kind {
	case KindInvalidRequest:
		return ExitInvalidRequest
	case KindAuth:
		return ExitAuth
	case KindRateLimited:
		return ExitRateLimited
	case KindNetwork:
		return ExitNetwork
	case KindInvalidResponse:
		return ExitInvalidResponse
	}
	return ExitGeneric
}

// KindOf returns the ErrorKind of err, or "" when err is not a ClientError.
func KindOf(err error) ErrorKind {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func invalidRequest(format string, args ...any) *ClientError {
	return &ClientError{Kind: KindInvalidRequest, Detail: fmt.Sprintf(format, args...)}
}

func invalidResponse(format string, args ...any) *ClientError {
	return &ClientError{Kind: KindInvalidResponse, Detail: fmt.Sprintf(format, args...)}
}

// ClassifyStatus maps a non-2xx HTTP status to a ClientError.
func ClassifyStatus(status int, header http.Header, body []byte) *ClientError {
	detail := errorDetail(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ClientError{Kind: KindAuth, StatusCode: status, Detail: detail}
	case status == http.StatusTooManyRequests:
		return &ClientError{
			Kind:       KindRateLimited,
			StatusCode: status,
			Detail:     detail,
			RetryAfter: parseRetryAfter(header.Get("Retry-After"), time.Now()),
		}
	case isTransientStatus(status):
		return &ClientError{Kind: KindNetwork, Transient: true, StatusCode: status, Detail: detail}
	default:
		return &ClientError{Kind: KindNetwork, Transient: false, StatusCode: status, Detail: detail}
	}
}

// ClassifyTransportError maps a failed round trip. ctx is the caller's
// context: its cancellation is reported as such even when the round trip
// surfaced a different error.
func ClassifyTransportError(ctx context.Context, err error) *ClientError {
	if ctx != nil && ctx.Err() != nil {
		return &ClientError{Kind: KindNetwork, Transient: true, Detail: "request cancelled", Err: ctx.Err()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Kind: KindNetwork, Transient: true, Detail: "request timed out", Err: err}
	}
	return &ClientError{Kind: KindNetwork, Transient: true, Err: err}
}

// ClassifyDecodeError maps an undecodable payload.
func ClassifyDecodeError(err error) *ClientError {
	return &ClientError{Kind: KindInvalidResponse, Detail: fmt.Sprintf("failed to decode response: %v", err), Err: err}
}

// ClassifyAPIError maps an error embedded in a response body.
func ClassifyAPIError(code, message string) *ClientError {
	c := strings.ToLower(code + " " + message)
	ce := &ClientError{Code: code, Detail: message}
	if ce.Detail == "" {
		ce.Detail = code
	}

	if status, err := strconv.Atoi(strings.TrimSpace(code)); err == nil {
		if kind, transient, ok := kindForStatus(status); ok {
			ce.Kind = kind
			ce.Transient = transient
			return ce
		}
	}

	switch {
	case containsAny(c, "api key", "api_key", "unauthorized", "unauthenticated", "authentication", "credential", "access denied", "permission", "forbidden"):
		ce.Kind = KindAuth
	case containsAny(c, "rate limit", "rate_limit", "too many requests", "quota"):
		ce.Kind = KindRateLimited
	case containsAny(c, "server_error", "internal", "overloaded", "unavailable", "timeout"):
		ce.Kind = KindNetwork
		ce.Transient = true
	case containsAny(c, "invalid argument", "invalid_argument", "invalid_request", "bad request", "bad_request", "context length"):
		ce.Kind = KindInvalidRequest
	default:
		ce.Kind = KindInvalidResponse
	}
	return ce
}

// kindForStatus maps an HTTP-like numeric code carried inside a body.
func kindForStatus(status int) (kind ErrorKind, transient, ok bool) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth, false, true
	case status == http.StatusTooManyRequests:
		return KindRateLimited, false, true
	case isTransientStatus(status):
		return KindNetwork, true, true
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalidRequest, false, true
	}
	return "", false, false
}

// isTransientStatus reports statuses worth retrying: timeouts and 5xx.
func isTransientStatus(status int) bool {
	return status >= 500 && status <= 599 ||
		status == http.StatusRequestTimeout || status == 425
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) *time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return nil
		}
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now).Round(time.Second)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}

// errorDetail extracts a short message from an error body.
func errorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if code, msg, ok := decodeAPIError(body); ok {
		if msg != "" {
			return msg
		}
		return code
	}
	return truncate(strings.TrimSpace(string(body)), 512)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
