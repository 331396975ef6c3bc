package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// RetryPolicy controls retries of transient failures.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns two retries starting at 500ms, capped at 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := &backoff.Backoff{
		Min:    p.InitialBackoff,
		Max:    p.MaxBackoff,
		Factor: 2,
	}
	return b.ForAttempt(float64(attempt))
}

// WorstCase is the longest a Send can take with a per-attempt timeout.
func (p RetryPolicy) WorstCase(timeout time.Duration) time.Duration {
	total := timeout * time.Duration(1+p.MaxRetries)
	for i := 0; i < p.MaxRetries; i++ {
		total += p.Delay(i)
	}
	return total
}

// Transport performs authenticated calls against the Responses endpoint.
type Transport struct {
	doer      Doer
	endpoint  string
	apiKey    string
	userAgent string
	timeout   time.Duration
	policy    RetryPolicy
	logger    *zap.Logger

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTransport creates a transport. The API key is supplied once here and
// never read from request bodies.
func NewTransport(doer Doer, endpoint, apiKey string, timeout time.Duration, policy RetryPolicy, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Transport{
		doer:      doer,
		endpoint:  endpoint,
		apiKey:    apiKey,
		userAgent: "grok-ask/" + Version,
		timeout:   timeout,
		policy:    policy,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Send posts payload and returns the raw 2xx body. Connection errors,
// timeouts and 5xx are retried up to the policy budget; every other failure
// is returned immediately as a *ClientError.
func (t *Transport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	requestID := uuid.NewString()
	log := t.logger.With(zap.String("request_id", requestID))

	for attempt := 0; ; attempt++ {
		start := time.Now()
		body, cerr := t.attempt(ctx, payload, requestID)
		if cerr == nil {
			log.Debug("request completed",
				zap.Int("attempt", attempt+1),
				zap.Duration("elapsed", time.Since(start)))
			return body, nil
		}

		if !cerr.Retryable() || attempt >= t.policy.MaxRetries {
			log.Debug("request failed",
				zap.Int("attempt", attempt+1),
				zap.String("kind", string(cerr.Kind)),
				zap.Int("status", cerr.StatusCode),
				zap.Error(cerr))
			return nil, cerr
		}

		delay := t.policy.Delay(attempt)
		log.Warn("transient failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("status", cerr.StatusCode),
			zap.Duration("backoff", delay),
			zap.Error(cerr))

		if err := t.sleep(ctx, delay); err != nil {
			return nil, ClassifyTransportError(ctx, err)
		}
	}
}

// attempt performs one round trip under the per-attempt timeout.
func (t *Transport) attempt(ctx context.Context, payload []byte, requestID string) ([]byte, *ClientError) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyTransportError(ctx, err)
	}

	attemptCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, invalidRequest("failed to create request: %v", err)
	}
	req.Header = http.Header{
		"Authorization": {"Bearer " + t.apiKey},
		"Content-Type":  {"application/json"},
		"Accept":        {"application/json"},
		"User-Agent":    {t.userAgent},
		"X-Request-Id":  {requestID},
	}

	resp, err := t.doer.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ClassifyTransportError(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ClassifyStatus(resp.StatusCode, resp.Header, body)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
