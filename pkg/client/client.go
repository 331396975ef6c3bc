// Package client provides the grounded-query client for the xAI Responses API.
package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/diogo/grok-ask/pkg/models"
	"go.uber.org/zap"
)

// Version is reported in the User-Agent header.
var Version = "1.0.0"

const (
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultTimeout = 120 * time.Second

	responsesPath = "/responses"
)

// Client is the grounded-query client. It holds read-only configuration only
// and is safe for concurrent use.
type Client struct {
	transport *Transport
	logger    *zap.Logger
	policy    RetryPolicy
	timeout   time.Duration
}

// Config holds client configuration options.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout applies to each attempt, not to the whole call.
	Timeout time.Duration
	Retry   RetryPolicy
	// TLSProfile selects a browser TLS fingerprint; empty uses a standard client.
	TLSProfile string
	// HTTPClient overrides the client built from Timeout and TLSProfile.
	HTTPClient Doer
	Logger     *zap.Logger
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Retry:   DefaultRetryPolicy(),
	}
}

// New creates a new client. A missing API key is an auth ClientError.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ClientError{Kind: KindAuth, Detail: "API key not configured (set XAI_API_KEY)"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	doer := cfg.HTTPClient
	if doer == nil {
		var err error
		doer, err = NewHTTPClient(cfg.Timeout, cfg.TLSProfile)
		if err != nil {
			return nil, err
		}
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") + responsesPath

	return &Client{
		transport: NewTransport(doer, endpoint, strings.TrimSpace(cfg.APIKey), cfg.Timeout, cfg.Retry, cfg.Logger),
		logger:    cfg.Logger,
		policy:    cfg.Retry,
		timeout:   cfg.Timeout,
	}, nil
}

// Execute runs one grounded query. It returns either a complete result or a
// *ClientError, never both.
//
// The timeout applies per attempt, so a call may take up to WorstCaseLatency
// before failing; callers with their own deadline should set ctx accordingly.
// Cancelling ctx aborts the in-flight request and any backoff wait and yields
// a network error whose Canceled method reports true.
func (c *Client) Execute(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	providerReq, err := BuildRequest(req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(providerReq)
	if err != nil {
		return nil, invalidRequest("failed to encode request: %v", err)
	}

	log := c.logger.With(
		zap.String("mode", string(req.Mode)),
		zap.String("model", providerReq.Model))
	log.Debug("executing query",
		zap.Bool("grounded", len(providerReq.Tools) > 0),
		zap.Bool("continuation", providerReq.PreviousResponseID != ""),
		zap.Int("max_output_tokens", providerReq.MaxOutputTokens))

	start := time.Now()
	raw, err := c.transport.Send(ctx, payload)
	if err != nil {
		return nil, err
	}

	result, err := ParseResponse(raw)
	if err != nil {
		log.Debug("response rejected", zap.Error(err))
		return nil, err
	}
	if result.Model == "" {
		result.Model = providerReq.Model
	}

	log.Debug("query completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("status", string(result.Status)),
		zap.Int("citations", len(result.Citations)),
		zap.String("response_id", result.ContinuationID))

	return result, nil
}

// WorstCaseLatency is the longest Execute can block before failing.
func (c *Client) WorstCaseLatency() time.Duration {
	return c.policy.WorstCase(c.timeout)
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() error {
	if closer, ok := c.transport.doer.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}
