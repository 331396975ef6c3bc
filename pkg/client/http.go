package client

import (
	"fmt"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Doer executes a single HTTP request. It is satisfied by *http.Client and by
// tls-client, and lets tests inject canned responses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient creates the HTTP client used by the transport. An empty
// tlsProfile selects a standard client; otherwise tls-client is configured
// with the named browser fingerprint (e.g. "chrome_133").
func NewHTTPClient(timeout time.Duration, tlsProfile string) (Doer, error) {
	tlsProfile = strings.ToLower(strings.TrimSpace(tlsProfile))
	if tlsProfile == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	profile, ok := profiles.MappedTLSClients[tlsProfile]
	if !ok {
		return nil, fmt.Errorf("unknown TLS profile: %s", tlsProfile)
	}

	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(seconds),
		tls_client.WithClientProfile(profile),
		tls_client.WithRandomTLSExtensionOrder(),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS client: %w", err)
	}
	return client, nil
}
