// Package auth resolves the xAI API key.
package auth

import (
	"errors"
	"strings"
)

// Source names where an API key came from.
type Source string

const (
	SourceFlag   Source = "flag"
	SourceConfig Source = "config"
	SourceNone   Source = "none"
)

// ErrNoAPIKey is returned when no source provides a key.
var ErrNoAPIKey = errors.New("no API key found: set XAI_API_KEY, add it to .env, or pass --api-key")

// ResolveAPIKey picks the key from the command line flag, falling back to the
// configured value (config file, environment or .env).
func ResolveAPIKey(flagValue, configured string) (string, Source, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, SourceFlag, nil
	}
	if key := strings.TrimSpace(configured); key != "" {
		return key, SourceConfig, nil
	}
	return "", SourceNone, ErrNoAPIKey
}

// MaskKey keeps the first and last four characters of key.
func MaskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
	}
}

// LooksValid reports whether key has the shape of an xAI key.
func LooksValid(key string) bool {
	return strings.HasPrefix(key, "xai-") && len(key) > 20 && !strings.ContainsAny(key, " \t\n")
}
