// Package config handles configuration management.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/diogo/grok-ask/internal/auth"
	"github.com/diogo/grok-ask/pkg/client"
	"github.com/diogo/grok-ask/pkg/models"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".grok-ask"
	configFileName = "config"
	configFileType = "json"
	envPrefix      = "GROK"
	dotEnvFile     = ".env"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"api_key",
	"base_url",
	"timeout",
	"max_retries",
	"initial_backoff",
	"max_backoff",
	"tls_profile",
	"default_mode",
	"output_format",
	"incognito",
	"history_file",
}

// Config holds all configuration options.
type Config struct {
	APIKey         string           `mapstructure:"api_key"`
	BaseURL        string           `mapstructure:"base_url"`
	Timeout        time.Duration    `mapstructure:"timeout"`
	MaxRetries     int              `mapstructure:"max_retries"`
	InitialBackoff time.Duration    `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration    `mapstructure:"max_backoff"`
	TLSProfile     string           `mapstructure:"tls_profile"`
	DefaultMode    models.QueryMode `mapstructure:"default_mode"`
	OutputFormat   string           `mapstructure:"output_format"`
	Incognito      bool             `mapstructure:"incognito"`
	HistoryFile    string           `mapstructure:"history_file"`
}

// ClientConfig converts the settings into a client configuration.
func (c *Config) ClientConfig() client.Config {
	cc := client.DefaultConfig()
	cc.APIKey = c.APIKey
	cc.BaseURL = c.BaseURL
	cc.Timeout = c.Timeout
	cc.TLSProfile = c.TLSProfile
	cc.Retry = client.RetryPolicy{
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
	}
	return cc
}

// Manager handles configuration loading and saving.
type Manager struct {
	v       *viper.Viper
	cfgDir  string
	cfgFile string
	envFile string
}

// NewManager creates a new configuration manager rooted at ~/.grok-ask.
func NewManager() (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewManagerAt(filepath.Join(home, configDirName), dotEnvFile), nil
}

// NewManagerAt creates a manager for cfgDir that reads envFile as a dotenv
// file. An empty envFile disables dotenv loading.
func NewManagerAt(cfgDir, envFile string) *Manager {
	m := &Manager{
		v:       viper.New(),
		cfgDir:  cfgDir,
		cfgFile: filepath.Join(cfgDir, configFileName+"."+configFileType),
		envFile: envFile,
	}

	m.setDefaults()

	m.v.SetConfigFile(m.cfgFile)
	m.v.SetConfigType(configFileType)

	// Environment variable support
	m.v.SetEnvPrefix(envPrefix)
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = m.v.BindEnv("api_key", envPrefix+"_API_KEY", "XAI_API_KEY")

	return m
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	policy := client.DefaultRetryPolicy()

	m.v.SetDefault("api_key", "")
	m.v.SetDefault("base_url", client.DefaultBaseURL)
	m.v.SetDefault("timeout", client.DefaultTimeout.String())
	m.v.SetDefault("max_retries", policy.MaxRetries)
	m.v.SetDefault("initial_backoff", policy.InitialBackoff.String())
	m.v.SetDefault("max_backoff", policy.MaxBackoff.String())
	m.v.SetDefault("tls_profile", "")
	m.v.SetDefault("default_mode", string(models.ModeAsk))
	m.v.SetDefault("output_format", OutputText)
	m.v.SetDefault("incognito", false)
	m.v.SetDefault("history_file", filepath.Join(m.cfgDir, "history.jsonl"))
}

// loadDotEnv applies XAI_API_KEY and GROK_* entries of the .env file as
// defaults, so the real environment and the config file take precedence.
func (m *Manager) loadDotEnv() error {
	if m.envFile == "" {
		return nil
	}
	if _, err := os.Stat(m.envFile); err != nil {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(m.envFile)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", m.envFile, err)
	}

	prefix := strings.ToLower(envPrefix) + "_"
	for _, key := range env.AllKeys() {
		switch {
		case key == "xai_api_key":
			m.v.SetDefault("api_key", env.GetString(key))
		case strings.HasPrefix(key, prefix):
			m.v.SetDefault(strings.TrimPrefix(key, prefix), env.GetString(key))
		}
	}
	return nil
}

// Load reads configuration from defaults, .env, file and environment.
func (m *Manager) Load() (*Config, error) {
	if err := os.MkdirAll(m.cfgDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.loadDotEnv(); err != nil {
		return nil, err
	}

	// Try to read config file (ignore if not exists)
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		APIKey:         strings.TrimSpace(m.v.GetString("api_key")),
		BaseURL:        m.v.GetString("base_url"),
		Timeout:        m.v.GetDuration("timeout"),
		MaxRetries:     m.v.GetInt("max_retries"),
		InitialBackoff: m.v.GetDuration("initial_backoff"),
		MaxBackoff:     m.v.GetDuration("max_backoff"),
		TLSProfile:     m.v.GetString("tls_profile"),
		OutputFormat:   strings.ToLower(m.v.GetString("output_format")),
		Incognito:      m.v.GetBool("incognito"),
		HistoryFile:    m.v.GetString("history_file"),
	}

	mode, err := models.ParseMode(m.v.GetString("default_mode"))
	if err != nil {
		return nil, fmt.Errorf("invalid default_mode: %w", err)
	}
	cfg.DefaultMode = mode

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file. The API key is never persisted.
func (m *Manager) Save(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(m.cfgDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := viper.New()
	out.SetConfigType(configFileType)
	out.Set("base_url", cfg.BaseURL)
	out.Set("timeout", cfg.Timeout.String())
	out.Set("max_retries", cfg.MaxRetries)
	out.Set("initial_backoff", cfg.InitialBackoff.String())
	out.Set("max_backoff", cfg.MaxBackoff.String())
	out.Set("tls_profile", cfg.TLSProfile)
	out.Set("default_mode", string(cfg.DefaultMode))
	out.Set("output_format", cfg.OutputFormat)
	out.Set("incognito", cfg.Incognito)
	out.Set("history_file", cfg.HistoryFile)

	if err := out.WriteConfigAs(m.cfgFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(m.cfgFile, 0600)
}

// Defaults returns the built-in configuration, ignoring files and environment.
func (m *Manager) Defaults() *Config {
	policy := client.DefaultRetryPolicy()
	return &Config{
		BaseURL:        client.DefaultBaseURL,
		Timeout:        client.DefaultTimeout,
		MaxRetries:     policy.MaxRetries,
		InitialBackoff: policy.InitialBackoff,
		MaxBackoff:     policy.MaxBackoff,
		DefaultMode:    models.ModeAsk,
		OutputFormat:   OutputText,
		HistoryFile:    filepath.Join(m.cfgDir, "history.jsonl"),
	}
}

// Validate checks configuration values.
func Validate(cfg *Config) error {
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid base_url: %s", cfg.BaseURL)
		}
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s (must be positive)", cfg.Timeout)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d (must be >= 0)", cfg.MaxRetries)
	}
	if cfg.InitialBackoff <= 0 || cfg.MaxBackoff <= 0 {
		return fmt.Errorf("invalid backoff: initial and max must be positive")
	}
	if cfg.InitialBackoff > cfg.MaxBackoff {
		return fmt.Errorf("invalid backoff: initial_backoff %s exceeds max_backoff %s", cfg.InitialBackoff, cfg.MaxBackoff)
	}
	if cfg.DefaultMode != "" && !models.IsValidMode(cfg.DefaultMode) {
		return fmt.Errorf("invalid default_mode: %s (expected one of %s)", cfg.DefaultMode, models.ModeNames())
	}
	if cfg.OutputFormat != "" && cfg.OutputFormat != OutputText && cfg.OutputFormat != OutputJSON {
		return fmt.Errorf("invalid output_format: %s (expected text or json)", cfg.OutputFormat)
	}
	return nil
}

// SetValue parses value and assigns it to key.
func (c *Config) SetValue(key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case "api_key":
		return fmt.Errorf("api_key is not stored in the config file; set XAI_API_KEY instead")
	case "base_url":
		c.BaseURL = value
	case "timeout", "initial_backoff", "max_backoff":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "timeout":
			c.Timeout = d
		case "initial_backoff":
			c.InitialBackoff = d
		default:
			c.MaxBackoff = d
		}
	case "max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_retries: %w", err)
		}
		c.MaxRetries = n
	case "tls_profile":
		c.TLSProfile = value
	case "default_mode":
		mode, err := models.ParseMode(value)
		if err != nil {
			return err
		}
		c.DefaultMode = mode
	case "output_format":
		c.OutputFormat = strings.ToLower(value)
	case "incognito":
		c.Incognito = ParseBoolean(value, c.Incognito)
	case "history_file":
		c.HistoryFile = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Validate(c)
}

// Value returns the display form of key.
func (c *Config) Value(key string) string {
	switch key {
	case "api_key":
		return auth.MaskKey(c.APIKey)
	case "base_url":
		return c.BaseURL
	case "timeout":
		return c.Timeout.String()
	case "max_retries":
		return strconv.Itoa(c.MaxRetries)
	case "initial_backoff":
		return c.InitialBackoff.String()
	case "max_backoff":
		return c.MaxBackoff.String()
	case "tls_profile":
		return c.TLSProfile
	case "default_mode":
		return string(c.DefaultMode)
	case "output_format":
		return c.OutputFormat
	case "incognito":
		return strconv.FormatBool(c.Incognito)
	case "history_file":
		return c.HistoryFile
	}
	return ""
}

// GetConfigDir returns the configuration directory path.
func (m *Manager) GetConfigDir() string {
	return m.cfgDir
}

// GetConfigFile returns the configuration file path.
func (m *Manager) GetConfigFile() string {
	return m.cfgFile
}

// ParseBoolean parses boolean strings (true, false, 1, 0, yes, no, on, off).
func ParseBoolean(value string, defaultValue bool) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
