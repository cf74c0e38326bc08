package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/implicit-session/internal/constants"
	"github.com/oshokin/implicit-session/internal/logger"
)

// Endpoint holds the identity provider endpoints.
type Endpoint struct {
	// AuthURL is the authorization endpoint the login starts at.
	AuthURL string `mapstructure:"auth_url"`
}

// Config holds all configuration settings.
type Config struct {
	// Endpoint holds the identity provider endpoints.
	Endpoint Endpoint `mapstructure:"endpoint"`
	// RedirectURL is the redirect URI registered for the client.
	RedirectURL string `mapstructure:"redirect_url"`
	// ClientID is the OAuth client identifier.
	ClientID string `mapstructure:"client_id"`
	// Scopes is the ordered list of requested scopes.
	Scopes []string `mapstructure:"scopes"`
	// Prompt is the value of the optional prompt parameter. Empty means the parameter is not sent.
	Prompt string `mapstructure:"prompt"`
	// SendNonce adds a random nonce parameter, which some providers require even for the implicit flow.
	SendNonce bool `mapstructure:"send_nonce"`
	// SessionFile is the path the captured session is written to.
	SessionFile string `mapstructure:"session_file"`
	// CaptureLocalStorage enables reading local storage of the page when the redirect fires.
	CaptureLocalStorage bool `mapstructure:"capture_local_storage"`
	// UserAgent overrides the browser User-Agent.
	UserAgent string `mapstructure:"user_agent"`
	// Proxy is an optional HTTP proxy in host:port form.
	Proxy string `mapstructure:"proxy"`
	// BrowserPath is an optional path to a Chrome or Chromium binary.
	BrowserPath string `mapstructure:"browser_path"`
	// Headless runs the browser without a window.
	Headless bool `mapstructure:"headless"`
	// ExtraHeaders are added to every request the browser sends.
	ExtraHeaders map[string]string `mapstructure:"extra_headers"`
	// Timeout limits how long to wait for the redirect (e.g., "5m"). Empty or "0" waits forever.
	Timeout string `mapstructure:"timeout"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// ParsedTimeout is the parsed redirect timeout. Zero means no timeout.
	ParsedTimeout time.Duration
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
}

const (
	// DefaultUserAgent is the User-Agent the browser presents unless configured otherwise.
	DefaultUserAgent = "Chrome"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultMaxLogLength is the default maximum size (in bytes) for logged HTTP dumps.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB
)

// Static error definitions for better error handling.
var (
	// ErrReadConfig indicates that the configuration file could not be read or parsed.
	ErrReadConfig = errors.New("failed to read config from file")
	// ErrInvalidConfig indicates that the configuration is incomplete or malformed.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingAuthURL indicates that endpoint.auth_url is missing.
	ErrMissingAuthURL = errors.New("endpoint.auth_url cannot be empty")
	// ErrInvalidAuthURL indicates that endpoint.auth_url is not an absolute URL.
	ErrInvalidAuthURL = errors.New("endpoint.auth_url must be an absolute URL")
	// ErrMissingRedirectURL indicates that redirect_url is missing.
	ErrMissingRedirectURL = errors.New("redirect_url cannot be empty")
	// ErrInvalidRedirectURL indicates that redirect_url is not an absolute URL.
	ErrInvalidRedirectURL = errors.New("redirect_url must be an absolute URL")
	// ErrMissingClientID indicates that client_id is missing.
	ErrMissingClientID = errors.New("client_id cannot be empty")
	// ErrMissingSessionFile indicates that session_file is empty.
	ErrMissingSessionFile = errors.New("session_file cannot be empty")
	// ErrInvalidTimeout indicates that the timeout is negative.
	ErrInvalidTimeout = errors.New("timeout cannot be negative")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
)

// LoadConfig loads configuration settings from a JSON file.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = constants.DefaultConfigFilename
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configFilename)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration populated with default values only.
func Default() *Config {
	return &Config{
		SessionFile:         constants.DefaultSessionFilename,
		CaptureLocalStorage: true,
		UserAgent:           DefaultUserAgent,
		LogLevel:            DefaultLogLevel,
		ExtraHeaders:        map[string]string{},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("session_file", defaults.SessionFile)
	v.SetDefault("capture_local_storage", defaults.CaptureLocalStorage)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("headless", false)
	v.SetDefault("send_nonce", false)
}

// ValidateConfig checks the configuration of a login and sets derived fields.
func ValidateConfig(cfg *Config) error {
	if err := checkAbsoluteURL(cfg.Endpoint.AuthURL, ErrMissingAuthURL, ErrInvalidAuthURL); err != nil {
		return err
	}

	if err := checkAbsoluteURL(cfg.RedirectURL, ErrMissingRedirectURL, ErrInvalidRedirectURL); err != nil {
		return err
	}

	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingClientID)
	}

	timeout := strings.TrimSpace(cfg.Timeout)
	cfg.ParsedTimeout = 0

	if timeout != "" && timeout != "0" {
		parsedTimeout, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("%w: failed to parse timeout: %w", ErrInvalidConfig, err)
		}

		if parsedTimeout < 0 {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidTimeout)
		}

		cfg.ParsedTimeout = parsedTimeout
	}

	return ValidateSessionConfig(cfg)
}

// ValidateSessionConfig checks only what commands working with a saved session need.
// Provider settings are not required.
func ValidateSessionConfig(cfg *Config) error {
	cfg.SessionFile = strings.TrimSpace(cfg.SessionFile)
	if cfg.SessionFile == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingSessionFile)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: %w: '%s'", ErrInvalidConfig, ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	return nil
}

func checkAbsoluteURL(raw string, missingErr, invalidErr error) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, missingErr)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrInvalidConfig, invalidErr, err)
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: %w: '%s'", ErrInvalidConfig, invalidErr, raw)
	}

	return nil
}
