package config

import (
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// Coercion error policies
const (
	CoercionPolicyFail = "fail"
	CoercionPolicySkip = "skip"
)

// TapConfig is the configuration of one connector run
type TapConfig struct {
	// Credentials for the client-credentials grant
	ClientID     string `mapstructure:"client_id" json:"client_id"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret"`

	// Currency requested from the report API and stamped on every report record
	Currency string `mapstructure:"currency" json:"currency"`

	// StartDate and EndDate bound the report window. EndDate may be empty.
	StartDate string `mapstructure:"start_date" json:"start_date"`
	EndDate   string `mapstructure:"end_date" json:"end_date,omitempty"`

	// API endpoints
	APIURL     string `mapstructure:"api_url" json:"api_url"`
	TokenURL   string `mapstructure:"token_url" json:"token_url"`
	APIVersion string `mapstructure:"api_version" json:"api_version"`

	// Transport behavior
	RequestTimeout  time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	MaxRetries      int           `mapstructure:"max_retries" json:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" json:"retry_delay"`

	// Sync behavior
	MaxConcurrentStreams int                  `mapstructure:"max_concurrent_streams" json:"max_concurrent_streams"`
	CoercionErrorPolicy  string               `mapstructure:"coercion_error_policy" json:"coercion_error_policy"`
	StreamMaps           map[string]StreamMap `mapstructure:"stream_maps" json:"stream_maps,omitempty"`

	// Observability
	LogLevel      string `mapstructure:"log_level" json:"log_level"`
	EnableTracing bool   `mapstructure:"enable_tracing" json:"enable_tracing"`
}

// StreamMap overrides how a stream is published to the downstream pipeline
type StreamMap struct {
	// Alias renames the stream in SCHEMA, RECORD and STATE messages
	Alias string `mapstructure:"__alias__" json:"__alias__,omitempty"`
	// KeyProperties replaces the stream's declared key properties
	KeyProperties []string `mapstructure:"__key_properties__" json:"__key_properties__,omitempty"`
}

// NewTapConfig returns a TapConfig populated with defaults
func NewTapConfig() *TapConfig {
	return &TapConfig{
		Currency:             "USD",
		APIURL:               "https://api.criteo.com",
		TokenURL:             "https://api.criteo.com/oauth2/token",
		APIVersion:           "2023-01",
		RequestTimeout:       30 * time.Second,
		RateLimitPerSec:      5,
		MaxRetries:           3,
		RetryDelay:           time.Second,
		MaxConcurrentStreams: 2,
		CoercionErrorPolicy:  CoercionPolicyFail,
		LogLevel:             "info",
	}
}

// Validate checks required options and the parseability of the date window.
// Every failure is an ErrorTypeConfig error.
func (c *TapConfig) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return configError("client_id", "client_id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return configError("client_secret", "client_secret is required")
	}
	if strings.TrimSpace(c.Currency) == "" {
		return configError("currency", "currency must not be empty")
	}
	if strings.TrimSpace(c.StartDate) == "" {
		return configError("start_date", "start_date is required")
	}

	start, err := ParseInstant(c.StartDate)
	if err != nil {
		return err
	}
	if c.EndDate != "" {
		end, err := ParseInstant(c.EndDate)
		if err != nil {
			return err
		}
		if end.Before(start) {
			return configError("end_date", "end_date is before start_date")
		}
	}

	switch c.CoercionErrorPolicy {
	case CoercionPolicyFail, CoercionPolicySkip:
	default:
		return configError("coercion_error_policy", "coercion_error_policy must be \"fail\" or \"skip\"").
			WithDetail("value", c.CoercionErrorPolicy)
	}
	if c.RateLimitPerSec < 0 {
		return configError("rate_limit_per_sec", "rate_limit_per_sec cannot be negative")
	}
	if c.RequestTimeout < time.Millisecond {
		return configError("request_timeout", "request_timeout must be at least 1ms").
			WithDetail("value", c.RequestTimeout.String())
	}
	if c.RetryDelay < 0 {
		return configError("retry_delay", "retry_delay cannot be negative")
	}
	if c.MaxRetries < 0 {
		return configError("max_retries", "max_retries cannot be negative")
	}
	if c.MaxConcurrentStreams < 1 {
		return configError("max_concurrent_streams", "max_concurrent_streams must be at least 1")
	}
	return nil
}

// HasEndDate reports whether an explicit end date was configured
func (c *TapConfig) HasEndDate() bool {
	return strings.TrimSpace(c.EndDate) != ""
}

// APIPath prefixes path with the configured API version
func (c *TapConfig) APIPath(path string) string {
	return "/" + c.APIVersion + "/" + strings.TrimPrefix(path, "/")
}

func configError(option, message string) *errors.Error {
	return errors.New(errors.ErrorTypeConfig, message).WithDetail("option", option)
}
