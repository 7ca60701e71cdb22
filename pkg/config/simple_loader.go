package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. TAP_CRITEO_CLIENT_SECRET
const EnvPrefix = "TAP_CRITEO"

// keys that may be supplied only through the environment
var envKeys = []string{
	"client_id", "client_secret", "currency", "start_date", "end_date",
	"api_url", "token_url", "api_version", "request_timeout", "rate_limit_per_sec",
	"max_retries", "retry_delay", "max_concurrent_streams", "coercion_error_policy",
	"log_level", "enable_tracing",
}

// Load layers defaults, the optional file at filePath and TAP_CRITEO_*
// environment variables (low to high precedence), then validates the result.
func Load(filePath string) (*TapConfig, error) {
	v := newViper()

	if filePath != "" {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the command line
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", filePath)
		}
		v.SetConfigType(configType(filePath))
		if err := v.ReadConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config file").
				WithDetail("path", filePath)
		}
	}

	return decode(v)
}

// LoadBytes loads configuration from in-memory content of the given type ("json" or "yaml")
func LoadBytes(data []byte, contentType string) (*TapConfig, error) {
	v := newViper()
	v.SetConfigType(contentType)
	if err := v.ReadConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config")
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := NewTapConfig()
	v.SetDefault("currency", defaults.Currency)
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("token_url", defaults.TokenURL)
	v.SetDefault("api_version", defaults.APIVersion)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("rate_limit_per_sec", defaults.RateLimitPerSec)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("max_concurrent_streams", defaults.MaxConcurrentStreams)
	v.SetDefault("coercion_error_policy", defaults.CoercionErrorPolicy)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("enable_tracing", defaults.EnableTracing)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

func decode(v *viper.Viper) (*TapConfig, error) {
	cfg := NewTapConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// decodeHook extends viper's default hooks. YAML turns an unquoted date into
// a time.Time, which is written back as RFC3339 for the string date fields.
// Bare numbers given for durations are seconds.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(timeToStringHook),
		mapstructure.DecodeHookFuncType(secondsToDurationHook),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

func timeToStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from != timeType || to.Kind() != reflect.String {
		return data, nil
	}
	return data.(time.Time).UTC().Format(time.RFC3339), nil
}

func secondsToDurationHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}

	var seconds float64
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		seconds = float64(reflect.ValueOf(data).Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		seconds = float64(reflect.ValueOf(data).Uint())
	case reflect.Float32, reflect.Float64:
		seconds = reflect.ValueOf(data).Float()
	case reflect.String:
		// "30" from the environment; "30s" is left to the duration hook
		s, err := strconv.ParseFloat(strings.TrimSpace(data.(string)), 64)
		if err != nil {
			return data, nil
		}
		seconds = s
	default:
		return data, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Substituted values are not scanned again.
func substituteEnvVars(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
