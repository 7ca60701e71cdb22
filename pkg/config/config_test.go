package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

func validConfig() *TapConfig {
	cfg := NewTapConfig()
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.StartDate = "2024-01-01"
	return cfg
}

func TestTapConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *TapConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *TapConfig) {}},
		{name: "valid with end date", mutate: func(c *TapConfig) { c.EndDate = "2024-02-01T00:00:00Z" }},
		{name: "missing client id", mutate: func(c *TapConfig) { c.ClientID = "" }, wantErr: "client_id is required"},
		{name: "missing client secret", mutate: func(c *TapConfig) { c.ClientSecret = " " }, wantErr: "client_secret is required"},
		{name: "missing start date", mutate: func(c *TapConfig) { c.StartDate = "" }, wantErr: "start_date is required"},
		{name: "unparseable start date", mutate: func(c *TapConfig) { c.StartDate = "yesterday" }, wantErr: "cannot parse date-time"},
		{name: "unparseable end date", mutate: func(c *TapConfig) { c.EndDate = "02/30" }, wantErr: "cannot parse date-time"},
		{name: "end before start", mutate: func(c *TapConfig) { c.EndDate = "2023-12-31" }, wantErr: "end_date is before start_date"},
		{name: "bad policy", mutate: func(c *TapConfig) { c.CoercionErrorPolicy = "ignore" }, wantErr: "coercion_error_policy"},
		{name: "no concurrency", mutate: func(c *TapConfig) { c.MaxConcurrentStreams = 0 }, wantErr: "max_concurrent_streams"},
		{name: "nanosecond timeout", mutate: func(c *TapConfig) { c.RequestTimeout = 30 }, wantErr: "request_timeout"},
		{name: "zero timeout", mutate: func(c *TapConfig) { c.RequestTimeout = 0 }, wantErr: "request_timeout"},
		{name: "negative retry delay", mutate: func(c *TapConfig) { c.RetryDelay = -time.Second }, wantErr: "retry_delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("json file with env substitution", func(t *testing.T) {
		t.Setenv("CRITEO_TEST_SECRET", "s3cret")
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"client_id": "abc",
			"client_secret": "${CRITEO_TEST_SECRET}",
			"start_date": "2024-01-01T00:00:00Z",
			"request_timeout": "10s",
			"stream_maps": {"statistics": {"__alias__": "criteo_stats"}}
		}`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "abc", cfg.ClientID)
		assert.Equal(t, "s3cret", cfg.ClientSecret)
		assert.Equal(t, "USD", cfg.Currency)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
		assert.False(t, cfg.HasEndDate())
		assert.Equal(t, "criteo_stats", cfg.StreamMaps["statistics"].Alias)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("client_id: abc\nclient_secret: def\ncurrency: EUR\nstart_date: \"2024-01-01\"\nend_date: \"2024-01-31\"\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "EUR", cfg.Currency)
		assert.True(t, cfg.HasEndDate())
	})

	t.Run("yaml unquoted dates", func(t *testing.T) {
		cfg, err := LoadBytes([]byte("client_id: abc\nclient_secret: def\nstart_date: 2024-01-01\nend_date: 2024-01-31T12:30:00Z\n"), "yaml")
		require.NoError(t, err)

		start, err := ParseInstant(cfg.StartDate)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
		end, err := ParseInstant(cfg.EndDate)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 31, 12, 30, 0, 0, time.UTC), end)
	})

	t.Run("numeric durations are seconds", func(t *testing.T) {
		cfg, err := LoadBytes([]byte(`{
			"client_id": "abc",
			"client_secret": "def",
			"start_date": "2024-01-01",
			"request_timeout": 30,
			"retry_delay": 0.5
		}`), "json")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	})

	t.Run("yaml durations", func(t *testing.T) {
		cfg, err := LoadBytes([]byte("client_id: abc\nclient_secret: def\nstart_date: \"2024-01-01\"\nrequest_timeout: 45\nretry_delay: 2s\n"), "yaml")
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	})

	t.Run("numeric duration from environment", func(t *testing.T) {
		t.Setenv("TAP_CRITEO_REQUEST_TIMEOUT", "20")
		cfg, err := LoadBytes([]byte(`{"client_id": "abc", "client_secret": "def", "start_date": "2024-01-01"}`), "json")
		require.NoError(t, err)
		assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("TAP_CRITEO_CLIENT_ID", "from-env")
		t.Setenv("TAP_CRITEO_CLIENT_SECRET", "env-secret")
		t.Setenv("TAP_CRITEO_START_DATE", "2024-03-01")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.ClientID)
		assert.Equal(t, "2024-03-01", cfg.StartDate)
	})

	t.Run("missing required option", func(t *testing.T) {
		_, err := LoadBytes([]byte(`{"client_id": "abc"}`), "json")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("CRITEO_TEST_SELF", "${CRITEO_TEST_SELF}")
	t.Setenv("CRITEO_TEST_ID", "abc")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: `{"id": "${CRITEO_TEST_ID}"}`, want: `{"id": "abc"}`},
		{name: "repeated", input: "${CRITEO_TEST_ID}-${CRITEO_TEST_ID}", want: "abc-abc"},
		{name: "unset", input: "x${CRITEO_TEST_UNSET}y", want: "xy"},
		{name: "value is not rescanned", input: "a ${CRITEO_TEST_SELF} b", want: "a ${CRITEO_TEST_SELF} b"},
		{name: "unterminated", input: "a ${CRITEO_TEST_ID", want: "a ${CRITEO_TEST_ID"},
		{name: "dollar without brace", input: "pa$$word", want: "pa$$word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestParseInstant(t *testing.T) {
	got, err := ParseInstant("2024-02-15 08:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 15, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseInstant("15/02/2024")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
