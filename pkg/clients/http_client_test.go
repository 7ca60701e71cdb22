package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-criteo/pkg/json"
)

type fakeTokens struct {
	mu          sync.Mutex
	issued      int
	invalidated []string
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issued == 0 || len(f.invalidated) >= f.issued {
		f.issued++
	}
	return tokenName(f.issued), nil
}

func (f *fakeTokens) Invalidate(accessToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, accessToken)
}

func tokenName(n int) string {
	return "token-" + string(rune('0'+n))
}

func testConfig(url string) *HTTPConfig {
	cfg := DefaultHTTPConfig()
	cfg.BaseURL = url
	cfg.RateLimit = 0
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	cfg.EnableHTTP2 = false
	return cfg
}

func TestHTTPClientRecords(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2023-01/statistics/report", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = jsonpool.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"Rows":[{"Day":"02/15/2024","Clicks":"42"},{"Day":"02/16/2024","Clicks":7}],"Total":2}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL), &fakeTokens{}, zap.NewNop())
	defer client.Close()

	records, err := client.Records(context.Background(), http.MethodPost, "/2023-01/statistics/report",
		map[string]interface{}{"format": "json"}, "Rows")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "json", gotBody["format"])
	assert.Equal(t, "02/15/2024", records[0]["Day"])
	assert.Equal(t, jsonpool.Number("7"), records[1]["Clicks"])
}

func TestExtractRecords(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		path    []string
		want    int
		wantErr bool
	}{
		{name: "array", body: `{"data":[{"id":"1"},{"id":"2"}]}`, path: []string{"data"}, want: 2},
		{name: "missing path", body: `{"errors":[]}`, path: []string{"data"}, want: 0},
		{name: "null", body: `{"data":null}`, path: []string{"data"}, want: 0},
		{name: "single object", body: `{"data":{"id":"1"}}`, path: []string{"data"}, want: 1},
		{name: "scalar", body: `{"data":"nope"}`, path: []string{"data"}, wantErr: true},
		{name: "non-object element", body: `{"data":[1,2]}`, path: []string{"data"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ExtractRecords([]byte(tt.body), tt.path...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeData))
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.Get(context.Background(), "/2023-01/audiences")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClientRateLimitExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.Get(context.Background(), "/2023-01/audiences")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"title":"bad dimension"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.Post(context.Background(), "/2023-01/statistics/report", map[string]string{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var typed *errors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errors.ErrorTypeData, typed.Type)
	status, _ := typed.Detail("status")
	assert.Equal(t, http.StatusBadRequest, status)
	body, _ := typed.Detail("body")
	assert.Contains(t, body, "bad dimension")
}

func TestHTTPClientReauthenticatesOnce(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"42"}]}`))
	}))
	defer server.Close()

	tokens := &fakeTokens{}
	client := NewHTTPClient(testConfig(server.URL), tokens, zap.NewNop())
	records, err := client.Records(context.Background(), http.MethodGet, "/2023-01/advertisers/me", nil, "data")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, []string{"Bearer token-1", "Bearer token-2"}, seen)
	assert.Equal(t, []string{"token-1"}, tokens.invalidated)
}

func TestHTTPClientPersistentUnauthorized(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL), &fakeTokens{}, zap.NewNop())
	_, err := client.Get(context.Background(), "/2023-01/audiences")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPClientContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.Get(ctx, "/2023-01/audiences")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := NewRetryPolicy(3, 100*time.Millisecond)
	policy.RandomizeFactor = 0

	assert.Equal(t, 100*time.Millisecond, policy.GetDelay(0))
	assert.Equal(t, 200*time.Millisecond, policy.GetDelay(1))
	assert.Equal(t, 400*time.Millisecond, policy.GetDelay(2))

	policy.MaxDelay = 250 * time.Millisecond
	assert.Equal(t, 250*time.Millisecond, policy.GetDelay(2))
}

func TestRetryPolicyStopsOnNonRetryable(t *testing.T) {
	policy := NewRetryPolicy(5, time.Millisecond)
	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		return errors.New(errors.ErrorTypeConfig, "bad")
	}, errors.IsRetryable)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
