package auth

import (
	"context"
	"fmt"
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
)

func tokenServer(t *testing.T, expiresIn int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":%d}`, n, expiresIn)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestObtainToken(t *testing.T) {
	server, calls := tokenServer(t, 900)
	a := NewAuthenticator("id", "secret", server.URL, zap.NewNop())

	tok, err := a.ObtainToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.False(t, tok.Expiry.IsZero())

	// ObtainToken always exchanges
	tok, err = a.ObtainToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestRefreshReusesValidToken(t *testing.T) {
	server, calls := tokenServer(t, 900)
	a := NewAuthenticator("id", "secret", server.URL, zap.NewNop())

	for i := 0; i < 3; i++ {
		tok, err := a.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRefreshAfterExpiry(t *testing.T) {
	server, calls := tokenServer(t, 900)
	now := time.Now()
	a := NewAuthenticator("id", "secret", server.URL, zap.NewNop(),
		WithClock(func() time.Time { return now }))

	_, err := a.Refresh(context.Background())
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	tok, err := a.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestConcurrentRefreshSingleExchange(t *testing.T) {
	server, calls := tokenServer(t, 900)
	a := NewAuthenticator("id", "secret", server.URL, zap.NewNop())

	var wg sync.WaitGroup
	tokens := make([]string, 16)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := a.AccessToken(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	for _, tok := range tokens {
		assert.Equal(t, "tok-1", tok)
	}
}

func TestInvalidate(t *testing.T) {
	server, _ := tokenServer(t, 900)
	a := NewAuthenticator("id", "secret", server.URL, zap.NewNop())

	first, err := a.AccessToken(context.Background())
	require.NoError(t, err)

	// A stale token leaves the current one alone
	a.Invalidate("someone-elses-token")
	require.NotNil(t, a.Current())

	a.Invalidate(first)
	assert.Nil(t, a.Current())

	second, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestObtainTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	a := NewAuthenticator("id", "wrong", server.URL, zap.NewNop())
	_, err := a.ObtainToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.False(t, errors.IsRetryable(err))

	var typed *errors.Error
	require.True(t, errors.As(err, &typed))
	status, ok := typed.Detail("status")
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Nil(t, a.Current())
}

func TestObtainTokenNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	a := NewAuthenticator("id", "secret", url, zap.NewNop())
	_, err := a.ObtainToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}
