// Package auth obtains bearer tokens for the Criteo API using the OAuth2
// client-credentials grant.
package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	"github.com/ajitpratap0/nebula-criteo/pkg/metrics"
)

// DefaultTokenURL is Criteo's token endpoint
const DefaultTokenURL = "https://api.criteo.com/oauth2/token"

// Token is a bearer token and its expiry. A zero Expiry never expires.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// Authenticator holds the process-wide current token. All streams share one
// Authenticator; at most one exchange is in flight and every caller observes
// the token it produced.
type Authenticator struct {
	config     clientcredentials.Config
	httpClient *http.Client
	logger     *zap.Logger

	// leeway treats a token as expired slightly before its real expiry
	leeway time.Duration
	now    func() time.Time

	mu    sync.Mutex
	token *Token
}

// Option customizes an Authenticator
type Option func(*Authenticator)

// WithHTTPClient sets the client used for the token exchange
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = c }
}

// WithLeeway sets how long before expiry a token is considered stale
func WithLeeway(d time.Duration) Option {
	return func(a *Authenticator) { a.leeway = d }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator creates an Authenticator for the given credentials
func NewAuthenticator(clientID, clientSecret, tokenURL string, logger *zap.Logger, opts ...Option) *Authenticator {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	a := &Authenticator{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			// Credentials travel in the form body
			AuthStyle: oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(zap.String("component", "authenticator")),
		leeway:     30 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ObtainToken always exchanges the client credentials for a new token and
// stores it as the current token.
func (a *Authenticator) ObtainToken(ctx context.Context) (*Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exchangeLocked(ctx)
}

// Refresh re-runs the exchange when the current token is expired or absent
// and returns the current token otherwise.
func (a *Authenticator) Refresh(ctx context.Context) (*Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.validLocked() {
		return a.token, nil
	}
	return a.exchangeLocked(ctx)
}

// AccessToken returns a valid bearer token, refreshing it if needed
func (a *Authenticator) AccessToken(ctx context.Context) (string, error) {
	tok, err := a.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Invalidate drops the current token if it is still the given one. A caller
// that saw a 401 with a token another caller already replaced leaves the
// fresh token alone.
func (a *Authenticator) Invalidate(accessToken string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != nil && a.token.AccessToken == accessToken {
		a.token = nil
	}
}

// Current returns the current token without refreshing, or nil
func (a *Authenticator) Current() *Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == nil {
		return nil
	}
	tok := *a.token
	return &tok
}

func (a *Authenticator) validLocked() bool {
	if a.token == nil || a.token.AccessToken == "" {
		return false
	}
	if a.token.Expiry.IsZero() {
		return true
	}
	return a.now().Add(a.leeway).Before(a.token.Expiry)
}

func (a *Authenticator) exchangeLocked(ctx context.Context) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := a.config.Token(ctx)
	if err != nil {
		metrics.TokenRequests.WithLabelValues("failure").Inc()
		authErr := errors.Wrap(err, errors.ErrorTypeAuthentication, "client credentials exchange failed").
			WithDetail("token_url", a.config.TokenURL)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			authErr = authErr.WithDetail("status", retrieveErr.Response.StatusCode)
		}
		return nil, authErr
	}
	if tok.AccessToken == "" {
		metrics.TokenRequests.WithLabelValues("failure").Inc()
		return nil, errors.New(errors.ErrorTypeAuthentication, "token endpoint returned an empty access token")
	}

	metrics.TokenRequests.WithLabelValues("success").Inc()
	a.token = &Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}

	a.logger.Info("access token acquired", zap.Time("expires_at", tok.Expiry))
	return a.token, nil
}
