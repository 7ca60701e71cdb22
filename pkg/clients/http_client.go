// Package clients provides the HTTP transport used by Criteo streams
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-criteo/pkg/json"
	"github.com/ajitpratap0/nebula-criteo/pkg/metrics"
	"github.com/ajitpratap0/nebula-criteo/pkg/observability"
)

// maxErrorBody bounds the response excerpt attached to HTTP errors
const maxErrorBody = 512

// TokenProvider supplies bearer tokens. Invalidate is called with a token the
// API rejected so the next AccessToken call exchanges a fresh one.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate(accessToken string)
}

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	BaseURL string `json:"base_url"`

	// Connection settings
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	EnableHTTP2         bool          `json:"enable_http2"`

	// Rate limiting, requests per second. Zero disables the limiter.
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`

	// Retries on connection errors, 429 and 5xx
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	UserAgent string `json:"user_agent"`
}

// DefaultHTTPConfig returns default configuration for the Criteo API
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		BaseURL:             "https://api.criteo.com",
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		RequestTimeout:      30 * time.Second,
		EnableHTTP2:         true,
		RateLimit:           5,
		RateBurst:           1,
		MaxRetries:          3,
		RetryDelay:          time.Second,
		UserAgent:           "tap-criteo/1.0",
	}
}

// HTTPClient sends authenticated JSON requests to the Criteo API
type HTTPClient struct {
	config     *HTTPConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport
	tokens     TokenProvider
	limiter    *rate.Limiter
	retry      *RetryPolicy
}

// NewHTTPClient creates a client. tokens may be nil for unauthenticated use.
func NewHTTPClient(config *HTTPConfig, tokens TokenProvider, logger *zap.Logger) *HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}

	client := &HTTPClient{
		config: config,
		logger: logger.With(zap.String("component", "http_client")),
		tokens: tokens,
		retry:  NewRetryPolicy(config.MaxRetries+1, config.RetryDelay),
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	client.httpClient = &http.Client{
		Transport: client.transport,
		Timeout:   config.RequestTimeout,
	}

	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return client
}

// Get performs a GET request and returns the response body
func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body and returns the response body
func (c *HTTPClient) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do sends a request, retrying retryable failures, and returns the body of
// the first 2xx response.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		buf, err := jsonpool.MarshalToBuffer(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode request body").
				WithDetail("path", path)
		}
		payload = append([]byte(nil), buf.Bytes()...)
		jsonpool.PutBuffer(buf)
	}

	var result []byte
	err := c.retry.Execute(ctx, func() error {
		data, err := c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
		result = data
		return nil
	}, func(err error) bool {
		if !errors.IsRetryable(err) {
			return false
		}
		metrics.RequestRetries.WithLabelValues(path).Inc()
		c.logger.Warn("retrying request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Records sends a request and returns the JSON objects found at recordsPath,
// in response order. Numbers are kept as json.Number. A missing path yields
// no records.
func (c *HTTPClient) Records(ctx context.Context, method, path string, body interface{}, recordsPath ...string) ([]map[string]interface{}, error) {
	data, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return ExtractRecords(data, recordsPath...)
}

// ExtractRecords decodes the array at recordsPath into records. An object at
// recordsPath is returned as a single record.
func ExtractRecords(data []byte, recordsPath ...string) ([]map[string]interface{}, error) {
	value, dataType, _, err := jsonparser.Get(data, recordsPath...)
	if err == jsonparser.KeyPathNotFoundError {
		return []map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed response body").
			WithDetail("records_path", strings.Join(recordsPath, "."))
	}

	switch dataType {
	case jsonparser.Null:
		return []map[string]interface{}{}, nil
	case jsonparser.Object:
		record, err := decodeRecord(value)
		if err != nil {
			return nil, err
		}
		return []map[string]interface{}{record}, nil
	case jsonparser.Array:
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "records path holds %s, expected array", dataType).
			WithDetail("records_path", strings.Join(recordsPath, "."))
	}

	records := make([]map[string]interface{}, 0)
	var decodeErr error
	_, err = jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
		if decodeErr != nil {
			return
		}
		if itemType != jsonparser.Object {
			decodeErr = errors.Newf(errors.ErrorTypeData, "record is %s, expected object", itemType)
			return
		}
		record, err := decodeRecord(item)
		if err != nil {
			decodeErr = err
			return
		}
		records = append(records, record)
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed records array")
	}
	return records, nil
}

func decodeRecord(raw []byte) (map[string]interface{}, error) {
	record := make(map[string]interface{})
	if err := jsonpool.UnmarshalUseNumber(raw, &record); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode record")
	}
	return record, nil
}

// send performs one attempt. A 401 invalidates the token and is retried once
// with a fresh token inside the same attempt.
func (c *HTTPClient) send(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "criteo.http",
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	data, err := c.sendAuthorized(ctx, method, path, payload, true)
	observability.EndSpan(span, err)
	return data, err
}

func (c *HTTPClient) sendAuthorized(ctx context.Context, method, path string, payload []byte, allowReauth bool) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	var token string
	if c.tokens != nil {
		var err error
		token, err = c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
	}

	req, err := c.newRequest(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RequestDuration.WithLabelValues(method, path, "error").Observe(timer.Seconds())
		return nil, classifyTransportError(ctx, err, path)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	metrics.RequestDuration.WithLabelValues(method, path, strconv.Itoa(resp.StatusCode)).Observe(timer.Seconds())
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.ErrorTypeConnection, "failed to read response body").
			WithDetail("path", path)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && allowReauth {
		c.logger.Info("token rejected, re-authenticating", zap.String("path", path))
		c.tokens.Invalidate(token)
		return c.sendAuthorized(ctx, method, path, payload, false)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, method, path, data)
	}
	return data, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, payload []byte, token string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid request").WithDetail("url", url)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	return req, nil
}

// Close releases idle connections
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func classifyTransportError(ctx context.Context, err error, path string) error {
	// Caller cancellation is never retried
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out").WithDetail("path", path)
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "request failed").WithDetail("path", path)
}

func statusError(status int, method, path string, body []byte) error {
	excerpt := string(body)
	if len(excerpt) > maxErrorBody {
		excerpt = excerpt[:maxErrorBody]
	}

	var errType errors.ErrorType
	switch {
	case status == http.StatusTooManyRequests:
		errType = errors.ErrorTypeRateLimit
	case status >= 500:
		errType = errors.ErrorTypeConnection
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = errors.ErrorTypeAuthentication
	default:
		errType = errors.ErrorTypeData
	}

	return errors.Newf(errType, "%s %s returned HTTP %d", method, path, status).
		WithDetail("status", status).
		WithDetail("body", excerpt)
}
