package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig())
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, nil)

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &buf

	shutdown, err := InitTracing(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = InitTracing(context.Background(), DefaultTracingConfig())
	})

	_, span := StartSpan(context.Background(), "criteo.request", attribute.String("stream", "campaigns"))
	assert.True(t, span.SpanContext().IsValid())
	EndSpan(span, errors.New("boom"))

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "criteo.request")
	assert.Contains(t, buf.String(), "boom")
}
