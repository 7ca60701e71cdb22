package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/base"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	"github.com/ajitpratap0/nebula-criteo/pkg/metrics"
	"github.com/ajitpratap0/nebula-criteo/pkg/observability"
	"github.com/ajitpratap0/nebula-criteo/pkg/singer"
)

// syncStream writes the SCHEMA, RECORD and STATE messages of one stream
func (t *Tap) syncStream(ctx context.Context, p plannedStream, state *singer.State) (err error) {
	name := p.stream.Name()
	output := t.mapper.OutputName(name)
	logger := t.logger.With(zap.String("stream", name))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "pipeline.sync_stream",
		attribute.String("stream", name))
	timer := metrics.NewTimer()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.StreamDuration.WithLabelValues(name, status).Observe(timer.Seconds())
		observability.EndSpan(span, err)
	}()

	// Streams that apply the catalog shape their own records
	_, applier := p.stream.(core.CatalogApplier)
	filter := !applier

	schema := p.stream.Schema().JSONSchema()
	if filter {
		schema = filterSchema(schema, p.selection)
	}
	var bookmarkProps []string
	replicationKey := p.stream.ReplicationKey()
	if replicationKey != "" {
		bookmarkProps = []string{replicationKey}
	}
	if err := t.writer.WriteSchema(output, schema, p.entry.KeyProperties, bookmarkProps); err != nil {
		return err
	}

	rs, err := p.stream.Read(ctx)
	if err != nil {
		return err
	}

	progress := base.NewProgressReporter(logger, t.progressInterval)
	progress.Start()
	defer progress.Stop()

	var maxValue interface{}
	records, errs := rs.Records, rs.Errors
	for records != nil || errs != nil {
		select {
		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			data := rec.Data
			if filter {
				data = filterRecord(data, p.selection)
			}
			if replicationKey != "" {
				if v := data[replicationKey]; later(maxValue, v) {
					maxValue = v
				}
			}
			if err := t.writer.WriteRecord(output, data, rec.TimeExtracted); err != nil {
				return err
			}
			metrics.RecordsEmitted.WithLabelValues(name).Inc()
			progress.IncrementProcessed(1)

		case streamErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err := t.handleStreamError(logger, name, streamErr); err != nil {
				return err
			}
			progress.IncrementSkipped(1)

		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if replicationKey != "" && maxValue != nil {
		state.SetBookmark(name, singer.Bookmark{
			ReplicationKey:      replicationKey,
			ReplicationKeyValue: maxValue,
		})
	}
	return t.writer.WriteState(state.Snapshot())
}

// handleStreamError applies the coercion error policy. Anything other than
// a coercion error under the skip policy is returned.
func (t *Tap) handleStreamError(logger *zap.Logger, stream string, err error) error {
	if !errors.IsType(err, errors.ErrorTypeCoercion) || t.config.CoercionErrorPolicy != config.CoercionPolicySkip {
		return err
	}

	field, value := "", interface{}(nil)
	var typed *errors.Error
	if errors.As(err, &typed) {
		if f, ok := typed.Detail("field"); ok {
			field = fmt.Sprint(f)
		}
		value, _ = typed.Detail("value")
	}
	logger.Warn("skipping record that failed coercion",
		zap.String("field", field),
		zap.Any("value", value),
		zap.Error(err))
	metrics.RecordsSkipped.WithLabelValues(stream, field).Inc()
	return nil
}

// filterRecord drops properties the selection excludes
func filterRecord(data map[string]interface{}, selection core.Selection) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if selection.PropertySelected(k) {
			out[k] = v
		}
	}
	return out
}

// filterSchema drops excluded properties from a JSON schema
func filterSchema(schema map[string]interface{}, selection core.Selection) map[string]interface{} {
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return schema
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	out["properties"] = filterRecord(props, selection)
	return out
}
