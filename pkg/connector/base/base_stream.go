// Package base provides BaseStream, the shared implementation behind every
// Criteo REST stream.
//
// # Usage
//
// Fixed-schema streams are a BaseStream configured with a path and a records
// path:
//
//	stream := base.NewBaseStream(base.StreamConfig{
//	    Name:          "audiences",
//	    Method:        http.MethodGet,
//	    Path:          "/2023-01/audiences",
//	    RecordsPath:   []string{"data"},
//	    Schema:        schema,
//	    KeyProperties: []string{"id"},
//	}, client, logger)
//
// Streams with dynamic requests embed BaseStream and call Produce with their
// own fetch and transform functions.
package base

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
)

const (
	recordBufferSize = 256
	errorBufferSize  = 16
)

// FetchFunc retrieves the raw records of one stream run
type FetchFunc func(ctx context.Context) ([]map[string]interface{}, error)

// TransformFunc turns one raw record into an output record
type TransformFunc func(raw map[string]interface{}) (map[string]interface{}, error)

// StreamConfig describes a REST stream
type StreamConfig struct {
	Name           string
	Method         string
	Path           string
	RecordsPath    []string
	Body           interface{}
	Schema         *core.Schema
	KeyProperties  []string
	ReplicationKey string
}

// BaseStream implements core.Stream for a single request/response endpoint
type BaseStream struct {
	config  StreamConfig
	fetcher core.Fetcher
	logger  *zap.Logger
}

// NewBaseStream creates a stream backed by fetcher
func NewBaseStream(config StreamConfig, fetcher core.Fetcher, logger *zap.Logger) *BaseStream {
	return &BaseStream{
		config:  config,
		fetcher: fetcher,
		logger:  logger.With(zap.String("stream", config.Name)),
	}
}

// Name returns the stream name
func (s *BaseStream) Name() string { return s.config.Name }

// Path returns the request path
func (s *BaseStream) Path() string { return s.config.Path }

// Method returns the HTTP method
func (s *BaseStream) Method() string { return s.config.Method }

// Schema returns the output schema
func (s *BaseStream) Schema() *core.Schema { return s.config.Schema }

// ReplicationKey returns the bookmark column, if any
func (s *BaseStream) ReplicationKey() string { return s.config.ReplicationKey }

// KeyProperties returns a copy of the declared key properties
func (s *BaseStream) KeyProperties() []string {
	return append([]string(nil), s.config.KeyProperties...)
}

// Logger returns the stream's logger
func (s *BaseStream) Logger() *zap.Logger { return s.logger }

// Fetch issues the stream's request with body and extracts its records
func (s *BaseStream) Fetch(ctx context.Context, body interface{}) ([]map[string]interface{}, error) {
	return s.fetcher.Records(ctx, s.config.Method, s.config.Path, body, s.config.RecordsPath...)
}

// Read fetches with the configured body and passes records through unchanged
func (s *BaseStream) Read(ctx context.Context) (*core.RecordStream, error) {
	return s.Produce(ctx, func(ctx context.Context) ([]map[string]interface{}, error) {
		return s.Fetch(ctx, s.config.Body)
	}, nil), nil
}

// Produce runs fetch in a goroutine and emits each record after transform,
// in response order. A transform error is sent on Errors and the record is
// dropped; a fetch error is sent on Errors and ends the stream.
func (s *BaseStream) Produce(ctx context.Context, fetch FetchFunc, transform TransformFunc) *core.RecordStream {
	records := make(chan *core.Record, recordBufferSize)
	errs := make(chan error, errorBufferSize)

	go func() {
		defer close(records)
		defer close(errs)

		raws, err := fetch(ctx)
		if err != nil {
			sendError(ctx, errs, err)
			return
		}
		s.logger.Debug("fetched records", zap.Int("count", len(raws)))

		for _, raw := range raws {
			data := raw
			if transform != nil {
				data, err = transform(raw)
				if err != nil {
					if !sendError(ctx, errs, err) {
						return
					}
					continue
				}
			}

			select {
			case records <- core.NewRecord(s.config.Name, data):
			case <-ctx.Done():
				return
			}
		}
	}()

	return &core.RecordStream{Records: records, Errors: errs}
}

func sendError(ctx context.Context, errs chan<- error, err error) bool {
	select {
	case errs <- err:
		return true
	case <-ctx.Done():
		return false
	}
}
