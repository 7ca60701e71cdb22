// Package pipeline runs the tap: it discovers the catalog, applies a
// consumer's catalog to the streams, and syncs the selected streams to a
// Singer writer.
//
// # Sync
//
// A sync run proceeds in fixed order:
//   - catalog application: streams whose request depends on the field
//     selection resolve it, and their computed key properties are published
//     into the catalog entry
//   - key mapping: the Mapper publishes static and overridden keys
//   - validation: every key property must exist in its stream's schema
//   - streaming: selected streams run concurrently, each writing SCHEMA,
//     then RECORD per row, then STATE
//
// # Basic Usage
//
//	tap, err := pipeline.NewTap(cfg, registry.GetRegistry(), client, singer.NewWriter(os.Stdout), logger)
//	if err != nil {
//	    return err
//	}
//	err = tap.Sync(ctx, cat, state)
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/nebula-criteo/pkg/catalog"
	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	"github.com/ajitpratap0/nebula-criteo/pkg/observability"
	"github.com/ajitpratap0/nebula-criteo/pkg/singer"
)

const defaultProgressInterval = 30 * time.Second

// Tap owns the streams of one run
type Tap struct {
	config  *config.TapConfig
	streams []core.Stream
	mapper  *Mapper
	writer  *singer.Writer
	logger  *zap.Logger

	progressInterval time.Duration
}

// plannedStream is a selected stream with its catalog entry
type plannedStream struct {
	stream    core.Stream
	entry     *catalog.Entry
	selection core.Selection
}

// NewTap validates cfg and creates every registered stream
func NewTap(cfg *config.TapConfig, reg *registry.Registry, fetcher core.Fetcher, writer *singer.Writer, logger *zap.Logger) (*Tap, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	streams, err := reg.CreateAll(cfg, fetcher, logger)
	if err != nil {
		return nil, err
	}
	return &Tap{
		config:           cfg,
		streams:          streams,
		mapper:           NewMapper(cfg.StreamMaps, streams, logger),
		writer:           writer,
		logger:           logger,
		progressInterval: defaultProgressInterval,
	}, nil
}

// Streams returns the tap's streams in name order
func (t *Tap) Streams() []core.Stream {
	return append([]core.Stream(nil), t.streams...)
}

// Discover builds the catalog of every stream
func (t *Tap) Discover() *catalog.Catalog {
	return catalog.FromStreams(t.streams)
}

// Sync runs every selected stream of cat. A nil catalog selects everything;
// a nil state starts from scratch. The first stream failure cancels the rest.
func (t *Tap) Sync(ctx context.Context, cat *catalog.Catalog, state *singer.State) (err error) {
	if cat == nil {
		cat = t.Discover()
	}
	if state == nil {
		state = singer.NewState()
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.sync")
	defer func() { observability.EndSpan(span, err) }()

	plan, err := t.prepare(cat)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		t.logger.Warn("no streams selected")
		return nil
	}

	names := make([]string, 0, len(plan))
	for _, p := range plan {
		names = append(names, p.stream.Name())
	}
	span.SetAttributes(attribute.StringSlice("streams", names))
	t.logger.Info("starting sync",
		zap.Strings("streams", names),
		zap.Int("max_concurrent_streams", t.config.MaxConcurrentStreams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.config.MaxConcurrentStreams)
	for _, p := range plan {
		p := p
		g.Go(func() error {
			return t.syncStream(gctx, p, state)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t.logger.Info("sync completed", zap.Int("streams", len(plan)))
	return nil
}

// prepare applies the catalog, runs the mapper and validates key properties
func (t *Tap) prepare(cat *catalog.Catalog) ([]plannedStream, error) {
	plan := make([]plannedStream, 0, len(t.streams))
	for _, s := range t.streams {
		entry := cat.Get(s.Name())
		if entry == nil {
			t.logger.Debug("stream not in catalog", zap.String("stream", s.Name()))
			continue
		}
		selection := entry.ResolveSelection()
		if !selection.StreamSelected() {
			t.logger.Debug("stream not selected", zap.String("stream", s.Name()))
			continue
		}

		if applier, ok := s.(core.CatalogApplier); ok {
			if err := applier.ApplyCatalog(selection); err != nil {
				return nil, err
			}
			entry.SetKeyProperties(s.KeyProperties())
		}
		plan = append(plan, plannedStream{stream: s, entry: entry, selection: selection})
	}

	for _, p := range plan {
		t.mapper.Apply(p.stream, p.entry)
	}

	for _, p := range plan {
		schema := p.stream.Schema()
		for _, key := range p.entry.KeyProperties {
			if !schema.HasField(key) {
				return nil, errors.Newf(errors.ErrorTypeValidation,
					"key property %q is not in the schema of stream %q", key, p.stream.Name()).
					WithDetail("stream", p.stream.Name()).
					WithDetail("key_property", key)
			}
		}
	}
	return plan, nil
}
