package pipeline

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/catalog"
	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
)

// Mapper is the generic post-catalog step. It publishes key properties for
// streams with static keys and renames streams according to stream_maps.
//
// Declared keys are snapshotted when the mapper is built. Streams that
// manage their own keys are left untouched, so a key computed from the
// field selection is never overwritten by a stale declaration.
type Mapper struct {
	maps     map[string]config.StreamMap
	declared map[string][]string
	logger   *zap.Logger
}

// NewMapper snapshots the declared keys of streams
func NewMapper(maps map[string]config.StreamMap, streams []core.Stream, logger *zap.Logger) *Mapper {
	m := &Mapper{
		maps:     maps,
		declared: make(map[string][]string, len(streams)),
		logger:   logger,
	}
	for _, s := range streams {
		if core.ManagesOwnKeys(s) {
			continue
		}
		m.declared[s.Name()] = s.KeyProperties()
	}
	return m
}

// Apply sets entry's key properties from the stream_maps override or the
// declared keys. It reports false when the stream manages its own keys.
func (m *Mapper) Apply(stream core.Stream, entry *catalog.Entry) bool {
	if core.ManagesOwnKeys(stream) {
		if sm, ok := m.maps[stream.Name()]; ok && sm.KeyProperties != nil {
			m.logger.Warn("ignoring __key_properties__ for stream with computed keys",
				zap.String("stream", stream.Name()))
		}
		return false
	}

	keys := m.declared[stream.Name()]
	if sm, ok := m.maps[stream.Name()]; ok && sm.KeyProperties != nil {
		keys = sm.KeyProperties
	}
	entry.SetKeyProperties(keys)
	return true
}

// OutputName returns the name the stream is published under
func (m *Mapper) OutputName(stream string) string {
	if sm, ok := m.maps[stream]; ok && sm.Alias != "" {
		return sm.Alias
	}
	return stream
}
