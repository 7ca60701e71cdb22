// Package registry maps stream names to the factories that build them.
// Stream packages register themselves from init.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// StreamFactory creates a fresh stream instance for one run
type StreamFactory func(cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) (core.Stream, error)

// StreamInfo describes a registered stream
type StreamInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Dynamic     bool   `json:"dynamic"`
}

type registration struct {
	info    StreamInfo
	factory StreamFactory
}

// Registry manages stream registration and instantiation
type Registry struct {
	streams map[string]registration
	mu      sync.RWMutex
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new stream registry
func NewRegistry() *Registry {
	return &Registry{
		streams: make(map[string]registration),
	}
}

// Register registers a stream factory
func (r *Registry) Register(info StreamInfo, factory StreamFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[info.Name]; exists {
		return errors.New(errors.ErrorTypeConflict, fmt.Sprintf("stream %s already registered", info.Name))
	}
	r.streams[info.Name] = registration{info: info, factory: factory}
	return nil
}

// Create creates one stream instance
func (r *Registry) Create(name string, cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) (core.Stream, error) {
	r.mu.RLock()
	reg, exists := r.streams[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("stream %s not found", name))
	}

	stream, err := reg.factory(cfg, fetcher, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create stream %s", name))
	}
	return stream, nil
}

// CreateAll creates an instance of every registered stream, ordered by name
func (r *Registry) CreateAll(cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) ([]core.Stream, error) {
	names := r.List()
	streams := make([]core.Stream, 0, len(names))
	for _, name := range names {
		s, err := r.Create(name, cfg, fetcher, logger)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// List returns registered stream names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.streams))
	for name := range r.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the descriptions of registered streams, ordered by name
func (r *Registry) Info() []StreamInfo {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]StreamInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, r.streams[name].info)
	}
	return infos
}

// Has checks if a stream is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.streams[name]
	return exists
}

// Global registry functions

// Register registers a stream in the global registry
func Register(info StreamInfo, factory StreamFactory) error {
	return globalRegistry.Register(info, factory)
}

// MustRegister is Register for use from init; it panics on duplicates
func MustRegister(info StreamInfo, factory StreamFactory) {
	if err := Register(info, factory); err != nil {
		panic(err)
	}
}

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}
