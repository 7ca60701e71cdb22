// Package catalog models the Singer catalog: the streams a tap offers, their
// JSON schemas, and the per-field metadata a consumer uses to select fields.
package catalog

import (
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
)

// Inclusion values
const (
	InclusionAvailable   = "available"
	InclusionAutomatic   = "automatic"
	InclusionUnsupported = "unsupported"
)

// Replication methods
const (
	ReplicationFullTable   = "FULL_TABLE"
	ReplicationIncremental = "INCREMENTAL"
)

// Catalog is the set of streams offered by the tap
type Catalog struct {
	Streams []*Entry `json:"streams" yaml:"streams"`
}

// Entry describes one stream
type Entry struct {
	TapStreamID       string                 `json:"tap_stream_id" yaml:"tap_stream_id"`
	Stream            string                 `json:"stream" yaml:"stream"`
	Schema            map[string]interface{} `json:"schema" yaml:"schema"`
	KeyProperties     []string               `json:"key_properties" yaml:"key_properties"`
	ReplicationKey    string                 `json:"replication_key,omitempty" yaml:"replication_key,omitempty"`
	ReplicationMethod string                 `json:"replication_method,omitempty" yaml:"replication_method,omitempty"`
	Metadata          []*MetadataEntry       `json:"metadata" yaml:"metadata"`
}

// MetadataEntry attaches metadata to a breadcrumb. The empty breadcrumb is the
// stream itself; ["properties", name] is a field.
type MetadataEntry struct {
	Breadcrumb []string  `json:"breadcrumb" yaml:"breadcrumb"`
	Metadata   *Metadata `json:"metadata" yaml:"metadata"`
}

// Metadata holds the standard Singer metadata keys
type Metadata struct {
	Inclusion               string   `json:"inclusion,omitempty" yaml:"inclusion,omitempty"`
	Selected                *bool    `json:"selected,omitempty" yaml:"selected,omitempty"`
	SelectedByDefault       *bool    `json:"selected-by-default,omitempty" yaml:"selected-by-default,omitempty"`
	TableKeyProperties      []string `json:"table-key-properties,omitempty" yaml:"table-key-properties,omitempty"`
	ValidReplicationKeys    []string `json:"valid-replication-keys,omitempty" yaml:"valid-replication-keys,omitempty"`
	ForcedReplicationMethod string   `json:"forced-replication-method,omitempty" yaml:"forced-replication-method,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// FromStreams builds the discovery catalog. Every stream and field is
// selected by default; declared key and replication properties are automatic.
func FromStreams(streams []core.Stream) *Catalog {
	c := &Catalog{Streams: make([]*Entry, 0, len(streams))}
	for _, s := range streams {
		c.Streams = append(c.Streams, EntryFromStream(s))
	}
	return c
}

// EntryFromStream builds the catalog entry of one stream
func EntryFromStream(s core.Stream) *Entry {
	keys := s.KeyProperties()
	if keys == nil {
		keys = []string{}
	}
	replicationKey := s.ReplicationKey()

	root := &Metadata{
		Inclusion:               InclusionAvailable,
		Selected:                boolPtr(true),
		TableKeyProperties:      keys,
		ForcedReplicationMethod: ReplicationFullTable,
	}
	if replicationKey != "" {
		root.ValidReplicationKeys = []string{replicationKey}
		root.ForcedReplicationMethod = ReplicationIncremental
	}

	automatic := make(map[string]bool, len(keys)+1)
	for _, k := range keys {
		automatic[k] = true
	}
	if replicationKey != "" {
		automatic[replicationKey] = true
	}

	schema := s.Schema()
	entry := &Entry{
		TapStreamID:       s.Name(),
		Stream:            s.Name(),
		Schema:            schema.JSONSchema(),
		KeyProperties:     keys,
		ReplicationKey:    replicationKey,
		ReplicationMethod: root.ForcedReplicationMethod,
		Metadata:          []*MetadataEntry{{Breadcrumb: []string{}, Metadata: root}},
	}

	for _, f := range schema.Fields {
		inclusion := InclusionAvailable
		if automatic[f.Name] {
			inclusion = InclusionAutomatic
		}
		entry.Metadata = append(entry.Metadata, &MetadataEntry{
			Breadcrumb: []string{"properties", f.Name},
			Metadata: &Metadata{
				Inclusion:         inclusion,
				SelectedByDefault: boolPtr(true),
			},
		})
	}
	return entry
}

// Get returns the entry with the given tap_stream_id, or nil
func (c *Catalog) Get(tapStreamID string) *Entry {
	for _, e := range c.Streams {
		if e.TapStreamID == tapStreamID {
			return e
		}
	}
	return nil
}

// SelectedStreams returns the entries whose root breadcrumb is selected
func (c *Catalog) SelectedStreams() []*Entry {
	selected := make([]*Entry, 0, len(c.Streams))
	for _, e := range c.Streams {
		if e.IsSelected() {
			selected = append(selected, e)
		}
	}
	return selected
}

// RootMetadata returns the stream-level metadata, creating it if absent
func (e *Entry) RootMetadata() *Metadata {
	for _, m := range e.Metadata {
		if len(m.Breadcrumb) == 0 {
			if m.Metadata == nil {
				m.Metadata = &Metadata{}
			}
			return m.Metadata
		}
	}
	md := &Metadata{}
	e.Metadata = append([]*MetadataEntry{{Breadcrumb: []string{}, Metadata: md}}, e.Metadata...)
	return md
}

// SetKeyProperties publishes keys as the entry's key properties
func (e *Entry) SetKeyProperties(keys []string) {
	keys = append([]string{}, keys...)
	e.KeyProperties = keys
	e.RootMetadata().TableKeyProperties = keys
}

// IsSelected reports whether the stream itself is selected
func (e *Entry) IsSelected() bool {
	return e.ResolveSelection().StreamSelected()
}

// SchemaProperties returns the property names declared by the entry's schema
func (e *Entry) SchemaProperties() map[string]bool {
	props := make(map[string]bool)
	raw, ok := e.Schema["properties"].(map[string]interface{})
	if !ok {
		return props
	}
	for name := range raw {
		props[name] = true
	}
	return props
}

// ResolveSelection computes the inclusion of every breadcrumb, in metadata
// order with the stream root first. Unsupported entries are never selected,
// automatic entries always are, an explicit selected flag wins over
// selected-by-default, and the properties of an unselected stream are all
// unselected.
func (e *Entry) ResolveSelection() core.Selection {
	var root *Metadata
	for _, m := range e.Metadata {
		if len(m.Breadcrumb) == 0 {
			root = m.Metadata
			break
		}
	}
	streamSelected := resolve(root, false)

	selection := make(core.Selection, 0, len(e.Metadata)+1)
	selection = append(selection, core.SelectionEntry{Breadcrumb: []string{}, Selected: streamSelected})

	for _, m := range e.Metadata {
		if len(m.Breadcrumb) == 0 {
			continue
		}
		selected := streamSelected && resolve(m.Metadata, false)
		selection = append(selection, core.SelectionEntry{
			Breadcrumb: append([]string(nil), m.Breadcrumb...),
			Selected:   selected,
		})
	}
	return selection
}

func resolve(md *Metadata, fallback bool) bool {
	if md == nil {
		return fallback
	}
	switch md.Inclusion {
	case InclusionUnsupported:
		return false
	case InclusionAutomatic:
		return true
	}
	if md.Selected != nil {
		return *md.Selected
	}
	if md.SelectedByDefault != nil {
		return *md.SelectedByDefault
	}
	return fallback
}
