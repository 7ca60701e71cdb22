package core

import (
	"context"
	"time"
)

// State represents the bookmarks of one sync run, keyed by stream
type State map[string]interface{}

// Record is one row produced by a stream
type Record struct {
	Stream        string
	Data          map[string]interface{}
	TimeExtracted time.Time
}

// NewRecord creates a record stamped with the extraction time
func NewRecord(stream string, data map[string]interface{}) *Record {
	return &Record{
		Stream:        stream,
		Data:          data,
		TimeExtracted: time.Now().UTC(),
	}
}

// RecordStream represents a stream of records. Errors carries both fatal
// errors and per-record errors; the producer keeps going after a per-record
// error and closes both channels when done.
type RecordStream struct {
	Records <-chan *Record
	Errors  <-chan error
}

// Fetcher retrieves raw JSON records from the API
type Fetcher interface {
	Records(ctx context.Context, method, path string, body interface{}, recordsPath ...string) ([]map[string]interface{}, error)
}

// Stream is the interface every Criteo stream implements
type Stream interface {
	// Name is the stream's tap_stream_id
	Name() string
	// Path is the request path, including the API version prefix
	Path() string
	// Schema is the published output schema
	Schema() *Schema
	// KeyProperties returns the primary key columns
	KeyProperties() []string
	// ReplicationKey returns the incremental bookmark column, or ""
	ReplicationKey() string
	// Read starts producing records
	Read(ctx context.Context) (*RecordStream, error)
}

// CatalogApplier is implemented by streams whose request shape depends on
// the consumer's field selection
type CatalogApplier interface {
	ApplyCatalog(selection Selection) error
}

// KeyPropertiesManager is implemented by streams that compute their own key
// properties. The generic key-property mapper leaves such streams alone.
type KeyPropertiesManager interface {
	ManagesKeyProperties() bool
}

// ManagesOwnKeys reports whether s opted out of generic key remapping
func ManagesOwnKeys(s Stream) bool {
	m, ok := s.(KeyPropertiesManager)
	return ok && m.ManagesKeyProperties()
}

// SelectionEntry is the resolved inclusion of one catalog breadcrumb
type SelectionEntry struct {
	Breadcrumb []string
	Selected   bool
}

// Property returns the property name for a ["properties", name] breadcrumb
func (e SelectionEntry) Property() (string, bool) {
	if len(e.Breadcrumb) != 2 || e.Breadcrumb[0] != "properties" {
		return "", false
	}
	return e.Breadcrumb[1], true
}

// Selection is the ordered list of resolved breadcrumb selections for one
// stream, the stream root first
type Selection []SelectionEntry

// SelectedProperties returns the names of selected properties in order
func (s Selection) SelectedProperties() []string {
	names := make([]string, 0, len(s))
	for _, entry := range s {
		if !entry.Selected {
			continue
		}
		if name, ok := entry.Property(); ok {
			names = append(names, name)
		}
	}
	return names
}

// StreamSelected reports whether the root breadcrumb is selected
func (s Selection) StreamSelected() bool {
	for _, entry := range s {
		if len(entry.Breadcrumb) == 0 {
			return entry.Selected
		}
	}
	return false
}

// PropertySelected reports whether a property is selected. Properties with no
// entry count as selected.
func (s Selection) PropertySelected(name string) bool {
	for _, entry := range s {
		if prop, ok := entry.Property(); ok && prop == name {
			return entry.Selected
		}
	}
	return true
}
