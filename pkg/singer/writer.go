// Package singer writes Singer protocol messages. Each message is one JSON
// line; SCHEMA precedes the RECORDs of its stream and STATE carries the
// bookmarks.
package singer

import (
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-criteo/pkg/json"
)

func init() {
	// Money values are written as JSON numbers, keeping every digit
	decimal.MarshalJSONWithoutQuotes = true
}

// Message types
const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
)

// SchemaMessage announces a stream's schema
type SchemaMessage struct {
	Type               string                 `json:"type"`
	Stream             string                 `json:"stream"`
	Schema             map[string]interface{} `json:"schema"`
	KeyProperties      []string               `json:"key_properties"`
	BookmarkProperties []string               `json:"bookmark_properties,omitempty"`
}

// RecordMessage carries one row
type RecordMessage struct {
	Type          string                 `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	TimeExtracted string                 `json:"time_extracted,omitempty"`
}

// StateMessage carries the tap state
type StateMessage struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// Writer serializes messages to an io.Writer. It is safe for concurrent use;
// each message is written whole.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a writer on out
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteSchema writes a SCHEMA message
func (w *Writer) WriteSchema(stream string, schema map[string]interface{}, keyProperties []string, bookmarkProperties []string) error {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return w.write(&SchemaMessage{
		Type:               TypeSchema,
		Stream:             stream,
		Schema:             schema,
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	})
}

// WriteRecord writes a RECORD message
func (w *Writer) WriteRecord(stream string, record map[string]interface{}, timeExtracted time.Time) error {
	msg := &RecordMessage{
		Type:   TypeRecord,
		Stream: stream,
		Record: record,
	}
	if !timeExtracted.IsZero() {
		msg.TimeExtracted = timeExtracted.UTC().Format(time.RFC3339Nano)
	}
	return w.write(msg)
}

// WriteState writes a STATE message
func (w *Writer) WriteState(value interface{}) error {
	return w.write(&StateMessage{Type: TypeState, Value: value})
}

func (w *Writer) write(msg interface{}) error {
	buf, err := jsonpool.MarshalToBuffer(msg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode singer message")
	}
	defer jsonpool.PutBuffer(buf)
	buf.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write singer message")
	}
	return nil
}
