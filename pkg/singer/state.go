package singer

import (
	"os"
	"sync"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-criteo/pkg/json"
)

// Bookmark is the progress of one stream
type Bookmark struct {
	ReplicationKey      string      `json:"replication_key,omitempty"`
	ReplicationKeyValue interface{} `json:"replication_key_value,omitempty"`
}

// State is the tap state: bookmarks keyed by stream
type State struct {
	mu        sync.Mutex
	Bookmarks map[string]*Bookmark `json:"bookmarks"`
}

// NewState returns an empty state
func NewState() *State {
	return &State{Bookmarks: make(map[string]*Bookmark)}
}

// LoadState reads a state file
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read state").WithDetail("path", path)
	}
	return ParseState(data)
}

// ParseState decodes a state document. An empty document is an empty state.
func ParseState(data []byte) (*State, error) {
	s := NewState()
	if len(data) == 0 {
		return s, nil
	}
	if err := jsonpool.UnmarshalUseNumber(data, s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid state")
	}
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]*Bookmark)
	}
	return s, nil
}

// Bookmark returns a copy of a stream's bookmark
func (s *State) Bookmark(stream string) (Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Bookmarks[stream]
	if !ok || b == nil {
		return Bookmark{}, false
	}
	return *b, true
}

// SetBookmark replaces a stream's bookmark
func (s *State) SetBookmark(stream string, b Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Bookmarks[stream] = &b
}

// Snapshot returns a copy suitable for a STATE message
func (s *State) Snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := make(map[string]interface{}, len(s.Bookmarks))
	for name, b := range s.Bookmarks {
		if b == nil {
			continue
		}
		copied := *b
		bookmarks[name] = &copied
	}
	return map[string]interface{}{"bookmarks": bookmarks}
}
