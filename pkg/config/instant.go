package config

import (
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// instantLayouts are tried in order. Layouts without a zone are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant parses a configured date or date-time into a UTC instant
func ParseInstant(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New(errors.ErrorTypeConfig, "cannot parse date-time").
		WithDetail("value", value)
}
