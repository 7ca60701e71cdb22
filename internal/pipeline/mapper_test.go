package pipeline

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/catalog"
	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/base"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/sources/criteo"
)

func TestMapper(t *testing.T) {
	items := base.NewBaseStream(base.StreamConfig{
		Name:          "items",
		Method:        http.MethodGet,
		Path:          "/items",
		Schema:        &core.Schema{Name: "items", Fields: []core.Field{{Name: "id", Type: core.FieldTypeString}}},
		KeyProperties: []string{"id"},
	}, &fakeFetcher{}, zap.NewNop())
	stats := criteo.NewStatisticsStream(testConfig(), &fakeFetcher{}, zap.NewNop())

	t.Run("declared keys", func(t *testing.T) {
		m := NewMapper(nil, []core.Stream{items, stats}, zap.NewNop())
		entry := catalog.EntryFromStream(items)
		entry.SetKeyProperties(nil)

		assert.True(t, m.Apply(items, entry))
		assert.Equal(t, []string{"id"}, entry.KeyProperties)
		assert.Equal(t, []string{"id"}, entry.RootMetadata().TableKeyProperties)
		assert.Equal(t, "items", m.OutputName("items"))
	})

	t.Run("override and alias", func(t *testing.T) {
		m := NewMapper(map[string]config.StreamMap{
			"items": {Alias: "things", KeyProperties: []string{}},
		}, []core.Stream{items}, zap.NewNop())
		entry := catalog.EntryFromStream(items)

		assert.True(t, m.Apply(items, entry))
		assert.Empty(t, entry.KeyProperties)
		assert.Equal(t, "things", m.OutputName("items"))
		assert.Equal(t, "other", m.OutputName("other"))
	})

	t.Run("computed keys left alone", func(t *testing.T) {
		m := NewMapper(map[string]config.StreamMap{
			criteo.StreamStatistics: {KeyProperties: []string{"Clicks"}},
		}, []core.Stream{items, stats}, zap.NewNop())
		entry := catalog.EntryFromStream(stats)
		entry.SetKeyProperties([]string{"Campaign"})

		assert.False(t, m.Apply(stats, entry))
		assert.Equal(t, []string{"Campaign"}, entry.KeyProperties)
	})
}

func TestLater(t *testing.T) {
	day := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		current   interface{}
		candidate interface{}
		want      bool
	}{
		{name: "nil candidate", current: "a", candidate: nil, want: false},
		{name: "nil current", current: nil, candidate: "a", want: true},
		{name: "time after", current: day, candidate: day.AddDate(0, 0, 1), want: true},
		{name: "time before", current: day, candidate: day.AddDate(0, 0, -1), want: false},
		{name: "time equal", current: day, candidate: day, want: false},
		{name: "int64", current: int64(9), candidate: int64(10), want: true},
		{name: "decimal", current: decimal.RequireFromString("10.5"), candidate: decimal.RequireFromString("9.75"), want: false},
		{name: "json number", current: json.Number("9"), candidate: json.Number("10"), want: true},
		{name: "string", current: "2024-01-02", candidate: "2024-01-05", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, later(tt.current, tt.candidate))
		})
	}
}
