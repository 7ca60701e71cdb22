package criteo

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/registry"
)

func init() {
	for _, r := range resources {
		r := r
		registry.MustRegister(registry.StreamInfo{Name: r.name, Description: r.description},
			func(cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) (core.Stream, error) {
				return newResourceStream(r, cfg, fetcher, logger), nil
			})
	}

	registry.MustRegister(registry.StreamInfo{
		Name:        StreamStatistics,
		Description: "Campaign statistics report over the configured date window",
		Dynamic:     true,
	}, func(cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) (core.Stream, error) {
		return NewStatisticsStream(cfg, fetcher, logger), nil
	})
}
