package criteo

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/base"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/sources/criteo/reports"
	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// StatisticsStream is the statistics report. Its dimensions, metrics and
// key properties come from the field selection applied once via
// ApplyCatalog.
type StatisticsStream struct {
	*base.BaseStream

	cfg  *config.TapConfig
	spec reports.ReportSpec
	now  func() time.Time
}

// NewStatisticsStream creates an unresolved statistics stream
func NewStatisticsStream(cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) *StatisticsStream {
	return &StatisticsStream{
		BaseStream: base.NewBaseStream(base.StreamConfig{
			Name:           StreamStatistics,
			Method:         http.MethodPost,
			Path:           cfg.APIPath("statistics/report"),
			RecordsPath:    []string{"Rows"},
			Schema:         reports.Schema(StreamStatistics),
			ReplicationKey: "Day",
		}, fetcher, logger),
		cfg: cfg,
		now: time.Now,
	}
}

// KeyProperties returns the resolved dimensions, or nothing before
// resolution
func (s *StatisticsStream) KeyProperties() []string {
	resolved, _ := s.spec.Resolved()
	return resolved.PrimaryKey()
}

// ManagesKeyProperties opts the stream out of generic key remapping
func (s *StatisticsStream) ManagesKeyProperties() bool { return true }

// Spec returns the resolved report spec and whether the catalog was applied
func (s *StatisticsStream) Spec() (reports.ResolvedReportSpec, bool) {
	return s.spec.Resolved()
}

// ApplyCatalog resolves the selection into dimensions and metrics. It may be
// called once.
func (s *StatisticsStream) ApplyCatalog(selection core.Selection) error {
	spec, err := s.spec.Resolve(selection)
	if err != nil {
		return err
	}

	s.Logger().Info("computed report selection",
		zap.Strings("dimensions", spec.Dimensions()),
		zap.Strings("metrics", spec.Metrics()),
		zap.Strings("primary_keys", spec.PrimaryKey()))
	return nil
}

// Request builds the report body for the current run
func (s *StatisticsStream) Request() (*reports.ReportRequest, error) {
	spec, ok := s.spec.Resolved()
	if !ok {
		return nil, errors.New(errors.ErrorTypeValidation, "statistics stream read before its catalog was applied")
	}
	return reports.BuildRequestAt(spec, s.cfg.Currency, s.cfg.StartDate, s.cfg.EndDate, s.now)
}

// Read posts the report request and emits post-processed rows. Rows that
// fail coercion are reported on the error channel.
func (s *StatisticsStream) Read(ctx context.Context) (*core.RecordStream, error) {
	req, err := s.Request()
	if err != nil {
		return nil, err
	}

	currency := s.cfg.Currency
	return s.Produce(ctx,
		func(ctx context.Context) ([]map[string]interface{}, error) {
			return s.Fetch(ctx, req)
		},
		func(raw map[string]interface{}) (map[string]interface{}, error) {
			return reports.PostProcess(raw, currency)
		},
	), nil
}
