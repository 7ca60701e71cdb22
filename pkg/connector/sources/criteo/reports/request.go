package reports

import (
	"time"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
)

// ReportRequest is the body of POST /statistics/report
type ReportRequest struct {
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
	Currency   string   `json:"currency"`
	Format     string   `json:"format"`
	Timezone   string   `json:"timezone"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
}

// BuildRequest builds the report body. Without an end date the window ends
// now, so repeated calls produce a moving window.
func BuildRequest(spec ResolvedReportSpec, currency, startDate, endDate string) (*ReportRequest, error) {
	return BuildRequestAt(spec, currency, startDate, endDate, time.Now)
}

// BuildRequestAt is BuildRequest with an explicit clock
func BuildRequestAt(spec ResolvedReportSpec, currency, startDate, endDate string, now func() time.Time) (*ReportRequest, error) {
	start, err := config.ParseInstant(startDate)
	if err != nil {
		return nil, err
	}

	var end time.Time
	if endDate != "" {
		end, err = config.ParseInstant(endDate)
		if err != nil {
			return nil, err
		}
	} else {
		end = now().UTC()
	}

	return &ReportRequest{
		Dimensions: spec.Dimensions(),
		Metrics:    spec.Metrics(),
		Currency:   currency,
		Format:     "json",
		Timezone:   "UTC",
		StartDate:  start.Format(time.RFC3339Nano),
		EndDate:    end.Format(time.RFC3339Nano),
	}, nil
}
