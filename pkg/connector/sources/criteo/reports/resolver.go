package reports

import (
	"sync"

	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// ResolvedReportSpec is the frozen result of resolving a selection. Its
// primary key is always exactly its dimensions.
type ResolvedReportSpec struct {
	dimensions []string
	metrics    []string
}

// Resolve partitions the selected properties of selection into dimensions
// and metrics, in selection order. Unknown fields and Currency are dropped.
// An empty selection resolves to an empty spec.
func Resolve(selection core.Selection) ResolvedReportSpec {
	spec := ResolvedReportSpec{
		dimensions: []string{},
		metrics:    []string{},
	}
	for _, name := range selection.SelectedProperties() {
		switch {
		case IsDimension(name):
			spec.dimensions = append(spec.dimensions, name)
		case IsMetric(name) && name != CurrencyField:
			spec.metrics = append(spec.metrics, name)
		}
	}
	return spec
}

// Dimensions returns a copy of the resolved dimensions
func (s ResolvedReportSpec) Dimensions() []string {
	return append([]string{}, s.dimensions...)
}

// Metrics returns a copy of the resolved metrics
func (s ResolvedReportSpec) Metrics() []string {
	return append([]string{}, s.metrics...)
}

// PrimaryKey returns a copy of the dimensions, which are the report's key
func (s ResolvedReportSpec) PrimaryKey() []string {
	return s.Dimensions()
}

// ReportSpec is a report's selection state: unresolved until Resolve is
// called, then frozen for the life of the stream.
type ReportSpec struct {
	mu       sync.RWMutex
	resolved *ResolvedReportSpec
}

// Resolve resolves selection once. Later calls fail with a conflict error
// and leave the first result in place.
func (r *ReportSpec) Resolve(selection core.Selection) (ResolvedReportSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return *r.resolved, errors.New(errors.ErrorTypeConflict, "report selection already resolved")
	}
	spec := Resolve(selection)
	r.resolved = &spec
	return spec, nil
}

// Resolved returns the frozen spec and whether resolution has happened
func (r *ReportSpec) Resolved() (ResolvedReportSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.resolved == nil {
		return ResolvedReportSpec{dimensions: []string{}, metrics: []string{}}, false
	}
	return *r.resolved, true
}
