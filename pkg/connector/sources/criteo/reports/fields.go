// Package reports holds the Criteo statistics report core: the dimension and
// metric catalogs, selection resolution, the report request body, and the
// per-field coercion of report rows.
package reports

import (
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
)

// CurrencyField is published in the schema and stamped on every row but is
// never requested from the API
const CurrencyField = "Currency"

// FieldDefinition describes one report field
type FieldDefinition struct {
	Name      string
	Type      core.FieldType
	Dimension bool
}

func dimension(name string, t core.FieldType) FieldDefinition {
	return FieldDefinition{Name: name, Type: t, Dimension: true}
}

func metric(name string, t core.FieldType) FieldDefinition {
	return FieldDefinition{Name: name, Type: t}
}

var dimensionFields = []FieldDefinition{
	dimension("Adset", core.FieldTypeString),
	dimension("AdsetId", core.FieldTypeString),
	dimension("Campaign", core.FieldTypeString),
	dimension("CampaignId", core.FieldTypeString),
	dimension("Advertiser", core.FieldTypeString),
	dimension("AdvertiserId", core.FieldTypeString),
	dimension("OS", core.FieldTypeString),
	dimension("Device", core.FieldTypeString),
	dimension("MarketingObjective", core.FieldTypeString),
	dimension("MarketingObjectiveId", core.FieldTypeString),
	dimension("CouponId", core.FieldTypeString),
	dimension("Coupon", core.FieldTypeString),
	dimension("Day", core.FieldTypeDate),
}

// Metrics from https://developers.criteo.com/marketing-solutions/docs/campaign-statistics#metrics
var metricFields = []FieldDefinition{
	metric(CurrencyField, core.FieldTypeString),
	metric("Clicks", core.FieldTypeInteger),
	metric("Displays", core.FieldTypeInteger),
	metric("Visits", core.FieldTypeInteger),
	metric("AdvertiserCost", core.FieldTypeNumber),
	metric("SalesClientAttribution", core.FieldTypeInteger),
	metric("SalesAllClientAttribution", core.FieldTypeInteger),
	metric("SalesPc30d", core.FieldTypeInteger),
	metric("SalesAllPc30d", core.FieldTypeInteger),
	metric("SalesPv24h", core.FieldTypeInteger),
	metric("SalesAllPv24h", core.FieldTypeInteger),
	metric("SalesPc30dPv24h", core.FieldTypeInteger),
	metric("SalesAllPc30dPv24h", core.FieldTypeInteger),
	metric("SalesPc1d", core.FieldTypeInteger),
	metric("SalesAllPc1d", core.FieldTypeInteger),
	metric("SalesPc7d", core.FieldTypeInteger),
	metric("SalesAllPc7d", core.FieldTypeInteger),
	metric("RevenueGeneratedClientAttribution", core.FieldTypeNumber),
	metric("RevenueGeneratedAllClientAttribution", core.FieldTypeNumber),
	metric("RevenueGeneratedPc30d", core.FieldTypeNumber),
	metric("RevenueGeneratedAllPc30d", core.FieldTypeNumber),
	metric("RevenueGeneratedPv24h", core.FieldTypeNumber),
	metric("RevenueGeneratedAllPv24h", core.FieldTypeNumber),
	metric("RevenueGeneratedPc30dPv24h", core.FieldTypeNumber),
	metric("RevenueGeneratedAllPc30dPv24h", core.FieldTypeNumber),
	metric("RevenueGeneratedPc1d", core.FieldTypeNumber),
	metric("RevenueGeneratedAllPc1d", core.FieldTypeNumber),
	metric("RevenueGeneratedPc7d", core.FieldTypeNumber),
	metric("RevenueGeneratedAllPc7d", core.FieldTypeNumber),
}

var (
	dimensionIndex = indexFields(dimensionFields)
	metricIndex    = indexFields(metricFields)
)

func indexFields(fields []FieldDefinition) map[string]FieldDefinition {
	index := make(map[string]FieldDefinition, len(fields))
	for _, f := range fields {
		index[f.Name] = f
	}
	return index
}

// Dimensions returns the dimension registry in declaration order
func Dimensions() []FieldDefinition {
	return append([]FieldDefinition(nil), dimensionFields...)
}

// Metrics returns the metric registry in declaration order, Currency included
func Metrics() []FieldDefinition {
	return append([]FieldDefinition(nil), metricFields...)
}

// Merged returns dimensions followed by metrics
func Merged() []FieldDefinition {
	merged := make([]FieldDefinition, 0, len(dimensionFields)+len(metricFields))
	merged = append(merged, dimensionFields...)
	return append(merged, metricFields...)
}

// IsDimension reports whether name is a known dimension
func IsDimension(name string) bool {
	_, ok := dimensionIndex[name]
	return ok
}

// IsMetric reports whether name is a known metric. Currency is a metric.
func IsMetric(name string) bool {
	_, ok := metricIndex[name]
	return ok
}

// Lookup returns the definition of a dimension or metric
func Lookup(name string) (FieldDefinition, bool) {
	if f, ok := dimensionIndex[name]; ok {
		return f, true
	}
	f, ok := metricIndex[name]
	return f, ok
}

// Schema returns the merged catalog as a stream schema
func Schema(streamName string) *core.Schema {
	merged := Merged()
	fields := make([]core.Field, len(merged))
	for i, f := range merged {
		fields[i] = core.Field{Name: f.Name, Type: f.Type}
	}
	return &core.Schema{Name: streamName, Fields: fields}
}
