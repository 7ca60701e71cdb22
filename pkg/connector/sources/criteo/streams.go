// Package criteo implements the Criteo Marketing Solutions streams: four
// fixed-schema resources and the statistics report, whose schema is the
// report field catalog and whose key is derived from the field selection.
package criteo

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/base"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/core"
)

// Stream names
const (
	StreamAdvertisers = "advertisers"
	StreamAudiences   = "audiences"
	StreamAdSets      = "ad_sets"
	StreamCampaigns   = "campaigns"
	StreamStatistics  = "statistics"
)

// resource describes a fixed-schema endpoint
type resource struct {
	name        string
	description string
	method      string
	path        string
}

var resources = []resource{
	{
		name:        StreamAdvertisers,
		description: "Advertisers the credentials can access",
		method:      http.MethodGet,
		path:        "advertisers/me",
	},
	{
		name:        StreamAudiences,
		description: "Audience segments",
		method:      http.MethodGet,
		path:        "audiences",
	},
	{
		name:        StreamAdSets,
		description: "Marketing Solutions ad sets",
		method:      http.MethodPost,
		path:        "marketing-solutions/ad-sets/search",
	},
	{
		name:        StreamCampaigns,
		description: "Marketing Solutions campaigns",
		method:      http.MethodPost,
		path:        "marketing-solutions/campaigns/search",
	},
}

// resourceSchema is the JSON:API envelope shared by every resource
func resourceSchema(name string) *core.Schema {
	return &core.Schema{
		Name: name,
		Fields: []core.Field{
			{Name: "id", Type: core.FieldTypeString},
			{Name: "type", Type: core.FieldTypeString},
			{Name: "attributes", Type: core.FieldTypeObject},
		},
	}
}

func newResourceStream(r resource, cfg *config.TapConfig, fetcher core.Fetcher, logger *zap.Logger) *base.BaseStream {
	var body interface{}
	if r.method == http.MethodPost {
		// Search endpoints take an empty filter to return everything
		body = map[string]interface{}{}
	}
	return base.NewBaseStream(base.StreamConfig{
		Name:          r.name,
		Method:        r.method,
		Path:          cfg.APIPath(r.path),
		RecordsPath:   []string{"data"},
		Body:          body,
		Schema:        resourceSchema(r.name),
		KeyProperties: []string{"id"},
	}, fetcher, logger)
}
