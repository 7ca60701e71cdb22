// Package connector groups the building blocks of the Criteo tap's streams.
//
// # Architecture Overview
//
// The connector package is organized into several sub-packages:
//
//   - core: the Stream interface every stream implements, the record and
//     record-stream types, and the catalog selection a consumer applies.
//     Streams whose request depends on the selection also implement
//     CatalogApplier; streams that compute their own key properties
//     implement KeyPropertiesManager.
//
//   - base: BaseStream, the shared implementation of a single
//     request/response REST stream, and ProgressReporter.
//
//   - registry: a factory registry. Streams self-register during package
//     initialization and the tap creates them by name.
//
//   - sources/criteo: the Criteo streams. Four fixed-schema resources and the
//     statistics report, whose dimensions, metrics and key properties follow
//     the field selection.
//
// # Example Usage
//
// Creating streams from the registry:
//
//	import _ "github.com/ajitpratap0/nebula-criteo/pkg/connector/sources/criteo"
//
//	streams, err := registry.GetRegistry().CreateAll(cfg, client, logger)
//	if err != nil {
//		return err
//	}
//	for _, s := range streams {
//		fmt.Println(s.Name(), s.KeyProperties())
//	}
//
// Reading a stream:
//
//	rs, err := stream.Read(ctx)
//	if err != nil {
//		return err
//	}
//	for rec := range rs.Records {
//		process(rec.Data)
//	}
//
// Errors arrive on rs.Errors. A per-record error leaves the stream running;
// a fetch error ends it.
package connector
