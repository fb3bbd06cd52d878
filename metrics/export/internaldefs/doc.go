// Package internaldefs holds the shared metric naming tables consumed
// by the prometheus and otel exporters. It exists so both exporters
// publish identical metric names.
//
// # Architecture boundaries
//
// This package only maps internal metric ids to exported names. It
// must not read metric values or depend on any exporter library.
package internaldefs
