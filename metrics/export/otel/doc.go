// Package otel bridges core metrics into an OpenTelemetry meter via
// observable instruments. Values are pulled from snapshots during
// collection; nothing is pushed.
//
// # Architecture boundaries
//
// The exporter is read-only over metric snapshots and must not import
// any OTel SDK package, only the metric API.
package otel
