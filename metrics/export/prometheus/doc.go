// Package prometheus exposes core metrics to a Prometheus registry.
//
// Register the collector once:
//
//	collector, _ := prometheus.NewCollector(core)
//	registry.MustRegister(collector)
//
// # Architecture boundaries
//
// The collector is read-only over metric snapshots. It must not mutate
// core state or hold references into internal counter storage.
package prometheus
