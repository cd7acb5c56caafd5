// Package metrics provides observability hooks for build decisions.
//
// Components hold a Recorder and default to NoopRecorder, so no nil checks are
// needed at call sites. cmd/phest swaps in a PrometheusRecorder when a metrics
// textfile is configured and writes the registry out once the command finishes:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	detector := incremental.NewDetector(store, incremental.WithRecorder(rec))
//	...
//	_ = metrics.WriteTextfile(path, reg)
package metrics
