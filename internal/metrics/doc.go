// Package metrics provides the observability hooks for rebuild checks.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so callers never need nil checks:
//
//	mon := monitor.New(svc, monitor.WithRecorder(metrics.NoopRecorder{}))
//
// When --metrics-addr is given, the CLI swaps in a PrometheusRecorder bound
// to a private registry and serves it through HTTPHandler.
package metrics
