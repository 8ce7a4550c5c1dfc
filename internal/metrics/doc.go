// Package metrics provides the observability hooks of a simulation run.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default; PrometheusRecorder is installed when the run is started with a
// metrics listen address, and Server exposes its registry on /metrics.
package metrics
