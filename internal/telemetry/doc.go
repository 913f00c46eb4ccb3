// Package telemetry wraps OpenTelemetry SDK initialization, giving
// agentscout a single place that configures the TracerProvider and
// MeterProvider. When telemetry is disabled the globals stay noop and no
// external service is contacted.
package telemetry
