/*
Package metrics provides Prometheus-based metrics collection for the
discovery pipeline, registry transport, and caches.

# Overview

The package registers and records Prometheus metrics through a single
Collector, using promauto so no manual Registry management is required. All
metrics live under one namespace and carry labels suitable for dashboards
and alerting.

# Core Types

  - Collector: holds the Counter, Histogram, and Gauge vectors, grouped by
    concern.

# Capabilities

  - Discovery metrics: call totals and durations by outcome, plus
    per-call candidate and recommendation counts.
  - Registry metrics: request totals and durations by endpoint, with
    response status classed as 2xx/3xx/4xx/5xx or error.
  - Cache metrics: hit and miss counts by cache type, shared by the Redis
    cache and the performance snapshot stores.

This package is internal and should not be imported by external projects.
*/
package metrics
