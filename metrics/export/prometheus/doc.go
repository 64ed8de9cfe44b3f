// Package prometheus exposes tokenauth engine metrics to Prometheus.
//
// Exporter is a client_golang Collector that reads an engine snapshot on
// every scrape. HTTPMiddleware records request rate, errors and duration per
// chi route pattern.
package prometheus
