// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors the server exports on
// /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Generations counts calls to the model. Outcome is ok, error,
	// unparseable or empty.
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_total",
			Help: "Content generation calls by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// Jobs counts finished queue jobs. Outcome is completed, retry or failed.
	Jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_total",
			Help: "Generation jobs processed by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, Generations, Jobs)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
