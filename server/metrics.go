// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package server

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mocktraceagent"

// Request outcomes
const (
	outcomeDecoded     = "decoded"
	outcomeDecodeError = "decode_error"
	outcomeSkipped     = "skipped"
)

type metrics struct {
	requests     *prometheus.CounterVec
	spans        prometheus.Counter
	hookErrors   *prometheus.CounterVec
	requestBytes prometheus.Histogram
}

func newMetrics(registry prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Number of acknowledged trace requests, by outcome.",
		}, []string{"outcome"}),
		spans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spans_ingested_total",
			Help:      "Number of spans appended to the store.",
		}),
		hookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hook_errors_total",
			Help:      "Number of observer hooks that failed or panicked, by hook.",
		}, []string{"hook"}),
		requestBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_bytes",
			Help:      "Size of the trace request bodies.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
	}
	m.requests = register(registry, m.requests)
	m.spans = register(registry, m.spans)
	m.hookErrors = register(registry, m.hookErrors)
	m.requestBytes = register(registry, m.requestBytes)
	return m
}

// register registers c, or returns the collector already registered under the
// same descriptor so that several servers can share a registry.
func register[T prometheus.Collector](registry prometheus.Registerer, c T) T {
	err := registry.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}
