// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package testutil generates spans and traces for tests and for the send
// command of the mock agent.
package testutil

import (
	"math/rand"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

var (
	services  = []string{"rails", "django", "web-billing", "pg-master", "pylons"}
	names     = []string{"web.request", "sqlalchemy", "postgres.query", "rails.render", "http.request"}
	resources = []string{"GET /url/test/fixture/resource/42", "SELECT * FROM users WHERE id = ?", "/tmp/path/template", "POST /v1/charges"}
	types     = []string{"web", "db", "template", "http"}
	metaKeys  = []string{"http.host", "http.method", "db.instance", "out.host", "component"}
	metaVals  = []string{"192.168.0.1", "GET", "users", "127.0.0.1", "net/http"}
)

func randomChoice(values []string) string {
	return values[rand.Intn(len(values))]
}

// RandomSpanID returns a random non-zero id
func RandomSpanID() uint64 {
	for {
		if id := rand.Uint64(); id != 0 {
			return id
		}
	}
}

// RandomSpan generates a wide-variety of spans, useful to test robustness
// of the decoders and the expectations. Meta and metrics are never empty.
func RandomSpan() *api.Span {
	meta := map[string]string{}
	for i := 0; i < 1+rand.Intn(len(metaKeys)); i++ {
		meta[metaKeys[i]] = randomChoice(metaVals)
	}
	return &api.Span{
		TraceID:  RandomSpanID(),
		SpanID:   RandomSpanID(),
		Name:     randomChoice(names),
		Resource: randomChoice(resources),
		Service:  randomChoice(services),
		Type:     randomChoice(types),
		Start:    1500000000000000000 + rand.Int63n(1e15),
		Duration: 1 + rand.Int63n(1e9),
		Error:    int32(rand.Intn(2)),
		Meta:     meta,
		Metrics:  map[string]float64{"_sampling_priority_v1": float64(rand.Intn(3))},
	}
}

// GetTestSpan returns a fixed root span
func GetTestSpan() *api.Span {
	return &api.Span{
		TraceID:  42,
		SpanID:   52,
		Type:     "web",
		Service:  "fennel_IS amazing!",
		Name:     "something &&<@# that should be a metric!",
		Resource: "NOT touched because it is going to be hashed",
		Start:    1448466874000000000,
		Duration: 10000000,
		Meta:     map[string]string{"http.host": "192.168.0.1", "language": "go"},
		Metrics:  map[string]float64{"http.monitor": 41.99},
	}
}
