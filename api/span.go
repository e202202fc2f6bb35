// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package api defines the data model shared by the mock trace agent: spans as
// they are sent by tracers on the v0.3/v0.4 endpoints, the request records
// kept for protocol validation, and the decoders for msgpack and JSON payloads.
package api

import (
	"fmt"
	"maps"
	"time"
)

// Span is a single unit of work as reported by a tracer.
//
// Spans are treated as immutable once decoded: the store hands the same
// pointers to every reader.
type Span struct {
	TraceID  uint64             `json:"trace_id" msgpack:"trace_id"`
	SpanID   uint64             `json:"span_id" msgpack:"span_id"`
	ParentID uint64             `json:"parent_id,omitempty" msgpack:"parent_id,omitempty"`
	Name     string             `json:"name" msgpack:"name"`
	Resource string             `json:"resource" msgpack:"resource"`
	Service  string             `json:"service" msgpack:"service"`
	Type     string             `json:"type" msgpack:"type"`
	Start    int64              `json:"start" msgpack:"start"`
	Duration int64              `json:"duration" msgpack:"duration"`
	Error    int32              `json:"error" msgpack:"error"`
	Meta     map[string]string  `json:"meta,omitempty" msgpack:"meta,omitempty"`
	Metrics  map[string]float64 `json:"metrics,omitempty" msgpack:"metrics,omitempty"`
}

// Trace is a list of spans sharing the same trace ID. Spans are not required
// to be causally ordered.
type Trace []*Span

// Traces is the payload of a single ingestion request.
type Traces []Trace

// IsRoot returns true if the span has no parent.
func (s *Span) IsRoot() bool {
	return s.ParentID == 0
}

// IsError returns true if the error flag is set on the span.
func (s *Span) IsError() bool {
	return s.Error != 0
}

// Tag returns the value of the meta entry key, if any.
func (s *Span) Tag(key string) (string, bool) {
	if s.Meta == nil {
		return "", false
	}
	v, ok := s.Meta[key]
	return v, ok
}

// Metric returns the value of the metrics entry key, if any.
func (s *Span) Metric(key string) (float64, bool) {
	if s.Metrics == nil {
		return 0, false
	}
	v, ok := s.Metrics[key]
	return v, ok
}

// StartTime returns the start of the span as a time.Time.
func (s *Span) StartTime() time.Time {
	return time.Unix(0, s.Start)
}

// End returns the end timestamp of the span, in nanoseconds since epoch.
func (s *Span) End() int64 {
	return s.Start + s.Duration
}

func (s *Span) String() string {
	return fmt.Sprintf("TraceID=%d, SpanID=%d, Service=%s, Name=%s, Resource=%s", s.TraceID, s.SpanID, s.Service, s.Name, s.Resource)
}

// Copy returns a deep copy of the span
func (s *Span) Copy() *Span {
	if s == nil {
		return nil
	}
	c := *s
	c.Meta = maps.Clone(s.Meta)
	c.Metrics = maps.Clone(s.Metrics)
	return &c
}

// Copy returns a deep copy of the payload
func (t Traces) Copy() Traces {
	if t == nil {
		return nil
	}
	traces := make(Traces, len(t))
	for i, trace := range t {
		if trace == nil {
			continue
		}
		traces[i] = make(Trace, len(trace))
		for j, span := range trace {
			traces[i][j] = span.Copy()
		}
	}
	return traces
}

// Flatten returns all the spans of the payload, in the order they were sent.
func (t Traces) Flatten() []*Span {
	n := 0
	for _, trace := range t {
		n += len(trace)
	}
	spans := make([]*Span, 0, n)
	for _, trace := range t {
		for _, span := range trace {
			if span == nil {
				continue
			}
			spans = append(spans, span)
		}
	}
	return spans
}

// SpanCount returns the total number of spans in the payload.
func (t Traces) SpanCount() int {
	n := 0
	for _, trace := range t {
		n += len(trace)
	}
	return n
}
