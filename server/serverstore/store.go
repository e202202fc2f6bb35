// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package serverstore implements the storage of the spans and request records
// ingested by the mock trace agent.
package serverstore

import (
	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// Store is the interface of a span store
type Store interface {
	// Append adds the spans of one request and its record as a single unit.
	Append(spans []*api.Span, record api.RequestRecord)
	// CurrentSnapshot returns the latest published snapshot. It never blocks
	// on writers.
	CurrentSnapshot() *Snapshot
}

// Snapshot is an immutable, point-in-time view of everything ingested so far.
// Callers must not modify the slices nor the spans they point to.
type Snapshot struct {
	Spans    []*api.Span
	Requests []api.RequestRecord
}

var emptySnapshot = &Snapshot{
	Spans:    []*api.Span{},
	Requests: []api.RequestRecord{},
}

// SpanCount returns the number of spans in the snapshot
func (s *Snapshot) SpanCount() int {
	return len(s.Spans)
}

// RequestCount returns the number of request records in the snapshot
func (s *Snapshot) RequestCount() int {
	return len(s.Requests)
}

// with returns a new snapshot made of s plus the given spans and record.
// Fresh backing arrays are allocated so that slices held by readers of s are
// never written to.
func (s *Snapshot) with(spans []*api.Span, record api.RequestRecord) *Snapshot {
	next := &Snapshot{
		Spans:    make([]*api.Span, 0, len(s.Spans)+len(spans)),
		Requests: make([]api.RequestRecord, 0, len(s.Requests)+1),
	}
	next.Spans = append(next.Spans, s.Spans...)
	next.Spans = append(next.Spans, spans...)
	next.Requests = append(next.Requests, s.Requests...)
	next.Requests = append(next.Requests, record)
	return next
}
