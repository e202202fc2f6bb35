// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package client queries the spans received by a mock trace agent.
//
// Waits poll the store snapshot until enough spans arrived or a deadline
// passed, then check that every request the agent received carried a valid
// trace count header:
//
//	c := client.NewClient(srv)
//	spans, err := c.WaitForSpans(ctx, 2, client.WithOperationName("web.request"))
package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server/serverstore"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultTimeout      = 20 * time.Second
)

// SnapshotSource gives access to the current store snapshot. Both
// serverstore.Store and server.Server implement it.
type SnapshotSource interface {
	CurrentSnapshot() *serverstore.Snapshot
}

// Client waits for spans in a store
type Client struct {
	source         SnapshotSource
	clock          clock.Clock
	pollInterval   time.Duration
	defaultTimeout time.Duration

	mu      sync.RWMutex
	filters []SpanFilter
}

// NewClient returns a client reading from source
func NewClient(source SnapshotSource, options ...Option) *Client {
	c := &Client{
		source:         source,
		clock:          clock.New(),
		pollInterval:   defaultPollInterval,
		defaultTimeout: defaultTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// AddSpanFilter adds a filter applied to every subsequent wait
func (c *Client) AddSpanFilter(filter SpanFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, filter)
}

func (c *Client) spanFilters() []SpanFilter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]SpanFilter(nil), c.filters...)
}

// Spans returns every span received so far, in arrival order
func (c *Client) Spans() []*api.Span {
	return c.source.CurrentSnapshot().Spans
}

// RequestRecords returns the records of every request received so far
func (c *Client) RequestRecords() []api.RequestRecord {
	return c.source.CurrentSnapshot().Requests
}

// WaitForSpans waits until at least count relevant spans, with the operation
// name if one is given, are in the store, or until the timeout.
//
// A span is relevant when every client and wait filter accepts it and, if a
// minimum is set, it started strictly after the minimum. The returned spans
// are sorted by start time, ties keeping arrival order.
//
// Reaching the timeout is not an error: the spans found so far are returned.
// If a received request has an invalid trace count header, a
// *ProtocolHeaderError is returned instead of the spans. If ctx is done
// before the condition holds, the spans found so far are returned along with
// ctx.Err().
func (c *Client) WaitForSpans(ctx context.Context, count int, options ...WaitOption) ([]*api.Span, error) {
	o := waitOptions{timeout: c.defaultTimeout}
	for _, opt := range options {
		opt(&o)
	}
	filters := append(c.spanFilters(), o.filters...)
	relevant := func(span *api.Span, _ int) bool {
		if o.hasMinimum && span.Start <= o.minTimestamp {
			return false
		}
		for _, filter := range filters {
			if !filter(span) {
				return false
			}
		}
		return true
	}
	named := func(span *api.Span) bool {
		return o.operationName == "" || span.Name == o.operationName
	}

	deadline := c.clock.Now().Add(o.timeout)
	var snapshot *serverstore.Snapshot
	var spans []*api.Span
	var ctxErr error
poll:
	for {
		snapshot = c.source.CurrentSnapshot()
		spans = lo.Filter(snapshot.Spans, relevant)
		found := lo.CountBy(spans, named)
		if found >= count {
			break
		}
		if !c.clock.Now().Before(deadline) {
			log.Debugf("Timed out waiting for %d spans named %q, found %d", count, o.operationName, found)
			break
		}

		timer := c.clock.Timer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			ctxErr = ctx.Err()
			break poll
		case <-timer.C:
		}
	}

	if err := ValidateRequestHeaders(snapshot.Requests); err != nil {
		return nil, err
	}

	if !o.allOperations {
		spans = lo.Filter(spans, func(span *api.Span, _ int) bool { return named(span) })
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
	return spans, ctxErr
}
