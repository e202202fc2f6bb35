// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package client

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// SpanFilter selects the spans a wait takes into account
type SpanFilter func(*api.Span) bool

// Option is a function that configures a Client
type Option func(*Client)

// WithPollInterval changes the delay between two looks at the store
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
	}
}

// WithClock changes the clock used to compute deadlines and wait
func WithClock(clock clock.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithSpanFilters adds filters applied to every wait of the client
func WithSpanFilters(filters ...SpanFilter) Option {
	return func(c *Client) {
		c.filters = append(c.filters, filters...)
	}
}

// WithDefaultTimeout changes the timeout of waits that do not set one
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.defaultTimeout = timeout
	}
}

type waitOptions struct {
	operationName string
	minTimestamp  int64
	hasMinimum    bool
	timeout       time.Duration
	allOperations bool
	filters       []SpanFilter
}

// WaitOption is a function that configures a single WaitForSpans call
type WaitOption func(*waitOptions)

// WithOperationName only counts, and returns, spans with the given name
func WithOperationName(name string) WaitOption {
	return func(o *waitOptions) {
		o.operationName = name
	}
}

// WithMinTime ignores spans starting at or before t
func WithMinTime(t time.Time) WaitOption {
	return WithMinTimestamp(t.UnixNano())
}

// WithMinTimestamp ignores spans starting at or before ts, in nanoseconds
// since epoch
func WithMinTimestamp(ts int64) WaitOption {
	return func(o *waitOptions) {
		o.minTimestamp = ts
		o.hasMinimum = true
	}
}

// WithTimeout bounds the time spent waiting
func WithTimeout(timeout time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = timeout
	}
}

// WithAllOperations returns every relevant span, whatever its name. The
// operation name, if any, is still the one counted.
func WithAllOperations() WaitOption {
	return func(o *waitOptions) {
		o.allOperations = true
	}
}

// WithFilters adds filters to this wait only
func WithFilters(filters ...SpanFilter) WaitOption {
	return func(o *waitOptions) {
		o.filters = append(o.filters, filters...)
	}
}
