// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package expectation

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// Result is the evaluation of one expectation against one span. Span is nil
// when no received span matched the expectation.
type Result struct {
	Expectation *SpanExpectation
	Span        *api.Span
	Pass        bool
	Message     string
}

// Check evaluates every expectation against the spans it matches. An
// expectation matching no span yields a single failed result.
func Check(expectations []*SpanExpectation, spans []*api.Span) []Result {
	var results []Result
	for _, e := range expectations {
		candidates := lo.Filter(spans, func(s *api.Span, _ int) bool { return e.Matches(s) })
		if len(candidates) == 0 {
			results = append(results, Result{
				Expectation: e,
				Message:     fmt.Sprintf("no span matches expectation %s", e),
			})
			continue
		}
		for _, s := range candidates {
			pass, msg := e.Evaluate(s)
			results = append(results, Result{Expectation: e, Span: s, Pass: pass, Message: msg})
		}
	}
	return results
}

// EvaluateAll evaluates every expectation like Check and returns all the
// failures combined, or nil
func EvaluateAll(expectations []*SpanExpectation, spans []*api.Span) error {
	var err error
	for _, r := range Check(expectations, spans) {
		if r.Pass {
			continue
		}
		if r.Span == nil {
			err = multierr.Append(err, fmt.Errorf("%s", r.Message))
			continue
		}
		err = multierr.Append(err, fmt.Errorf("span %s does not meet expectation %s: %s", r.Span, r.Expectation, r.Message))
	}
	return err
}

// ValidateSpans compares the keys of spans to expected as multisets. It
// reports every expected key missing from the spans and every key found on
// the spans that was not expected.
func ValidateSpans(spans []*api.Span, key func(*api.Span) string, expected []string) error {
	remaining := lo.CountValues(expected)
	var unexpected []string
	for _, s := range spans {
		k := key(s)
		if remaining[k] > 0 {
			remaining[k]--
			continue
		}
		unexpected = append(unexpected, k)
	}

	var err error
	missing := lo.Keys(lo.PickBy(remaining, func(_ string, n int) bool { return n > 0 }))
	sort.Strings(missing)
	for _, k := range missing {
		err = multierr.Append(err, fmt.Errorf("missing %d span(s) with key %q", remaining[k], k))
	}
	for _, k := range unexpected {
		err = multierr.Append(err, fmt.Errorf("unexpected span with key %q", k))
	}
	return err
}
