// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package expectation describes the expected shape of spans as ordered lists
// of assertions, and evaluates received spans against them.
//
// Evaluation never stops at the first failure: every assertion of an
// expectation runs and every mismatch is reported.
package expectation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// LanguageTag is the tag tracers set on root spans with their language
const LanguageTag = "language"

const nullValue = "NULL"

// Assertion checks one rule against a span. It returns an empty string when
// the span complies, a description of the mismatch otherwise.
type Assertion func(*api.Span) string

// Predicate tells whether a conditional assertion applies to a span
type Predicate func(*api.Span) bool

// FieldExtractor extracts a scalar field of a span
type FieldExtractor func(*api.Span) string

// Always is the predicate holding for every span
func Always(*api.Span) bool { return true }

// IsRoot holds for spans without a parent
func IsRoot(s *api.Span) bool { return s.IsRoot() }

// SpanExpectation is the expected shape of one span
type SpanExpectation struct {
	ServiceName   string
	OperationName string
	ResourceName  string
	Type          string

	runtime       RuntimeMetadata
	wildcardMatch bool
	assertions    []Assertion
}

// Option is a function that configures a SpanExpectation
type Option func(*SpanExpectation)

// WithRuntimeMetadata changes the provider of the language expected on root
// spans. A nil provider disables the language check.
func WithRuntimeMetadata(runtime RuntimeMetadata) Option {
	return func(e *SpanExpectation) {
		e.runtime = runtime
	}
}

// WithWildcardMatch makes the empty service, operation name and type of the
// expectation match any value in Matches
func WithWildcardMatch() Option {
	return func(e *SpanExpectation) {
		e.wildcardMatch = true
	}
}

// NewSpanExpectation returns an expectation on the service, operation name,
// resource and type of a span. An empty value puts no constraint on the
// corresponding field.
//
// The expectation also requires the basic span data to be set and, on root
// spans, the language tag to match the runtime metadata.
func NewSpanExpectation(service, operation, resource, spanType string, options ...Option) *SpanExpectation {
	e := &SpanExpectation{
		ServiceName:   service,
		OperationName: operation,
		ResourceName:  resource,
		Type:          spanType,
		runtime:       StaticRuntime(DefaultLanguage),
	}
	for _, opt := range options {
		opt(e)
	}

	e.RegisterInvariantExpectation(basicSpanDataExists)

	e.RegisterFieldExpectation("OperationName", func(s *api.Span) string { return s.Name }, literal(operation))
	e.RegisterFieldExpectation("ServiceName", func(s *api.Span) string { return s.Service }, literal(service))
	e.RegisterFieldExpectation("ResourceName", func(s *api.Span) string { return strings.TrimRightFunc(s.Resource, unicode.IsSpace) }, literal(resource))
	e.RegisterFieldExpectation("Type", func(s *api.Span) string { return s.Type }, literal(spanType))

	if e.runtime != nil {
		language := e.runtime.Language()
		e.RegisterTagExpectation(LanguageTag, &language, IsRoot)
	}
	return e
}

// literal maps the empty string to no constraint
func literal(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (e *SpanExpectation) String() string {
	return fmt.Sprintf("service=%s, operation=%s, type=%s, resource=%s", e.ServiceName, e.OperationName, e.Type, e.ResourceName)
}

// Assertions returns the number of registered assertions
func (e *SpanExpectation) Assertions() int {
	return len(e.assertions)
}

// RegisterAssertion appends a raw assertion
func (e *SpanExpectation) RegisterAssertion(assertion Assertion) {
	if assertion == nil {
		return
	}
	e.assertions = append(e.assertions, assertion)
}

// RegisterFieldExpectation compares the field returned by extract to expected.
// A nil expected value puts no constraint.
func (e *SpanExpectation) RegisterFieldExpectation(name string, extract FieldExtractor, expected *string) {
	e.RegisterAssertion(func(s *api.Span) string {
		if expected == nil {
			return ""
		}
		actual := extract(s)
		if actual != *expected {
			return failureMessage(name, &actual, expected)
		}
		return ""
	})
}

// RegisterTagExpectation compares the value of the tag key to expected on the
// spans for which when holds. A nil when means Always, a nil expected value
// puts no constraint.
func (e *SpanExpectation) RegisterTagExpectation(key string, expected *string, when Predicate) {
	if when == nil {
		when = Always
	}
	e.RegisterAssertion(func(s *api.Span) string {
		if !when(s) || expected == nil {
			return ""
		}
		actual, ok := s.Tag(key)
		if !ok {
			return failureMessage(key, nil, expected)
		}
		if actual != *expected {
			return failureMessage(key, &actual, expected)
		}
		return ""
	})
}

// RegisterInvariantExpectation registers a free-form check returning zero or
// more violations
func (e *SpanExpectation) RegisterInvariantExpectation(check func(*api.Span) []string) {
	if check == nil {
		return
	}
	e.RegisterAssertion(func(s *api.Span) string {
		return strings.Join(check(s), ",")
	})
}

// TagShouldExist requires the tag key on the spans for which when holds
func (e *SpanExpectation) TagShouldExist(key string, when Predicate) {
	if when == nil {
		when = Always
	}
	e.RegisterAssertion(func(s *api.Span) string {
		if _, ok := s.Tag(key); when(s) && !ok {
			return fmt.Sprintf("Tag %s is missing from span.", key)
		}
		return ""
	})
}

// TagShouldNotExist forbids the tag key on the spans for which when holds
func (e *SpanExpectation) TagShouldNotExist(key string, when Predicate) {
	if when == nil {
		when = Always
	}
	e.RegisterAssertion(func(s *api.Span) string {
		if v, ok := s.Tag(key); when(s) && ok {
			return fmt.Sprintf("Tag %s was found on span, but it was not expected (Value: %s)", key, v)
		}
		return ""
	})
}

// Matches tells whether span is a candidate for the expectation: its service,
// operation name and type must equal the expected ones. With
// WithWildcardMatch, fields left empty match anything.
func (e *SpanExpectation) Matches(span *api.Span) bool {
	return e.fieldMatches(e.ServiceName, span.Service) &&
		e.fieldMatches(e.OperationName, span.Name) &&
		e.fieldMatches(e.Type, span.Type)
}

func (e *SpanExpectation) fieldMatches(expected, actual string) bool {
	if e.wildcardMatch && expected == "" {
		return true
	}
	return actual == expected
}

// Evaluate runs every assertion against span. It passes when no assertion
// reported a mismatch; otherwise message joins all the mismatches.
func (e *SpanExpectation) Evaluate(span *api.Span) (bool, string) {
	var messages []string
	for _, assertion := range e.assertions {
		if msg := assertion(span); strings.TrimSpace(msg) != "" {
			messages = append(messages, msg)
		}
	}
	if len(messages) > 0 {
		return false, strings.Join(messages, ",")
	}
	return true, ""
}

func failureMessage(name string, actual, expected *string) string {
	a, e := nullValue, nullValue
	if actual != nil {
		a = *actual
	}
	if expected != nil {
		e = *expected
	}
	return fmt.Sprintf("(%s mismatch: actual: %s, expected: %s)", name, a, e)
}

func basicSpanDataExists(s *api.Span) []string {
	var failures []string
	if strings.TrimSpace(s.Resource) == "" {
		failures = append(failures, "Resource must be set.")
	}
	if strings.TrimSpace(s.Name) == "" {
		failures = append(failures, "Name must be set.")
	}
	if strings.TrimSpace(s.Service) == "" {
		failures = append(failures, "Service must be set.")
	}
	if s.TraceID == 0 {
		failures = append(failures, "TraceId must be set.")
	}
	if s.SpanID == 0 {
		failures = append(failures, "SpanId must be set.")
	}
	return failures
}
