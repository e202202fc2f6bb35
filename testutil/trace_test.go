// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/expectation"
)

func TestGetTestTraces(t *testing.T) {
	traces := GetTestTraces(3, 4, true)
	require.Len(t, traces, 3)
	assert.Equal(t, traces, GetTestTraces(3, 4, true))

	for _, trace := range traces {
		require.Len(t, trace, 4)
		root := trace[0]
		assert.True(t, root.IsRoot())
		seen := map[uint64]bool{}
		for _, span := range trace {
			assert.Equal(t, root.TraceID, span.TraceID)
			assert.False(t, seen[span.SpanID])
			seen[span.SpanID] = true
			if span != root {
				assert.Equal(t, root.SpanID, span.ParentID)
			}
		}
	}
}

func TestRandomTrace(t *testing.T) {
	for i := 0; i < 50; i++ {
		trace := RandomTrace(4, 5)
		require.NotEmpty(t, trace)
		root := trace[0]
		assert.True(t, root.IsRoot())
		for _, span := range trace[1:] {
			assert.Equal(t, root.TraceID, span.TraceID)
			assert.False(t, span.IsRoot())
			assert.GreaterOrEqual(t, span.Start, root.Start)
			assert.LessOrEqual(t, span.End(), root.End())
		}
	}
}

func TestGeneratedSpansMeetBasicExpectations(t *testing.T) {
	e := expectation.NewSpanExpectation("", "", "", "")
	for _, span := range RandomTrace(3, 5) {
		pass, msg := e.Evaluate(span)
		assert.True(t, pass, msg)
	}
}
