// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package testutil

import (
	"math/rand"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// genNextLevel generates a new level for the trace tree structure,
// having maxSpans as the max number of spans for this level
func genNextLevel(prevLevel []*api.Span, maxSpans int) []*api.Span {
	var spans []*api.Span
	numSpans := rand.Intn(maxSpans) + 1

	// the spans have to be "nested" in the previous level
	chosenSpans := rand.Perm(len(prevLevel))
	maxParentSpans := rand.Intn(len(prevLevel))
	if maxParentSpans == 0 {
		maxParentSpans = 1
	}
	chosenSpans = chosenSpans[:maxParentSpans]

	for i, prevIdx := range chosenSpans {
		prev := prevLevel[prevIdx]

		var childSpans int
		value := numSpans - (len(chosenSpans) - i)
		if i == len(chosenSpans)-1 || value < 1 {
			childSpans = numSpans
		} else {
			childSpans = rand.Intn(value)
		}
		numSpans -= childSpans

		timeLeft := prev.Duration
		for j := 0; j < childSpans && timeLeft > 1; j++ {
			child := RandomSpan()
			child.TraceID = prev.TraceID
			child.ParentID = prev.SpanID
			delete(child.Meta, "language")

			// children fit in the duration of their parent
			randStart := rand.Int63n(timeLeft)
			child.Start = prev.Start + randStart
			timeLeft -= randStart
			if timeLeft < 1 {
				break
			}
			child.Duration = rand.Int63n(timeLeft) + 1
			timeLeft -= child.Duration

			spans = append(spans, child)
		}
	}

	return spans
}

// RandomTrace generates a random trace with a depth from 1 to maxLevels of
// spans. Each level has at most maxSpans items. The first span is the root.
func RandomTrace(maxLevels, maxSpans int) api.Trace {
	root := RandomSpan()
	root.Meta["language"] = "go"
	t := api.Trace{root}

	prevLevel := []*api.Span{root}
	maxDepth := 1 + rand.Intn(maxLevels)

	for i := 0; i < maxDepth; i++ {
		if len(prevLevel) > 0 {
			prevLevel = genNextLevel(prevLevel, maxSpans)
			t = append(t, prevLevel...)
		}
	}

	return t
}

// GetTestTraces returns traceN traces of size spans each. The output is the
// same for every call.
// With realisticIDs, spans of a trace share a trace ID and have distinct span
// IDs, the first one being the parent of the others.
func GetTestTraces(traceN, size int, realisticIDs bool) api.Traces {
	traces := api.Traces{}

	r := rand.New(rand.NewSource(42))

	for i := 0; i < traceN; i++ {
		// predictable, but spread on a wide spectrum
		traceID := r.Uint64()

		trace := api.Trace{}
		for j := 0; j < size; j++ {
			span := GetTestSpan()
			span.Start += int64(i*size+j) * 1000
			if realisticIDs {
				span.TraceID = traceID
				span.SpanID += uint64(j)
				if j > 0 {
					span.ParentID = trace[0].SpanID
					delete(span.Meta, "language")
				}
			}
			trace = append(trace, span)
		}
		traces = append(traces, trace)
	}
	return traces
}
