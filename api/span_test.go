// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracesCopy(t *testing.T) {
	original := Traces{
		{
			{TraceID: 1, SpanID: 1, Name: "web.request", Meta: map[string]string{"k": "v"}, Metrics: map[string]float64{"m": 1}},
			nil,
		},
		nil,
	}
	c := original.Copy()
	assert.Equal(t, original, c)

	c[0][0].Name = "renamed"
	c[0][0].Meta["k"] = "changed"
	c[0][0].Metrics["m"] = 2
	c[1] = Trace{{SpanID: 9}}

	assert.Equal(t, "web.request", original[0][0].Name)
	assert.Equal(t, "v", original[0][0].Meta["k"])
	assert.Equal(t, float64(1), original[0][0].Metrics["m"])
	assert.Nil(t, original[1])
	assert.Nil(t, Traces(nil).Copy())
}

func TestRequestClone(t *testing.T) {
	req := &Request{ID: "r", Header: http.Header{HeaderTraceCount: {"1"}}, Body: []byte("abc")}
	c := req.Clone()
	assert.Equal(t, req, c)

	c.Header.Set(HeaderTraceCount, "2")
	c.Body[0] = 'z'
	assert.Equal(t, "1", req.Header.Get(HeaderTraceCount))
	assert.Equal(t, "abc", string(req.Body))
}
