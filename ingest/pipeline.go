// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package ingest turns raw requests accepted by the listener into spans and
// request records appended to the store.
package ingest

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server/serverstore"
)

// Hook names, as reported to the hook error handler
const (
	HookRequestReceived = "request_received"
	HookRequestDecoded  = "request_decoded"
)

// RequestReceivedHook observes a request before it is decoded. It receives a
// copy: changes to it are not recorded.
type RequestReceivedHook func(*api.Request) error

// RequestDecodedHook observes the traces of a successfully decoded request.
// It receives a copy: changes to it are not stored.
type RequestDecodedHook func(api.Traces) error

// Result is the outcome of ingesting one request
type Result struct {
	Record    api.RequestRecord
	SpanCount int
	// Err is the decoding error, if any. It is informational only, the
	// request has been recorded either way.
	Err error
}

// Pipeline decodes requests and appends their spans to a store
type Pipeline struct {
	store         serverstore.Store
	decode        bool
	receivedHooks []RequestReceivedHook
	decodedHooks  []RequestDecodedHook
	onHookError   func(hook string, err error)
}

// Option is a function that configures a Pipeline
type Option func(*Pipeline)

// WithDecoding enables or disables the decoding of request bodies. When
// disabled, requests are still recorded but no span is stored.
func WithDecoding(enabled bool) Option {
	return func(p *Pipeline) {
		p.decode = enabled
	}
}

// WithRequestReceivedHook appends a hook called with every raw request
func WithRequestReceivedHook(hook RequestReceivedHook) Option {
	return func(p *Pipeline) {
		p.receivedHooks = append(p.receivedHooks, hook)
	}
}

// WithRequestDecodedHook appends a hook called with every decoded payload
func WithRequestDecodedHook(hook RequestDecodedHook) Option {
	return func(p *Pipeline) {
		p.decodedHooks = append(p.decodedHooks, hook)
	}
}

// WithHookErrorHandler sets a function called whenever a hook fails or panics
func WithHookErrorHandler(handler func(hook string, err error)) Option {
	return func(p *Pipeline) {
		p.onHookError = handler
	}
}

// New creates a pipeline writing to store
func New(store serverstore.Store, options ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		decode:      true,
		onHookError: func(string, error) {},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Ingest runs req through the hooks and the decoder, then appends its spans
// and its record to the store as a single unit. It never fails: decoding
// errors are logged and reported in the returned Result.
func (p *Pipeline) Ingest(req *api.Request) Result {
	if len(p.receivedHooks) > 0 {
		observed := req.Clone()
		for i, hook := range p.receivedHooks {
			p.runHook(HookRequestReceived, i, func() error { return hook(observed) })
		}
	}

	if !p.decode {
		record := api.NewRequestRecord(req, false, 0, nil)
		p.store.Append(nil, record)
		return Result{Record: record}
	}

	traces, err := api.DecodeRequest(req)
	if err != nil {
		log.Warnf("Request %s from %s: %v", req.ID, req.RemoteAddr, err) //nolint:errcheck
		record := api.NewRequestRecord(req, true, 0, err)
		p.store.Append(nil, record)
		return Result{Record: record, Err: err}
	}

	if len(p.decodedHooks) > 0 {
		observed := traces.Copy()
		for i, hook := range p.decodedHooks {
			p.runHook(HookRequestDecoded, i, func() error { return hook(observed) })
		}
	}

	spans := traces.Flatten()
	record := api.NewRequestRecord(req, true, len(spans), nil)
	p.store.Append(spans, record)
	log.Debugf("Request %s: ingested %d traces, %d spans", req.ID, len(traces), len(spans))
	return Result{Record: record, SpanCount: len(spans)}
}

func (p *Pipeline) runHook(name string, index int, run func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
		}()
		err = run()
	}()
	if err == nil {
		return
	}
	err = errors.Wrap(err, fmt.Sprintf("%s hook #%d", name, index))
	log.Errorf("%v", err) //nolint:errcheck
	p.onHookError(name, err)
}
