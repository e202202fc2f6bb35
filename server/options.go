// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package server

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/ingest"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
)

// Option is a function that configures a Server
type Option func(*Server)

// WithHost changes the host the listener binds to. Defaults to localhost.
func WithHost(host string) Option {
	return func(s *Server) {
		if s.isStarted() {
			log.Warn("Mock agent is already running. Stop it and try again to change the host.") //nolint:errcheck
			return
		}
		s.host = host
	}
}

// WithPortAllocator changes the allocator asked for a new port when the
// requested one is not available
func WithPortAllocator(allocator PortAllocator) Option {
	return func(s *Server) {
		s.allocator = allocator
	}
}

// WithDecoding enables or disables the decoding of payloads. Requests are
// acknowledged and recorded either way.
func WithDecoding(enabled bool) Option {
	return func(s *Server) {
		s.ingestOptions = append(s.ingestOptions, ingest.WithDecoding(enabled))
	}
}

// WithClock changes the clock used to timestamp requests
func WithClock(clock clock.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithRegistry registers the server metrics to registry instead of a private
// one
func WithRegistry(registry prometheus.Registerer) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithReadTimeout bounds the time spent reading one request. Zero disables
// the deadline.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = timeout
	}
}

// WithMaxRequestBytes bounds the size of the bodies read by the listener.
// Longer bodies are truncated, which makes them fail to decode.
func WithMaxRequestBytes(size int64) Option {
	return func(s *Server) {
		s.maxRequestBytes = size
	}
}

// WithRequestReceivedHook registers a hook called with every raw request
func WithRequestReceivedHook(hook ingest.RequestReceivedHook) Option {
	return func(s *Server) {
		s.ingestOptions = append(s.ingestOptions, ingest.WithRequestReceivedHook(hook))
	}
}

// WithRequestDecodedHook registers a hook called with every decoded payload
func WithRequestDecodedHook(hook ingest.RequestDecodedHook) Option {
	return func(s *Server) {
		s.ingestOptions = append(s.ingestOptions, ingest.WithRequestDecodedHook(hook))
	}
}
