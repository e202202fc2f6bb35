// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package cmd

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/config"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server"
)

// startAgent starts a mock agent listener configured from cfg on port
func startAgent(params *globalParams, port int, registry prometheus.Registerer) (*server.Server, error) {
	cfg := params.cfg
	srv := server.NewServer(nil, serverOptions(cfg, registry)...)
	if _, err := srv.Start(port, cfg.BindRetries); err != nil {
		return nil, err
	}
	if params.onStarted != nil {
		params.onStarted(srv)
	}
	return srv, nil
}

func serverOptions(cfg *config.Config, registry prometheus.Registerer) []server.Option {
	options := []server.Option{
		server.WithHost(cfg.ReceiverHost),
		server.WithDecoding(cfg.DecodeTraces),
		server.WithReadTimeout(cfg.ReceiverTimeout),
		server.WithMaxRequestBytes(cfg.MaxRequestBytes),
		server.WithRequestReceivedHook(func(req *api.Request) error {
			log.Tracef("Received request %s of %d bytes", req.ID, len(req.Body))
			return nil
		}),
		server.WithRequestDecodedHook(func(traces api.Traces) error {
			log.Debugf("Decoded %d traces with %d spans", len(traces), traces.SpanCount())
			return nil
		}),
	}
	if registry != nil {
		options = append(options, server.WithRegistry(registry))
	}
	return options
}

// portFlag returns the port set on the command line, or the configured one
func portFlag(params *globalParams, port int, changed bool) int {
	if changed {
		return port
	}
	return params.cfg.ReceiverPort
}
