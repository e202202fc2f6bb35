// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package cmd

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/expectation"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/sender"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/testutil"
)

type sendParams struct {
	url     string
	path    string
	traces  int
	spans   int
	random  bool
	service string
	json    bool
	gzip    bool
}

// NewSendCommand returns the send command
func NewSendCommand(params *globalParams) (cmd *cobra.Command) {
	sp := sendParams{}

	cmd = &cobra.Command{
		Use:   "send",
		Short: "send generated traces to a trace agent",
		Long:  `send posts generated traces to a trace agent, the local mock agent by default.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := sp.url
			if url == "" {
				url = "http://" + net.JoinHostPort(params.cfg.ReceiverHost, strconv.Itoa(params.cfg.ReceiverPort))
			}

			var options []sender.Option
			options = append(options, sender.WithPath(sp.path), sender.WithHeader(api.HeaderLang, params.cfg.Language))
			if sp.json {
				options = append(options, sender.WithJSON())
			}
			if sp.gzip {
				options = append(options, sender.WithGzip())
			}

			traces := generateTraces(sp, params.cfg.Language)
			if err := sender.New(url, options...).Send(cmd.Context(), traces); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d traces with %d spans to %s\n", len(traces), traces.SpanCount(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&sp.url, "url", "", "base url of the trace agent, defaults to the configured receiver")
	cmd.Flags().StringVar(&sp.path, "path", sender.DefaultPath, "endpoint to post traces to")
	cmd.Flags().IntVar(&sp.traces, "traces", 1, "number of traces to send")
	cmd.Flags().IntVar(&sp.spans, "spans", 3, "number of spans per trace, or maximum spans per level with --random")
	cmd.Flags().BoolVar(&sp.random, "random", false, "send random trace trees instead of fixed ones")
	cmd.Flags().StringVar(&sp.service, "service", "", "service name set on every span")
	cmd.Flags().BoolVar(&sp.json, "json", false, "encode traces as json instead of msgpack")
	cmd.Flags().BoolVar(&sp.gzip, "gzip", false, "compress the payload")

	return cmd
}

// generateTraces returns the traces to send, their root spans tagged with
// language
func generateTraces(sp sendParams, language string) api.Traces {
	var traces api.Traces
	if sp.random {
		for i := 0; i < sp.traces; i++ {
			traces = append(traces, testutil.RandomTrace(3, sp.spans))
		}
	} else {
		traces = testutil.GetTestTraces(sp.traces, sp.spans, true)
	}
	for _, span := range traces.Flatten() {
		if sp.service != "" {
			span.Service = sp.service
		}
		if span.IsRoot() {
			span.Meta[expectation.LanguageTag] = language
		}
	}
	return traces
}
