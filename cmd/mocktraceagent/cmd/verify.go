// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/client"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/expectation"
)

type verifyParams struct {
	expectations  string
	count         int
	operation     string
	timeout       time.Duration
	allOperations bool
	names         []string
}

// NewVerifyCommand returns the verify command
func NewVerifyCommand(params *globalParams) (cmd *cobra.Command) {
	vp := verifyParams{}
	var port int

	cmd = &cobra.Command{
		Use:   "verify",
		Short: "wait for spans and check them against expectations",
		Long: `verify starts a mock agent, waits for the given number of spans and
evaluates them against the expectations of a YAML file. It fails if a span
does not meet an expectation or if fewer spans than expected arrived.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("timeout") {
				vp.timeout = params.cfg.WaitTimeout
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return verify(ctx, params, vp, portFlag(params, port, cmd.Flags().Changed("port")), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on, overrides the configuration")
	cmd.Flags().StringVarP(&vp.expectations, "expectations", "f", "", "YAML file of span expectations")
	cmd.Flags().IntVarP(&vp.count, "count", "n", 1, "number of spans to wait for")
	cmd.Flags().StringVar(&vp.operation, "operation", "", "only count and check spans with this operation name")
	cmd.Flags().DurationVar(&vp.timeout, "timeout", 0, "maximum time to wait for spans, defaults to the configured wait timeout")
	cmd.Flags().BoolVar(&vp.allOperations, "all-operations", false, "check every received span, not only the ones named by --operation")
	cmd.Flags().StringSliceVar(&vp.names, "names", nil, "exact multiset of operation names the received spans must have")
	if err := cmd.MarkFlagRequired("expectations"); err != nil {
		panic(err)
	}

	return cmd
}

func verify(ctx context.Context, params *globalParams, vp verifyParams, port int, out io.Writer) error {
	expectations, err := expectation.LoadFile(vp.expectations, expectation.WithRuntimeMetadata(expectation.StaticRuntime(params.cfg.Language)))
	if err != nil {
		return err
	}

	srv, err := startAgent(params, port, nil)
	if err != nil {
		return err
	}
	defer srv.Stop() //nolint:errcheck
	fmt.Fprintf(out, "Listening on %s, waiting for %d spans\n", srv.URL(), vp.count)

	cl := client.NewClient(srv, client.WithPollInterval(params.cfg.PollInterval))
	options := []client.WaitOption{client.WithTimeout(vp.timeout)}
	if vp.operation != "" {
		options = append(options, client.WithOperationName(vp.operation))
	}
	if vp.allOperations {
		options = append(options, client.WithAllOperations())
	}
	spans, err := cl.WaitForSpans(ctx, vp.count, options...)
	if err != nil {
		return err
	}

	results := expectation.Check(expectations, spans)
	printResults(out, results)

	failed := lo.CountBy(results, func(r expectation.Result) bool { return !r.Pass })
	if failed > 0 {
		return errors.Errorf("%d of %d checks failed", failed, len(results))
	}
	if len(vp.names) > 0 {
		if err := expectation.ValidateSpans(spans, func(s *api.Span) string { return s.Name }, vp.names); err != nil {
			return err
		}
	}
	found := lo.CountBy(spans, func(s *api.Span) bool { return vp.operation == "" || s.Name == vp.operation })
	if found < vp.count {
		return errors.Errorf("received %d spans, expected %d", found, vp.count)
	}
	fmt.Fprintln(out, color.GreenString("All %d checks passed", len(results)))
	return nil
}

func printResults(out io.Writer, results []expectation.Result) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Expectation", "Span", "Result", "Details"})
	table.SetAutoWrapText(false)
	for _, r := range results {
		span := "-"
		if r.Span != nil {
			span = r.Span.String()
		}
		result := color.GreenString("PASS")
		if !r.Pass {
			result = color.RedString("FAIL")
		}
		table.Append([]string{r.Expectation.String(), span, result, r.Message})
	}
	table.Render()
}
