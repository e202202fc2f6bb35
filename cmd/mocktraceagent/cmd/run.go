// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server/serverstore"
)

// NewRunCommand returns the run command
func NewRunCommand(params *globalParams) (cmd *cobra.Command) {
	var port int

	cmd = &cobra.Command{
		Use:   "run",
		Short: "run the mock agent until interrupted",
		Long:  `run listens for traces until SIGINT or SIGTERM is received, then prints a summary of the received spans.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, params, portFlag(params, port, cmd.Flags().Changed("port")), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on, overrides the configuration")

	return cmd
}

func run(ctx context.Context, params *globalParams, port int, out io.Writer) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	srv, err := startAgent(params, port, registry)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Listening on %s\n", srv.URL())

	g, gctx := errgroup.WithContext(ctx)
	if addr := params.cfg.MetricsAddr; addr != "" {
		metricsServer := &http.Server{
			Addr:              addr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Infof("Serving metrics on %s", addr)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Stopping the mock agent")
		return srv.Stop()
	})

	err = g.Wait()
	<-srv.Done()
	printSummary(out, srv.CurrentSnapshot())
	return err
}

type operationKey struct {
	service   string
	operation string
}

// printSummary writes the number of spans and errors per service and
// operation
func printSummary(out io.Writer, snapshot *serverstore.Snapshot) {
	fmt.Fprintf(out, "Received %d requests and %d spans\n", snapshot.RequestCount(), snapshot.SpanCount())
	if snapshot.SpanCount() == 0 {
		return
	}

	groups := lo.GroupBy(snapshot.Spans, func(s *api.Span) operationKey {
		return operationKey{service: s.Service, operation: s.Name}
	})
	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].service != keys[j].service {
			return keys[i].service < keys[j].service
		}
		return keys[i].operation < keys[j].operation
	})

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Service", "Operation", "Spans", "Errors"})
	for _, key := range keys {
		spans := groups[key]
		table.Append([]string{
			key.service,
			key.operation,
			strconv.Itoa(len(spans)),
			strconv.Itoa(lo.CountBy(spans, (*api.Span).IsError)),
		})
	}
	table.Render()
}
