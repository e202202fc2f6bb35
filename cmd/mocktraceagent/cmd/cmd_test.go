// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/sender"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/testutil"
)

// execute runs the CLI with args and returns its output
func execute(ctx context.Context, params *globalParams, args ...string) (string, error) {
	cmd := newCommand(params)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "off"))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// startInBackground runs the CLI with args until ctx is done and returns the
// first listener it starts
func startInBackground(t *testing.T, ctx context.Context, args ...string) (*server.Server, <-chan string, <-chan error) {
	t.Helper()
	started := make(chan *server.Server, 1)
	params := &globalParams{onStarted: func(s *server.Server) { started <- s }}
	outCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		out, err := execute(ctx, params, args...)
		outCh <- out
		errCh <- err
	}()

	select {
	case srv := <-started:
		return srv, outCh, errCh
	case err := <-errCh:
		require.FailNow(t, "command exited before listening", "%v", err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "timed out waiting for the listener")
	}
	return nil, nil, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigCommand(t *testing.T) {
	t.Run("should print the defaults", func(t *testing.T) {
		out, err := execute(context.Background(), &globalParams{}, "config")
		require.NoError(t, err)
		assert.Contains(t, out, "receiver_port: 8126")
		assert.Contains(t, out, "language: go")
	})

	t.Run("should print the configuration file values", func(t *testing.T) {
		path := writeFile(t, "agent.yaml", "receiver_port: 9126\nlanguage: dotnet\n")
		out, err := execute(context.Background(), &globalParams{}, "config", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "receiver_port: 9126")
		assert.Contains(t, out, "language: dotnet")
	})

	t.Run("should fail on an invalid configuration", func(t *testing.T) {
		path := writeFile(t, "agent.yaml", "receiver_port: 70000\n")
		_, err := execute(context.Background(), &globalParams{}, "config", "--config", path)
		assert.Error(t, err)
	})
}

func TestRunAndSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, outCh, errCh := startInBackground(t, ctx, "run", "--port", "0")

	out, err := execute(context.Background(), &globalParams{}, "send", "--url", srv.URL(), "--traces", "2", "--spans", "3", "--service", "web")
	require.NoError(t, err)
	assert.Contains(t, out, "Sent 2 traces with 6 spans")

	require.Eventually(t, func() bool { return srv.CurrentSnapshot().SpanCount() == 6 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	require.NoError(t, <-errCh)
	summary := <-outCh
	assert.Contains(t, summary, "Listening on "+srv.URL())
	assert.Contains(t, summary, "Received 1 requests and 6 spans")
	assert.Contains(t, summary, "web")

	for _, span := range srv.CurrentSnapshot().Spans {
		assert.Equal(t, "web", span.Service)
	}
	record := srv.CurrentSnapshot().Requests[0]
	assert.Equal(t, "2", record.Header.Get(api.HeaderTraceCount))
	assert.True(t, record.Decoded)
}

func TestVerifyCommand(t *testing.T) {
	const expectations = `
language: go
wildcard_match: true
expectations:
  - service: web
    type: web
    present_tags: [http.host]
`

	t.Run("should pass when every span meets the expectations", func(t *testing.T) {
		path := writeFile(t, "expectations.yaml", expectations)
		srv, outCh, errCh := startInBackground(t, context.Background(), "verify", "--port", "0", "-f", path, "--count", "3", "--timeout", "10s")

		traces := testutil.GetTestTraces(1, 3, true)
		for _, span := range traces.Flatten() {
			span.Service = "web"
		}
		require.NoError(t, sender.New(srv.URL()).Send(context.Background(), traces))

		require.NoError(t, <-errCh)
		assert.Contains(t, <-outCh, "All 3 checks passed")
	})

	t.Run("should fail when no span matches", func(t *testing.T) {
		path := writeFile(t, "expectations.yaml", "expectations:\n  - service: db\n")
		srv, outCh, errCh := startInBackground(t, context.Background(), "verify", "--port", "0", "-f", path, "--count", "3", "--timeout", "10s")

		require.NoError(t, sender.New(srv.URL()).Send(context.Background(), testutil.GetTestTraces(1, 3, true)))

		err := <-errCh
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1 checks failed")
		assert.Contains(t, <-outCh, "FAIL")
	})

	t.Run("should fail when too few spans arrive", func(t *testing.T) {
		path := writeFile(t, "expectations.yaml", expectations)
		_, _, errCh := startInBackground(t, context.Background(), "verify", "--port", "0", "-f", path, "--count", "3", "--timeout", "100ms")

		err := <-errCh
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1 checks failed")
	})

	t.Run("should fail when the operation names differ", func(t *testing.T) {
		path := writeFile(t, "expectations.yaml", expectations)
		srv, _, errCh := startInBackground(t, context.Background(), "verify", "--port", "0", "-f", path, "--count", "1", "--timeout", "10s", "--names", "web.request")

		traces := testutil.GetTestTraces(1, 1, true)
		traces[0][0].Service = "web"
		require.NoError(t, sender.New(srv.URL()).Send(context.Background(), traces))

		err := <-errCh
		require.Error(t, err)
		assert.Contains(t, err.Error(), `key "web.request"`)
	})

	t.Run("should fail on a missing expectations file before listening", func(t *testing.T) {
		_, err := execute(context.Background(), &globalParams{}, "verify", "--port", "0", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
