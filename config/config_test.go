// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

func TestLoad(t *testing.T) {
	t.Run("should use defaults without a config file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, &Config{
			ReceiverHost:    "localhost",
			ReceiverPort:    8126,
			BindRetries:     5,
			DecodeTraces:    true,
			ReceiverTimeout: 5 * time.Second,
			MaxRequestBytes: 10 * 1024 * 1024,
			PollInterval:    500 * time.Millisecond,
			WaitTimeout:     20 * time.Second,
			Language:        "go",
			LogLevel:        "info",
		}, cfg)
	})

	t.Run("should read the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("receiver_port: 9126\ndecode_traces: false\npoll_interval: 50ms\nlanguage: dotnet\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9126, cfg.ReceiverPort)
		assert.False(t, cfg.DecodeTraces)
		assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
		assert.Equal(t, "dotnet", cfg.Language)
		assert.Equal(t, 5, cfg.BindRetries)
	})

	t.Run("should let the environment override the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("receiver_port: 9126\n"), 0o600))
		t.Setenv("DD_MOCK_RECEIVER_PORT", "7777")
		t.Setenv("DD_MOCK_LOG_LEVEL", "debug")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7777, cfg.ReceiverPort)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("should fail on a missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("should fail on invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("receiver_port: 70000\nbind_retries: -1\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 2)
	})
}

func TestYAML(t *testing.T) {
	cfg := &Config{ReceiverHost: "localhost", ReceiverPort: 8126, Language: "go"}
	out, err := cfg.YAML()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, *cfg, back)
	assert.Contains(t, out, "receiver_port: 8126")
}
