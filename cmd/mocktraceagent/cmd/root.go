// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package cmd implements the mock trace agent CLI
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/config"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server"
)

// globalParams holds the state shared by every subcommand once the root
// command ran its pre-run step
type globalParams struct {
	configPath string
	logLevel   string
	cfg        *config.Config

	// onStarted is called with every listener the command starts
	onStarted func(*server.Server)
}

// NewCommand returns the root command for the mocktraceagent CLI
func NewCommand() (cmd *cobra.Command) {
	return newCommand(&globalParams{})
}

func newCommand(params *globalParams) (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:          "mocktraceagent",
		Short:        "mock Datadog trace agent",
		Long:         `mocktraceagent receives traces from tracing libraries, keeps every span in memory and checks them against expectations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(params.configPath)
			if err != nil {
				return err
			}
			if params.logLevel != "" {
				cfg.LogLevel = params.logLevel
			}
			params.cfg = cfg
			return log.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
		},
	}

	cmd.AddCommand(
		NewRunCommand(params),
		NewSendCommand(params),
		NewVerifyCommand(params),
		NewConfigCommand(params),
	)

	cmd.PersistentFlags().StringVarP(&params.configPath, "config", "c", "", "path to the configuration file")
	cmd.PersistentFlags().StringVar(&params.logLevel, "log-level", "", "log level, overrides the configuration")

	return cmd
}
