// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package main is the entrypoint of the mock trace agent
package main

import (
	"os"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/cmd/mocktraceagent/cmd"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
)

func main() {
	defer log.Flush()
	if err := cmd.NewCommand().Execute(); err != nil {
		log.Flush()
		os.Exit(1)
	}
}
