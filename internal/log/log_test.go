// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogger() {
	bufferMutex.Lock()
	defer bufferMutex.Unlock()
	logger.Store(nil)
	logsBuffer = []func(){}
	bufferLogsBeforeInit = true
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	var b bytes.Buffer
	require.NoError(t, SetupLogger("info", &b))

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	err := Warnf("warned %s", "here")
	Flush()

	out := b.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "| INFO |")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "| WARN |")
	assert.Contains(t, out, "log_test.go")
	assert.EqualError(t, err, "warned here")
}

func TestBadLevel(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	assert.Error(t, SetupLogger("verbose", nil))
	assert.Error(t, ChangeLogLevel("debug"))
}

func TestBufferBeforeSetup(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	Infof("early %s", "bird")
	_ = Errorf("early %s", "error")

	var b bytes.Buffer
	require.NoError(t, SetupLogger("debug", &b))
	Flush()

	out := b.String()
	assert.Contains(t, out, "early bird")
	assert.Contains(t, out, "early error")
	assert.Less(t, strings.Index(out, "early bird"), strings.Index(out, "early error"))
}

func TestChangeLogLevel(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	var b bytes.Buffer
	require.NoError(t, SetupLogger("error", &b))
	Info("before")

	require.NoError(t, ChangeLogLevel("trace"))
	lvl, err := GetLogLevel()
	require.NoError(t, err)
	assert.Equal(t, "trace", lvl)
	Trace("after", 1)
	_ = Criticalf("boom")
	Flush()

	out := b.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "| TRACE |")
	assert.Contains(t, out, "after 1")
	assert.Contains(t, out, "| CRITICAL |")
}

func TestOffLevel(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	var b bytes.Buffer
	require.NoError(t, SetupLogger("off", &b))
	_ = Criticalf("nothing")
	err := Errorf("still returned")
	Flush()

	assert.Empty(t, b.String())
	assert.EqualError(t, err, "still returned")
}
