// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package client

import (
	"fmt"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// ProtocolHeaderError reports a request that violated the trace intake
// protocol
type ProtocolHeaderError struct {
	RequestID string
	Header    string
	Value     string
	Reason    string
	Err       error
}

func (e *ProtocolHeaderError) Error() string {
	return fmt.Sprintf("request %s has an invalid %s header (%q): %s", e.RequestID, e.Header, e.Value, e.Reason)
}

func (e *ProtocolHeaderError) Unwrap() error {
	return e.Err
}

// ValidateRequestHeaders checks that every record carries a positive trace
// count header. It returns the first violation as a *ProtocolHeaderError.
func ValidateRequestHeaders(records []api.RequestRecord) error {
	for _, record := range records {
		if _, err := api.ParseTraceCount(record.Header); err != nil {
			return &ProtocolHeaderError{
				RequestID: record.ID,
				Header:    api.HeaderTraceCount,
				Value:     record.Header.Get(api.HeaderTraceCount),
				Reason:    err.Error(),
				Err:       err,
			}
		}
	}
	return nil
}
