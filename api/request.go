// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package api

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderTraceCount is the header client implementation should fill
	// with the number of traces contained in the payload.
	HeaderTraceCount = "X-Datadog-Trace-Count"

	HeaderLang            = "Datadog-Meta-Lang"
	HeaderLangVersion     = "Datadog-Meta-Lang-Version"
	HeaderLangInterpreter = "Datadog-Meta-Lang-Interpreter"
	HeaderTracerVersion   = "Datadog-Meta-Tracer-Version"

	ContentTypeMsgpack = "application/msgpack"
	ContentTypeJSON    = "application/json"
)

var (
	// ErrTraceCountMissing is returned when a request has no trace count header.
	ErrTraceCountMissing = errors.New("missing trace count header")
	// ErrTraceCountInvalid is returned when the trace count header is not a positive integer.
	ErrTraceCountInvalid = errors.New("trace count header is not a positive integer")
)

// Request is a raw ingestion request, as read by the listener before decoding.
type Request struct {
	ID         string
	ReceivedAt time.Time
	Method     string
	Path       string
	RemoteAddr string
	Header     http.Header
	Body       []byte
}

// Clone returns a copy of the request sharing no header or body memory
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	c.Body = bytes.Clone(r.Body)
	return &c
}

// MediaType returns the media type of the Content-Type header, or an empty
// string when it is absent or cannot be parsed.
func (r *Request) MediaType() string {
	return MediaType(r.Header.Get("Content-Type"))
}

// ContentEncoding returns the normalized Content-Encoding header.
func (r *Request) ContentEncoding() string {
	return strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
}

// RequestRecord keeps the metadata of one acknowledged ingestion request. It is
// appended to the store once per request, whatever the decoding outcome.
type RequestRecord struct {
	ID          string      `json:"id"`
	ReceivedAt  time.Time   `json:"received_at"`
	Method      string      `json:"method"`
	Path        string      `json:"path"`
	RemoteAddr  string      `json:"remote_addr,omitempty"`
	Header      http.Header `json:"header"`
	BodyLength  int         `json:"body_length"`
	Decoded     bool        `json:"decoded"`
	SpanCount   int         `json:"span_count"`
	DecodeError string      `json:"decode_error,omitempty"`
}

// NewRequestRecord builds the record of req. decodeErr is the decoding error,
// if any; decoded reports whether the body was decoded at all.
func NewRequestRecord(req *Request, decoded bool, spanCount int, decodeErr error) RequestRecord {
	record := RequestRecord{
		ID:         req.ID,
		ReceivedAt: req.ReceivedAt,
		Method:     req.Method,
		Path:       req.Path,
		RemoteAddr: req.RemoteAddr,
		Header:     req.Header.Clone(),
		BodyLength: len(req.Body),
		Decoded:    decoded && decodeErr == nil,
		SpanCount:  spanCount,
	}
	if record.Header == nil {
		record.Header = http.Header{}
	}
	if decodeErr != nil {
		record.DecodeError = decodeErr.Error()
	}
	return record
}

// ParseTraceCount returns the value of the trace count header. It fails with
// ErrTraceCountMissing or ErrTraceCountInvalid.
func ParseTraceCount(h http.Header) (int, error) {
	str := strings.TrimSpace(h.Get(HeaderTraceCount))
	if str == "" {
		return 0, ErrTraceCountMissing
	}
	n, err := strconv.Atoi(str)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrTraceCountInvalid, str)
	}
	return n, nil
}

// MediaType attempts to return the media type from a Content-Type MIME header.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}
