// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package sender posts trace payloads the way a tracer does. It is used to
// emulate an instrumented process against the mock trace agent.
package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
)

const (
	// DefaultPath is the endpoint current tracers post to
	DefaultPath = "/v0.4/traces"

	defaultMaxElapsedTime = 5 * time.Second
	tracerVersion         = "0.1.0"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sender posts traces to an agent
type Sender struct {
	url            string
	path           string
	client         *http.Client
	json           bool
	gzip           bool
	header         http.Header
	maxElapsedTime time.Duration
}

// Option is a function that configures a Sender
type Option func(*Sender)

// WithHTTPClient changes the http client used to post payloads
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		s.client = client
	}
}

// WithPath changes the endpoint payloads are posted to
func WithPath(path string) Option {
	return func(s *Sender) {
		s.path = path
	}
}

// WithJSON encodes payloads as JSON instead of msgpack
func WithJSON() Option {
	return func(s *Sender) {
		s.json = true
	}
}

// WithGzip compresses payloads
func WithGzip() Option {
	return func(s *Sender) {
		s.gzip = true
	}
}

// WithHeader sets a header on every request
func WithHeader(key, value string) Option {
	return func(s *Sender) {
		s.header.Set(key, value)
	}
}

// WithLanguage sets the Datadog-Meta-Lang headers
func WithLanguage(lang, version string) Option {
	return func(s *Sender) {
		s.header.Set(api.HeaderLang, lang)
		s.header.Set(api.HeaderLangVersion, version)
	}
}

// WithMaxElapsedTime bounds the time spent retrying one payload
func WithMaxElapsedTime(d time.Duration) Option {
	return func(s *Sender) {
		s.maxElapsedTime = d
	}
}

// New returns a sender posting to the agent at url
func New(url string, options ...Option) *Sender {
	s := &Sender{
		url:            url,
		path:           DefaultPath,
		client:         &http.Client{Timeout: 10 * time.Second},
		maxElapsedTime: defaultMaxElapsedTime,
		header: http.Header{
			api.HeaderLang:          {"go"},
			api.HeaderTracerVersion: {tracerVersion},
		},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Send encodes traces and posts them with a matching trace count header.
// Transport errors and 5xx answers are retried with an exponential backoff.
func (s *Sender) Send(ctx context.Context, traces api.Traces) error {
	body, contentType, err := s.encode(traces)
	if err != nil {
		return err
	}
	header := s.header.Clone()
	header.Set("Content-Type", contentType)
	header.Set(api.HeaderTraceCount, strconv.Itoa(len(traces)))
	if s.gzip {
		if body, err = compress(body); err != nil {
			return err
		}
		header.Set("Content-Encoding", "gzip")
	}
	return s.SendRaw(ctx, body, header)
}

// SendRaw posts body with exactly the given headers, which makes it possible
// to craft requests breaching the protocol.
func (s *Sender) SendRaw(ctx context.Context, body []byte, header http.Header) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = s.maxElapsedTime

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+s.path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("agent answered %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("agent answered %s", resp.Status))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debugf("Attempt %d to post %d bytes to %s failed, retrying in %s: %v", attempt, len(body), s.url, wait, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return errors.Wrapf(err, "cannot post traces to %s", s.url+s.path)
	}
	return nil
}

func (s *Sender) encode(traces api.Traces) ([]byte, string, error) {
	if s.json {
		body, err := json.Marshal(traces)
		return body, api.ContentTypeJSON, errors.Wrap(err, "cannot encode traces as json")
	}
	body, err := msgpack.Marshal(traces)
	return body, api.ContentTypeMsgpack, errors.Wrap(err, "cannot encode traces as msgpack")
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return nil, errors.Wrap(err, "cannot compress payload")
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, "cannot compress payload")
	}
	return buf.Bytes(), nil
}
