// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package server

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server/serverstore"
)

func tracesPayload(t *testing.T) []byte {
	t.Helper()
	b, err := msgpack.Marshal(api.Traces{
		{
			{TraceID: 1, SpanID: 1, Name: "web.request", Resource: "GET /", Service: "web", Start: 10},
			{TraceID: 1, SpanID: 2, ParentID: 1, Name: "db.query", Resource: "SELECT", Service: "db", Start: 11},
		},
	})
	require.NoError(t, err)
	return b
}

func post(t *testing.T, url string, body []byte, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/v0.4/traces", bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func startServer(t *testing.T, options ...Option) *Server {
	t.Helper()
	s := NewServer(nil, options...)
	_, err := s.Start(0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func assertAck(t *testing.T, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
}

// occupiedPort returns a port bound by the test for its whole duration
func occupiedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

type fakeAllocator struct {
	mu    sync.Mutex
	ports []int
	calls int
}

func (a *fakeAllocator) GetOpenPort() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.ports) == 0 {
		return 0, errors.New("no more ports")
	}
	port := a.ports[0]
	a.ports = a.ports[1:]
	return port, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServer(t *testing.T) {
	t.Run("should acknowledge and store trace payloads", func(t *testing.T) {
		mockClock := clock.NewMock()
		mockClock.Set(time.Unix(1700000000, 0))
		s := startServer(t, WithClock(mockClock))
		require.NotZero(t, s.Port())
		assert.Equal(t, "http://localhost:"+strconv.Itoa(s.Port()), s.URL())
		assert.NotNil(t, s.Addr())

		resp := post(t, s.URL(), tracesPayload(t), http.Header{
			"Content-Type":       {api.ContentTypeMsgpack},
			api.HeaderTraceCount: {"1"},
			api.HeaderLang:       {"go"},
		})
		assertAck(t, resp)

		snapshot := s.CurrentSnapshot()
		require.Equal(t, 2, snapshot.SpanCount())
		require.Equal(t, 1, snapshot.RequestCount())
		record := snapshot.Requests[0]
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, http.MethodPost, record.Method)
		assert.Equal(t, "/v0.4/traces", record.Path)
		assert.Equal(t, "go", record.Header.Get(api.HeaderLang))
		assert.Equal(t, mockClock.Now(), record.ReceivedAt)

		assert.Equal(t, 1.0, promtestutil.ToFloat64(s.metrics.requests.WithLabelValues(outcomeDecoded)))
		assert.Equal(t, 2.0, promtestutil.ToFloat64(s.metrics.spans))
	})

	t.Run("should acknowledge payloads that cannot be decoded", func(t *testing.T) {
		s := startServer(t)

		resp := post(t, s.URL(), []byte("definitely not msgpack"), http.Header{api.HeaderTraceCount: {"1"}})
		assertAck(t, resp)

		snapshot := s.CurrentSnapshot()
		assert.Equal(t, 0, snapshot.SpanCount())
		require.Equal(t, 1, snapshot.RequestCount())
		assert.False(t, snapshot.Requests[0].Decoded)
		assert.NotEmpty(t, snapshot.Requests[0].DecodeError)
		assert.Equal(t, 1.0, promtestutil.ToFloat64(s.metrics.requests.WithLabelValues(outcomeDecodeError)))

		// the listener keeps serving
		resp = post(t, s.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}})
		assertAck(t, resp)
		assert.Equal(t, 2, s.CurrentSnapshot().SpanCount())
	})

	t.Run("should record requests when decoding is disabled", func(t *testing.T) {
		s := startServer(t, WithDecoding(false))

		resp := post(t, s.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}})
		assertAck(t, resp)

		snapshot := s.CurrentSnapshot()
		assert.Equal(t, 0, snapshot.SpanCount())
		assert.Equal(t, 1, snapshot.RequestCount())
		assert.Equal(t, 1.0, promtestutil.ToFloat64(s.metrics.requests.WithLabelValues(outcomeSkipped)))
	})

	t.Run("should call hooks and count their failures", func(t *testing.T) {
		var received []string
		s := startServer(t,
			WithRequestReceivedHook(func(r *api.Request) error {
				received = append(received, r.Path)
				return nil
			}),
			WithRequestDecodedHook(func(api.Traces) error {
				return errors.New("observer failure")
			}),
		)

		resp := post(t, s.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}})
		assertAck(t, resp)

		assert.Equal(t, []string{"/v0.4/traces"}, received)
		assert.Equal(t, 1.0, promtestutil.ToFloat64(s.metrics.hookErrors.WithLabelValues("request_decoded")))
		assert.Equal(t, 2, s.CurrentSnapshot().SpanCount())
	})

	t.Run("should honor Expect: 100-continue", func(t *testing.T) {
		s := startServer(t)
		body := tracesPayload(t)

		conn, err := net.Dial("tcp", s.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		_, err = io.WriteString(conn, "POST /v0.3/traces HTTP/1.1\r\n"+
			"Host: localhost\r\n"+
			"Content-Type: application/msgpack\r\n"+
			"X-Datadog-Trace-Count: 1\r\n"+
			"Expect: 100-continue\r\n"+
			"Content-Length: "+strconv.Itoa(len(body))+"\r\n\r\n")
		require.NoError(t, err)

		br := bufio.NewReader(conn)
		interim, err := http.ReadResponse(br, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusContinue, interim.StatusCode)

		_, err = conn.Write(body)
		require.NoError(t, err)
		resp, err := http.ReadResponse(br, nil)
		require.NoError(t, err)
		assertAck(t, resp)
		assert.Equal(t, 2, s.CurrentSnapshot().SpanCount())
	})

	t.Run("should survive malformed requests", func(t *testing.T) {
		s := startServer(t)

		conn, err := net.Dial("tcp", s.Addr().String())
		require.NoError(t, err)
		_, err = io.WriteString(conn, "this is not http\r\n\r\n")
		require.NoError(t, err)
		_, _ = io.ReadAll(conn)
		conn.Close()

		resp := post(t, s.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}})
		assertAck(t, resp)
		assert.Equal(t, 1, s.CurrentSnapshot().RequestCount())
	})

	t.Run("should share a registry between servers", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		first := startServer(t, WithRegistry(registry))
		second := startServer(t, WithRegistry(registry))

		assertAck(t, post(t, first.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}}))
		assertAck(t, post(t, second.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}}))

		assert.Equal(t, 4.0, promtestutil.ToFloat64(first.metrics.spans))
	})
}

func TestStart(t *testing.T) {
	t.Run("should retry on another port when the hint is taken", func(t *testing.T) {
		taken := occupiedPort(t)
		free := freePort(t)
		allocator := &fakeAllocator{ports: []int{free}}

		s := NewServer(serverstore.NewInMemoryStore(), WithPortAllocator(allocator))
		port, err := s.Start(taken, 2)
		require.NoError(t, err)
		defer s.Stop()

		assert.Equal(t, free, port)
		assert.Equal(t, 1, allocator.calls)
	})

	t.Run("should keep asking the allocator while its ports are taken", func(t *testing.T) {
		hint := occupiedPort(t)
		free := freePort(t)
		allocator := &fakeAllocator{ports: []int{occupiedPort(t), free}}

		s := NewServer(nil, WithPortAllocator(allocator))
		port, err := s.Start(hint, 2)
		require.NoError(t, err)
		defer s.Stop()

		assert.Equal(t, free, port)
		assert.Equal(t, free, s.Port())
		assert.Equal(t, 2, allocator.calls)

		resp := post(t, s.URL(), tracesPayload(t), http.Header{api.HeaderTraceCount: {"1"}})
		assertAck(t, resp)
	})

	t.Run("should fail once the retry budget is exhausted", func(t *testing.T) {
		hint := occupiedPort(t)
		allocator := &fakeAllocator{ports: []int{occupiedPort(t), occupiedPort(t), occupiedPort(t)}}

		s := NewServer(nil, WithPortAllocator(allocator))
		_, err := s.Start(hint, 2)

		var bindErr *BindExhaustedError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, 3, bindErr.Attempts)
		assert.Equal(t, "localhost", bindErr.Host)
		assert.Equal(t, 2, allocator.calls)
		assert.Zero(t, s.Port())
		assert.Empty(t, s.URL())
	})

	t.Run("should not retry without budget", func(t *testing.T) {
		allocator := &fakeAllocator{ports: []int{freePort(t)}}

		s := NewServer(nil, WithPortAllocator(allocator))
		_, err := s.Start(occupiedPort(t), 0)

		var bindErr *BindExhaustedError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, 1, bindErr.Attempts)
		assert.Zero(t, allocator.calls)
	})

	t.Run("should not retry other bind errors", func(t *testing.T) {
		allocator := &fakeAllocator{ports: []int{freePort(t)}}

		s := NewServer(nil, WithPortAllocator(allocator))
		_, err := s.Start(-1, 3)

		require.Error(t, err)
		var bindErr *BindExhaustedError
		assert.False(t, errors.As(err, &bindErr))
		assert.Zero(t, allocator.calls)
	})

	t.Run("should refuse to start twice", func(t *testing.T) {
		s := startServer(t)
		port, err := s.Start(0, 0)
		assert.ErrorIs(t, err, ErrAlreadyRunning)
		assert.Equal(t, s.Port(), port)
	})
}

func TestStop(t *testing.T) {
	t.Run("should be idempotent", func(t *testing.T) {
		s := NewServer(nil)
		_, err := s.Start(0, 0)
		require.NoError(t, err)

		require.NoError(t, s.Stop())
		require.NoError(t, s.Stop())
		select {
		case <-s.Done():
		case <-time.After(5 * time.Second):
			require.Fail(t, "accept loop did not exit")
		}

		_, err = net.DialTimeout("tcp", s.Addr().String(), time.Second)
		assert.Error(t, err)
	})

	t.Run("should be safe before start", func(t *testing.T) {
		s := NewServer(nil)
		require.NoError(t, s.Stop())
		<-s.Done()

		_, err := s.Start(0, 0)
		assert.ErrorIs(t, err, ErrStopped)
	})

	t.Run("should be safe from several goroutines", func(t *testing.T) {
		s := NewServer(nil)
		_, err := s.Start(0, 0)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Stop()
			}()
		}
		wg.Wait()
		<-s.Done()
	})
}
