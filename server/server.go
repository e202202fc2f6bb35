// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package server implements a mock Datadog trace agent, meant to be used by
// tracer integration tests.
// It listens on a loopback port, accepts trace payloads on any route, always
// answers with an empty JSON object, and stores the decoded spans and the
// request records into a [serverstore.Store] that can be queried with the
// client package.
package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/ingest"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/internal/log"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/portalloc"
	"github.com/DataDog/datadog-agent/test/mocktraceagent/server/serverstore"
)

const (
	defaultHost            = "localhost"
	defaultReadTimeout     = 5 * time.Second
	defaultMaxRequestBytes = 10 * 1024 * 1024
)

var (
	// ErrAlreadyRunning is returned by Start on a server that is listening
	ErrAlreadyRunning = errors.New("mock agent is already running")
	// ErrStopped is returned by Start on a server that has been stopped
	ErrStopped = errors.New("mock agent has been stopped")
)

// PortAllocator provides a new candidate port when the requested one cannot
// be bound
type PortAllocator interface {
	GetOpenPort() (int, error)
}

// BindExhaustedError is returned by Start when every bind attempt failed
// because the address was not available
type BindExhaustedError struct {
	Host     string
	LastPort int
	Attempts int
	Err      error
}

func (e *BindExhaustedError) Error() string {
	return fmt.Sprintf("cannot bind %s after %d attempts, last port %d: %v", e.Host, e.Attempts, e.LastPort, e.Err)
}

func (e *BindExhaustedError) Unwrap() error {
	return e.Err
}

// Server is a mock trace agent
type Server struct {
	store           serverstore.Store
	pipeline        *ingest.Pipeline
	ingestOptions   []ingest.Option
	host            string
	allocator       PortAllocator
	clock           clock.Clock
	registry        prometheus.Registerer
	metrics         *metrics
	readTimeout     time.Duration
	maxRequestBytes int64

	mu       sync.Mutex
	listener net.Listener
	port     *atomic.Int64
	started  *atomic.Bool
	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewServer creates a mock agent writing to store. A nil store is replaced by
// an in-memory one.
// Call Server.Start to bind it and serve requests in a separate goroutine.
func NewServer(store serverstore.Store, options ...Option) *Server {
	if store == nil {
		store = serverstore.NewInMemoryStore()
	}
	s := &Server{
		store:           store,
		host:            defaultHost,
		allocator:       portalloc.Default,
		clock:           clock.New(),
		readTimeout:     defaultReadTimeout,
		maxRequestBytes: defaultMaxRequestBytes,
		port:            atomic.NewInt64(0),
		started:         atomic.NewBool(false),
		stopping:        make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)

	ingestOptions := append(s.ingestOptions, ingest.WithHookErrorHandler(func(hook string, _ error) {
		s.metrics.hookErrors.WithLabelValues(hook).Inc()
	}))
	s.pipeline = ingest.New(s.store, ingestOptions...)
	return s
}

// Start binds host:portHint and starts serving requests in a separate
// goroutine. If the address is not available, up to maxRetries other ports
// are asked to the port allocator and tried. It returns the bound port.
func (s *Server) Start(portHint, maxRetries int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopping:
		return 0, ErrStopped
	default:
	}
	if s.listener != nil {
		return s.Port(), ErrAlreadyRunning
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempts := uint(maxRetries) + 1
	port := portHint
	tried := 0
	var listener net.Listener
	var lastErr error
	err := retry.Do(
		func() error {
			tried++
			l, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
			if err != nil {
				lastErr = err
				return err
			}
			listener = l
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isAddrUnavailable),
		retry.OnRetry(func(n uint, err error) {
			// also called after the last attempt
			if n+1 >= attempts {
				return
			}
			next, allocErr := s.allocator.GetOpenPort()
			if allocErr != nil {
				log.Warnf("Port %d is not available (%v) and no other port could be allocated: %v", port, err, allocErr) //nolint:errcheck
				return
			}
			log.Debugf("Port %d is not available (%v), retrying on port %d", port, err, next)
			port = next
		}),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		if isAddrUnavailable(lastErr) {
			return 0, &BindExhaustedError{Host: s.host, LastPort: port, Attempts: tried, Err: lastErr}
		}
		return 0, errors.Wrapf(lastErr, "cannot listen on %s", net.JoinHostPort(s.host, strconv.Itoa(port)))
	}

	s.listener = listener
	s.port.Store(int64(listener.Addr().(*net.TCPAddr).Port))
	s.started.Store(true)
	log.Infof("Mock trace agent listening on %s", listener.Addr())

	go s.serve(listener)
	return s.Port(), nil
}

// Stop stops accepting requests and closes the listener. It can be called
// several times, from any goroutine, including before Start. A request being
// handled is allowed to complete; wait on Done to know when it is the case.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stopping)
		if s.listener == nil {
			close(s.done)
			return
		}
		err = s.listener.Close()
		log.Infof("Mock trace agent on port %d stopped", s.Port())
	})
	return err
}

// Done returns a channel closed once the server stopped serving requests
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Port returns the bound port, or 0 if the server is not started
func (s *Server) Port() int {
	return int(s.port.Load())
}

// Addr returns the address of the listener, or nil if the server is not
// started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the base URL tracers should post to, or an empty string if the
// server is not started
func (s *Server) URL() string {
	if !s.isStarted() {
		return ""
	}
	return "http://" + net.JoinHostPort(s.host, strconv.Itoa(s.Port()))
}

// Store returns the store the server writes to
func (s *Server) Store() serverstore.Store {
	return s.store
}

// CurrentSnapshot returns the current snapshot of the server store
func (s *Server) CurrentSnapshot() *serverstore.Snapshot {
	return s.store.CurrentSnapshot()
}

func (s *Server) isStarted() bool {
	return s.started != nil && s.started.Load()
}

func (s *Server) serve(listener net.Listener) {
	defer close(s.done)
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warnf("Error accepting connection: %v", err) //nolint:errcheck
			time.Sleep(5 * time.Millisecond)
			continue
		}
		s.handle(conn)
	}
}

// handle serves exactly one request on conn, then closes it
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if s.readTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.readTimeout))
	}

	br := bufio.NewReader(conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		log.Debugf("Dropping malformed request from %s: %v", conn.RemoteAddr(), err)
		return
	}
	defer req.Body.Close()

	if strings.EqualFold(req.Header.Get("Expect"), "100-continue") {
		if _, err := io.WriteString(conn, "HTTP/1.1 100 Continue\r\n\r\n"); err != nil {
			log.Debugf("Cannot write 100-continue to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}

	limit := s.maxRequestBytes
	if limit <= 0 {
		limit = defaultMaxRequestBytes
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, limit))
	if err != nil {
		log.Warnf("Error reading request body from %s: %v", conn.RemoteAddr(), err) //nolint:errcheck
	}

	res := s.pipeline.Ingest(&api.Request{
		ID:         uuid.NewString(),
		ReceivedAt: s.clock.Now(),
		Method:     req.Method,
		Path:       req.URL.Path,
		RemoteAddr: conn.RemoteAddr().String(),
		Header:     req.Header,
		Body:       body,
	})
	s.observe(res)

	if err := writeAck(conn, req); err != nil {
		log.Debugf("Cannot acknowledge request %s: %v", res.Record.ID, err)
	}
}

func (s *Server) observe(res ingest.Result) {
	s.metrics.requestBytes.Observe(float64(res.Record.BodyLength))
	switch {
	case res.Err != nil:
		s.metrics.requests.WithLabelValues(outcomeDecodeError).Inc()
	case !res.Record.Decoded:
		s.metrics.requests.WithLabelValues(outcomeSkipped).Inc()
	default:
		s.metrics.requests.WithLabelValues(outcomeDecoded).Inc()
		s.metrics.spans.Add(float64(res.SpanCount))
	}
}

// writeAck answers every request with an empty JSON object
func writeAck(w io.Writer, req *http.Request) error {
	resp := &http.Response{
		StatusCode:    http.StatusOK,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Request:       req,
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          io.NopCloser(strings.NewReader("{}")),
		ContentLength: 2,
		Close:         true,
	}
	return resp.Write(w)
}

func isAddrUnavailable(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE) ||
		errors.Is(err, syscall.EADDRNOTAVAIL) ||
		errors.Is(err, syscall.EACCES)
}
