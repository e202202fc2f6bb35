// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package serverstore

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/DataDog/datadog-agent/test/mocktraceagent/api"
)

// InMemoryStore is a copy-on-write Store.
//
// Writers are serialized by mu, which only guards building and publishing the
// next snapshot. Readers load the current snapshot without locking.
type InMemoryStore struct {
	mu      sync.Mutex
	current *atomic.Pointer[Snapshot]
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		current: atomic.NewPointer(emptySnapshot),
	}
}

// Append implements Store
func (s *InMemoryStore) Append(spans []*api.Span, record api.RequestRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(s.current.Load().with(spans, record))
}

// CurrentSnapshot implements Store
func (s *InMemoryStore) CurrentSnapshot() *Snapshot {
	return s.current.Load()
}
