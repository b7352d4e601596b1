// Package store defines the append-only report store shared by observer
// workers and the escalation controller.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/cityguard/core/factory"
	"github.com/kilianp07/cityguard/core/model"
)

// ErrUnknownBackend is returned by New for an unregistered backend type.
var ErrUnknownBackend = errors.New("unknown report store backend")

// ReportStore is an append-only list of reports per key. Concurrent appends
// under the same key must never lose an entry, and every append that returned
// must be visible to a subsequent List.
type ReportStore interface {
	Append(ctx context.Context, key string, r model.Report) error
	List(ctx context.Context, key string) ([]model.Report, error)
	Close() error
}

// ReportKey is the list key holding observer reports for a task.
func ReportKey(taskID string) string { return taskID + ":observer_reports" }

var registry = factory.NewRegistry[ReportStore]()

func init() {
	_ = Register("memory", func(map[string]any) (ReportStore, error) {
		return NewMemoryStore(), nil
	})
}

// Register adds a backend factory identified by name.
func Register(name string, f factory.Factory[ReportStore]) error {
	return registry.Register(name, f)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }

// New creates the configured backend. An empty type selects the memory store.
func New(cfg factory.ModuleConfig) (ReportStore, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	s, err := registry.Create(cfg)
	if errors.Is(err, factory.ErrUnknownType) {
		return nil, fmt.Errorf("%w: %s (have %v)", ErrUnknownBackend, cfg.Type, registry.Names())
	}
	return s, err
}

// MemoryStore keeps reports in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]model.Report
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]model.Report)}
}

func (s *MemoryStore) Append(_ context.Context, key string, r model.Report) error {
	s.mu.Lock()
	s.lists[key] = append(s.lists[key], r)
	s.mu.Unlock()
	return nil
}

// List returns a copy of the reports appended under key, oldest first.
func (s *MemoryStore) List(_ context.Context, key string) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Report, len(s.lists[key]))
	copy(out, s.lists[key])
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
