package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/cityguard/core/model"
)

// Observer is the closed capability set every fleet unit exposes, whether it
// runs in process or behind a transport.
type Observer interface {
	ID() string
	// Snapshot returns the observer's current serialized state.
	Snapshot(ctx context.Context) (model.ObserverSnapshot, error)
	// ExecuteTask moves the observer as ordered and returns its evidence report.
	ExecuteTask(ctx context.Context, order model.TaskOrder) (model.Report, error)
}

// Fleet is the registry of observers a Dispatcher may address.
type Fleet struct {
	mu        sync.RWMutex
	observers map[string]Observer
}

// NewFleet builds a fleet from obs. Duplicate ids are rejected.
func NewFleet(obs ...Observer) (*Fleet, error) {
	f := &Fleet{observers: make(map[string]Observer, len(obs))}
	for _, o := range obs {
		if err := f.Add(o); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Add registers o.
func (f *Fleet) Add(o Observer) error {
	if o == nil || o.ID() == "" {
		return fmt.Errorf("fleet: observer must have an id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.observers[o.ID()]; ok {
		return fmt.Errorf("fleet: duplicate observer %s", o.ID())
	}
	f.observers[o.ID()] = o
	return nil
}

// Remove unregisters the given ids. Unknown ids are ignored.
func (f *Fleet) Remove(ids ...string) {
	f.mu.Lock()
	for _, id := range ids {
		delete(f.observers, id)
	}
	f.mu.Unlock()
}

// Get returns the observer registered under id.
func (f *Fleet) Get(id string) (Observer, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	o, ok := f.observers[id]
	return o, ok
}

// IDs returns every registered id in ascending order.
func (f *Fleet) IDs() []string {
	f.mu.RLock()
	out := make([]string, 0, len(f.observers))
	for id := range f.observers {
		out = append(out, id)
	}
	f.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of registered observers.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.observers)
}
