package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cityguard/core/factory"
	"github.com/kilianp07/cityguard/core/model"
)

func TestReportKey(t *testing.T) {
	assert.Equal(t, "task-abc:observer_reports", ReportKey("task-abc"))
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := ReportKey("task-1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, key, model.Report{ObserverID: fmt.Sprintf("obs-%d", i)}))
		}(i)
	}
	wg.Wait()
	got, err := s.List(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got, 50)

	other, err := s.List(ctx, ReportKey("task-2"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStoreListIsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "k", model.Report{Result: "a"}))
	got, _ := s.List(ctx, "k")
	got[0].Result = "mutated"
	again, _ := s.List(ctx, "k")
	assert.Equal(t, "a", again[0].Result)
}

func TestNewBackend(t *testing.T) {
	s, err := New(factory.ModuleConfig{})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)

	_, err = New(factory.ModuleConfig{Type: "etcd"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))
	assert.Contains(t, Backends(), "memory")
}
