package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cityguard/core/factory"
	"github.com/kilianp07/cityguard/core/model"
	corestore "github.com/kilianp07/cityguard/core/store"
)

func backends(t *testing.T) map[string]corestore.ReportStore {
	t.Helper()
	jsonl, err := NewJSONLStore(filepath.Join(t.TempDir(), "reports", "reports.jsonl"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = jsonl.Close()
		_ = sqlite.Close()
	})
	return map[string]corestore.ReportStore{"jsonl": jsonl, "sqlite": sqlite}
}

func TestStoresKeepOrderPerKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := corestore.ReportKey("task-1")
			now := time.Unix(1700000000, 0).UTC()
			for i := 0; i < 3; i++ {
				require.NoError(t, s.Append(ctx, key, model.Report{
					TaskID:     "task-1",
					ObserverID: fmt.Sprintf("obs-%d", i),
					ObservedAt: now.Add(time.Duration(i) * time.Second),
					Result:     "flooded road",
				}))
			}
			require.NoError(t, s.Append(ctx, corestore.ReportKey("task-2"), model.Report{ObserverID: "other"}))

			got, err := s.List(ctx, key)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i, r := range got {
				assert.Equal(t, fmt.Sprintf("obs-%d", i), r.ObserverID)
				assert.True(t, r.ObservedAt.Equal(now.Add(time.Duration(i)*time.Second)))
			}

			empty, err := s.List(ctx, corestore.ReportKey("missing"))
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStoresConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := corestore.ReportKey("task-c")
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, s.Append(ctx, key, model.Report{ObserverID: fmt.Sprintf("obs-%d", i)}))
				}(i)
			}
			wg.Wait()
			got, err := s.List(ctx, key)
			require.NoError(t, err)
			assert.Len(t, got, 20)
		})
	}
}

func TestFactoryRegistersBackends(t *testing.T) {
	s, err := corestore.New(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": filepath.Join(t.TempDir(), "r.jsonl")}})
	require.NoError(t, err)
	_, ok := s.(*JSONLStore)
	assert.True(t, ok)

	s, err = corestore.New(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": "file:factory?mode=memory&cache=shared"}})
	require.NoError(t, err)
	_, ok = s.(*SQLiteStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	_, err = corestore.New(factory.ModuleConfig{Type: "sqlite"})
	assert.Error(t, err)
}
