package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// engines opens a fresh store of every engine for table-driven tests.
func engines(t *testing.T) map[string]KV {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	boltStore, err := NewBoltStore(filepath.Join(t.TempDir(), "local.bolt"), nil)
	if err != nil {
		t.Fatalf("NewBoltStore failed: %v", err)
	}

	t.Cleanup(func() {
		sqliteStore.Close()
		boltStore.Close()
	})

	return map[string]KV{
		EngineSQLite: sqliteStore,
		EngineBolt:   boltStore,
	}
}

// TestKV_SetGetRemove exercises the full contract on both engines.
func TestKV_SetGetRemove(t *testing.T) {
	ctx := context.Background()

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			got, err := kv.Get(ctx, "local_sessions")
			if err != nil {
				t.Fatalf("Get on empty store failed: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no values, got %v", got)
			}

			err = kv.Set(ctx, map[string][]byte{
				"local_sessions": []byte(`[]`),
				"userId":         []byte("u-1"),
			})
			if err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, err = kv.Get(ctx, "local_sessions", "userId", "missing")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			want := map[string][]byte{
				"local_sessions": []byte(`[]`),
				"userId":         []byte("u-1"),
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Get mismatch (-want +got):\n%s", diff)
			}

			// Overwrite keeps a single value per key.
			if err := kv.Set(ctx, map[string][]byte{"userId": []byte("u-2")}); err != nil {
				t.Fatalf("Set overwrite failed: %v", err)
			}
			got, _ = kv.Get(ctx, "userId")
			if string(got["userId"]) != "u-2" {
				t.Errorf("userId = %q, want u-2", got["userId"])
			}

			if err := kv.Remove(ctx, "userId", "never-set"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			got, _ = kv.Get(ctx, "userId", "local_sessions")
			if _, ok := got["userId"]; ok {
				t.Error("userId still present after Remove")
			}
			if _, ok := got["local_sessions"]; !ok {
				t.Error("Remove deleted an unrelated key")
			}
		})
	}
}

// TestKV_EmptyArguments verifies no-op calls succeed.
func TestKV_EmptyArguments(t *testing.T) {
	ctx := context.Background()

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			if got, err := kv.Get(ctx); err != nil || len(got) != 0 {
				t.Errorf("Get() = %v, %v; want empty, nil", got, err)
			}
			if err := kv.Set(ctx, nil); err != nil {
				t.Errorf("Set(nil) error: %v", err)
			}
			if err := kv.Remove(ctx); err != nil {
				t.Errorf("Remove() error: %v", err)
			}
		})
	}
}

// TestKV_ClosedStore verifies operations after Close report ErrClosed.
func TestKV_ClosedStore(t *testing.T) {
	ctx := context.Background()

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			if err := kv.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
				t.Errorf("Get after Close = %v, want ErrClosed", err)
			}
			if err := kv.Set(ctx, map[string][]byte{"k": []byte("v")}); !errors.Is(err, ErrClosed) {
				t.Errorf("Set after Close = %v, want ErrClosed", err)
			}
		})
	}
}

// TestKV_ConcurrentWriters verifies concurrent Set calls on distinct keys all land.
func TestKV_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

			var wg sync.WaitGroup
			for _, k := range keys {
				wg.Add(1)
				go func(k string) {
					defer wg.Done()
					if err := kv.Set(ctx, map[string][]byte{k: []byte(k)}); err != nil {
						t.Errorf("Set(%s) failed: %v", k, err)
					}
				}(k)
			}
			wg.Wait()

			got, err := kv.Get(ctx, keys...)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if len(got) != len(keys) {
				t.Errorf("got %d keys, want %d", len(got), len(keys))
			}
		})
	}
}

// TestKV_CancelledContext verifies a cancelled context is honored.
func TestKV_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get(ctx, "k"); err == nil {
				t.Error("Get with cancelled context should fail")
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, engine := range []string{"", EngineSQLite, EngineBolt} {
		kv, err := Open(engine, filepath.Join(dir, "store-"+engine+".db"), nil)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", engine, err)
		}
		kv.Close()
	}

	if _, err := Open("leveldb", filepath.Join(dir, "x.db"), nil); err == nil {
		t.Error("Open with unknown engine should fail")
	}
}
