package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// TestNewSQLiteStore verifies that a store can be created with an in-memory
// database and is at the current schema version.
func TestNewSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	version, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

// TestSQLiteStore_Reopen verifies data persists across reopen and that
// reopening does not reapply migrations.
func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	store, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Set(ctx, map[string][]byte{"tier": []byte("pro")}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Close()

	store, err = NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	got, err := store.Get(ctx, "tier")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got["tier"]) != "pro" {
		t.Errorf("tier = %q, want pro", got["tier"])
	}

	var rows int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if rows != currentSchemaVersion {
		t.Errorf("schema_version has %d rows, want %d", rows, currentSchemaVersion)
	}
}

// TestSQLiteStore_UpdatedAt verifies the v2 column is populated on write.
func TestSQLiteStore_UpdatedAt(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Set(context.Background(), map[string][]byte{"email": []byte("a@b.c")}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var updatedAt string
	if err := store.db.QueryRow("SELECT updated_at FROM kv WHERE key = 'email'").Scan(&updatedAt); err != nil {
		t.Fatalf("select updated_at: %v", err)
	}
	if updatedAt == "" {
		t.Error("updated_at not set")
	}
}

// TestSQLiteStore_CloseTwice verifies Close is idempotent.
func TestSQLiteStore_CloseTwice(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
