package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoad_AllFields verifies that all config fields are parsed correctly from TOML.
func TestLoad_AllFields(t *testing.T) {
	content := `
local_store = "/data/tabvana.db"
local_backend = "bolt"
remote_dsn = "postgres://u:p@db:5432/tabvana"
remote_rate_limit = 7.5
remote_burst = 3
log_level = "debug"
bridge_addr = "127.0.0.1:9000"
bridge_token_hash = "$2a$10$abc"
free_session_limit = 8
free_group_limit = 4
`
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LocalStore != "/data/tabvana.db" {
		t.Errorf("LocalStore = %q, want %q", cfg.LocalStore, "/data/tabvana.db")
	}
	if cfg.LocalBackend != "bolt" {
		t.Errorf("LocalBackend = %q, want %q", cfg.LocalBackend, "bolt")
	}
	if cfg.RemoteDSN != "postgres://u:p@db:5432/tabvana" {
		t.Errorf("RemoteDSN = %q", cfg.RemoteDSN)
	}
	if cfg.RemoteRateLimit != 7.5 {
		t.Errorf("RemoteRateLimit = %v, want 7.5", cfg.RemoteRateLimit)
	}
	if cfg.RemoteBurst != 3 {
		t.Errorf("RemoteBurst = %d, want 3", cfg.RemoteBurst)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.BridgeAddr != "127.0.0.1:9000" {
		t.Errorf("BridgeAddr = %q, want %q", cfg.BridgeAddr, "127.0.0.1:9000")
	}
	if cfg.BridgeTokenHash != "$2a$10$abc" {
		t.Errorf("BridgeTokenHash = %q", cfg.BridgeTokenHash)
	}
	if cfg.FreeSessionLimit != 8 {
		t.Errorf("FreeSessionLimit = %d, want 8", cfg.FreeSessionLimit)
	}
	if cfg.FreeGroupLimit != 4 {
		t.Errorf("FreeGroupLimit = %d, want 4", cfg.FreeGroupLimit)
	}
	if !cfg.RemoteEnabled() {
		t.Error("RemoteEnabled() = false, want true")
	}
}

// TestLoad_ExplicitPath_NotFound verifies that a missing explicit path is an error.
func TestLoad_ExplicitPath_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %v, want 'config file not found'", err)
	}
}

// TestLoad_EmptyPath_NoDefaultFile verifies that an empty path returns
// an empty Config without error when no default file exists.
func TestLoad_EmptyPath_NoDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.RemoteDSN != "" || cfg.LocalStore != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

// TestLoad_EmptyPath_DefaultFileExists verifies that an empty path loads
// from the default location when the file exists.
func TestLoad_EmptyPath_DefaultFileExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".tabvana")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(`log_level = "warn"`), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
}

// TestLoad_InvalidTOML verifies that a parse error is returned for invalid TOML.
func TestLoad_InvalidTOML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte("remote_dsn = \"missing quote\n"), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	if _, err := Load(tmpFile); err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

// TestDefaultConfigPath verifies the default config path format.
func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error: %v", err)
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("DefaultConfigPath() = %q, want filename config.toml", path)
	}
	if filepath.Base(filepath.Dir(path)) != ".tabvana" {
		t.Errorf("DefaultConfigPath() = %q, want parent dir .tabvana", path)
	}
}

// TestWriteDefault_RoundTrip verifies a written default config loads back
// with the quota defaults and does not overwrite an existing file.
func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := WriteDefault(path, "postgres://localhost/tabvana"); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RemoteDSN != "postgres://localhost/tabvana" {
		t.Errorf("RemoteDSN = %q", cfg.RemoteDSN)
	}
	if cfg.FreeSessionLimit != DefaultFreeSessionLimit || cfg.FreeGroupLimit != DefaultFreeGroupLimit {
		t.Errorf("limits = %d/%d, want %d/%d", cfg.FreeSessionLimit, cfg.FreeGroupLimit,
			DefaultFreeSessionLimit, DefaultFreeGroupLimit)
	}

	// Second call must not overwrite.
	if err := os.WriteFile(path, []byte(`log_level = "error"`), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := WriteDefault(path, ""); err != nil {
		t.Fatalf("WriteDefault() second call error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `log_level = "error"` {
		t.Errorf("WriteDefault overwrote existing file: %q", data)
	}
}

// TestApplyDefaults verifies unset fields are filled and set fields are kept.
func TestApplyDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &Config{FreeGroupLimit: 3}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error: %v", err)
	}

	if cfg.LocalBackend != BackendSQLite {
		t.Errorf("LocalBackend = %q, want %q", cfg.LocalBackend, BackendSQLite)
	}
	if filepath.Base(cfg.LocalStore) != DefaultLocalStoreFile {
		t.Errorf("LocalStore = %q, want file %q", cfg.LocalStore, DefaultLocalStoreFile)
	}
	if cfg.FreeSessionLimit != 5 {
		t.Errorf("FreeSessionLimit = %d, want 5", cfg.FreeSessionLimit)
	}
	if cfg.FreeGroupLimit != 3 {
		t.Errorf("FreeGroupLimit = %d, want 3 (explicit value kept)", cfg.FreeGroupLimit)
	}
	if cfg.BridgeAddr != DefaultBridgeAddr {
		t.Errorf("BridgeAddr = %q, want %q", cfg.BridgeAddr, DefaultBridgeAddr)
	}
	if cfg.RemoteEnabled() {
		t.Error("RemoteEnabled() = true with empty DSN")
	}
}

// TestApplyEnv verifies the environment overrides the file DSN.
func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvRemoteDSN, "postgres://env/tabvana")

	cfg := &Config{RemoteDSN: "postgres://file/tabvana"}
	cfg.ApplyEnv()

	if cfg.RemoteDSN != "postgres://env/tabvana" {
		t.Errorf("RemoteDSN = %q, want env value", cfg.RemoteDSN)
	}
}

// TestValidate uses table-driven tests to cover accepted and rejected values.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty config", Config{}, ""},
		{"bolt backend", Config{LocalBackend: "bolt"}, ""},
		{"unknown backend", Config{LocalBackend: "leveldb"}, "local_backend"},
		{"bad log level", Config{LogLevel: "loud"}, "log_level"},
		{"negative rate", Config{RemoteRateLimit: -1}, "remote_rate_limit"},
		{"negative burst", Config{RemoteBurst: -2}, "remote_burst"},
		{"negative session limit", Config{FreeSessionLimit: -5}, "-5"},
		{"negative group limit", Config{FreeGroupLimit: -1}, "free_group_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
