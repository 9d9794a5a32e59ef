// Package config provides TOML configuration file loading and parsing for tabvana.
// The configuration file lives at ~/.tabvana/config.toml by default, but can be
// overridden with the --config flag. CLI flags always take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// LocalStore is the path to the on-device key-value database.
	// Default: ~/.tabvana/local.db
	LocalStore string `toml:"local_store"`

	// LocalBackend selects the key-value engine: "sqlite" or "bolt".
	// Default: sqlite
	LocalBackend string `toml:"local_backend"`

	// RemoteDSN is the PostgreSQL connection string for cloud storage.
	// Empty disables the cloud backend; everyone is treated as free tier.
	// "memory://" selects an in-process store (demos and tests only).
	RemoteDSN string `toml:"remote_dsn"`

	// RemoteRateLimit caps remote round trips per second.
	// Default: 20
	RemoteRateLimit float64 `toml:"remote_rate_limit"`

	// RemoteBurst is the burst size for RemoteRateLimit.
	// Default: 5
	RemoteBurst int `toml:"remote_burst"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	// Default: info
	LogLevel string `toml:"log_level"`

	// BridgeAddr is the host:port the WebSocket bridge listens on.
	// Default: 127.0.0.1:7171
	BridgeAddr string `toml:"bridge_addr"`

	// BridgeTokenHash is the bcrypt hash of the bridge bearer token.
	// Empty disables bridge authentication (loopback-only use).
	BridgeTokenHash string `toml:"bridge_token_hash"`

	// FreeSessionLimit is the number of sessions a free user may keep.
	// Default: 5
	FreeSessionLimit int `toml:"free_session_limit"`

	// FreeGroupLimit is the number of groups a free user may keep.
	// Default: 2
	FreeGroupLimit int `toml:"free_group_limit"`
}

// DefaultDir returns ~/.tabvana.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tabvana"), nil
}

// DefaultConfigPath returns the default config file location: ~/.tabvana/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// WriteDefault creates a config file with local-only defaults at the given path.
//
// Behavior:
//   - If the file already exists, returns without error (does not overwrite).
//   - Creates the parent directory if it doesn't exist.
//   - Returns an error if the file cannot be written.
func WriteDefault(path string, remoteDSN string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# tabvana configuration
# Created by 'tabvana init'

# On-device store ("sqlite" or "bolt")
local_backend = %q

# Cloud storage for pro users; leave empty to stay local-only
remote_dsn = %q

# Free tier quotas
free_session_limit = %d
free_group_limit = %d
`, DefaultLocalBackend, remoteDSN, DefaultFreeSessionLimit, DefaultFreeGroupLimit)

	// Owner read/write only: the DSN may carry credentials.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads a TOML config file from the given path and returns a Config.
//
// Behavior:
//   - If path is empty, attempts to load from the default location (~/.tabvana/config.toml).
//     Returns an empty Config without error if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed.
//
// Defaults are not applied; call ApplyDefaults after flag overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			return cfg, nil
		}
		path = defaultPath
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with TABVANA_* environment variables.
// Only the remote DSN is read from the environment so credentials can stay
// out of the config file.
func (c *Config) ApplyEnv() {
	if dsn := os.Getenv(EnvRemoteDSN); dsn != "" {
		c.RemoteDSN = dsn
	}
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() error {
	if c.LocalStore == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		c.LocalStore = filepath.Join(dir, DefaultLocalStoreFile)
	}
	if c.LocalBackend == "" {
		c.LocalBackend = DefaultLocalBackend
	}
	if c.RemoteRateLimit == 0 {
		c.RemoteRateLimit = DefaultRemoteRateLimit
	}
	if c.RemoteBurst == 0 {
		c.RemoteBurst = DefaultRemoteBurst
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.BridgeAddr == "" {
		c.BridgeAddr = DefaultBridgeAddr
	}
	if c.FreeSessionLimit == 0 {
		c.FreeSessionLimit = DefaultFreeSessionLimit
	}
	if c.FreeGroupLimit == 0 {
		c.FreeGroupLimit = DefaultFreeGroupLimit
	}
	return nil
}

// Validate checks values that cannot be repaired by defaults.
// Zero values mean "use default" and are valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LocalBackend) {
	case "", BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("invalid local_backend %q: must be %q or %q", c.LocalBackend, BackendSQLite, BackendBolt)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn, or error", c.LogLevel)
	}
	if c.RemoteRateLimit < 0 {
		return fmt.Errorf("invalid remote_rate_limit %v: must be >= 0", c.RemoteRateLimit)
	}
	if c.RemoteBurst < 0 {
		return fmt.Errorf("invalid remote_burst %d: must be >= 0", c.RemoteBurst)
	}
	if c.FreeSessionLimit < 0 {
		return fmt.Errorf("invalid free_session_limit %d: must be >= 0", c.FreeSessionLimit)
	}
	if c.FreeGroupLimit < 0 {
		return fmt.Errorf("invalid free_group_limit %d: must be >= 0", c.FreeGroupLimit)
	}
	return nil
}

// RemoteEnabled reports whether a cloud backend is configured.
func (c *Config) RemoteEnabled() bool {
	return c.RemoteDSN != ""
}
