package config

// Local store backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// DefaultLocalBackend is the key-value engine used when none is configured.
const DefaultLocalBackend = BackendSQLite

// DefaultLocalStoreFile is the file name of the local store under ~/.tabvana.
const DefaultLocalStoreFile = "local.db"

// DefaultRemoteRateLimit is the default cap on remote round trips per second.
const DefaultRemoteRateLimit = 20

// DefaultRemoteBurst is the default burst for the remote rate limiter.
const DefaultRemoteBurst = 5

// DefaultLogLevel is the default logging verbosity.
const DefaultLogLevel = "info"

// DefaultBridgeAddr is the default listen address for the WebSocket bridge.
const DefaultBridgeAddr = "127.0.0.1:7171"

// Free tier quotas.
const (
	DefaultFreeSessionLimit = 5
	DefaultFreeGroupLimit   = 2
)

// MemoryDSN selects the in-process remote store.
const MemoryDSN = "memory://"

// EnvRemoteDSN overrides remote_dsn when set.
const EnvRemoteDSN = "TABVANA_REMOTE_DSN"
