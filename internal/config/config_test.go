package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, 4326, cfg.Geo.SourceSRID)
	assert.Equal(t, []string{".geojson"}, cfg.Geo.Extensions)
	assert.Equal(t, "./media", cfg.Projects.MediaRoot)
	assert.Equal(t, 100, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, 250, cfg.Pipeline.ProgressIntervalMs)
	assert.Equal(t, 5, cfg.Persist.MaxAttempts)
	assert.InDelta(t, 2.0, cfg.Persist.Multiplier, 0.001)
	assert.InDelta(t, 0.25, cfg.Persist.Jitter, 0.001)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "urban-performance", cfg.Temporal.TaskQueue)
	assert.Equal(t, 16, cfg.Temporal.Shards)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: ./urban.db
pipeline:
  chunk_size: 250
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./urban.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 250, cfg.Pipeline.ChunkSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("URBANPERF_STORE_DRIVER", "postgres")
	t.Setenv("URBANPERF_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("URBANPERF_PIPELINE_CHUNK_SIZE", "500")
	t.Setenv("URBANPERF_TEMPORAL_SHARDS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 4, cfg.Temporal.Shards)
}

func TestGeoDatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "postgres://localhost/store"
	assert.Equal(t, "postgres://localhost/store", cfg.GeoDatabaseURL())

	cfg.Geo.DatabaseURL = "postgres://localhost/gis"
	assert.Equal(t, "postgres://localhost/gis", cfg.GeoDatabaseURL())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/urban"
	cfg.Projects.MediaRoot = "./media"
	cfg.Pipeline.ChunkSize = 100
	cfg.Pipeline.Concurrency = 8
	cfg.Temporal.HostPort = "localhost:7233"
	cfg.Temporal.TaskQueue = "urban-performance"
	cfg.Temporal.Shards = 16
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"run", "worker", "submit", "serve", "store"} {
		t.Run(mode, func(t *testing.T) {
			assert.NoError(t, cfg.Validate(mode))
		})
	}
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.Pipeline.ChunkSize = 0

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "geo.database_url")
	assert.Contains(t, err.Error(), "pipeline.chunk_size must be >= 1")
}

func TestValidateWorker_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.Concurrency = 0
	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.concurrency must be between 1 and 64")

	cfg.Pipeline.Concurrency = 65
	assert.Error(t, cfg.Validate("worker"))

	cfg.Pipeline.Concurrency = 64
	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidateSubmit_NoTemporal(t *testing.T) {
	cfg := validDefaults()
	cfg.Temporal.HostPort = ""
	cfg.Temporal.Shards = 0

	err := cfg.Validate("submit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporal.host_port is required")
	assert.Contains(t, err.Error(), "temporal.shards must be >= 1")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql" is not supported`)
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
