package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Projects ProjectsConfig `yaml:"projects" mapstructure:"projects"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Persist  PersistConfig  `yaml:"persist" mapstructure:"persist"`
	Temporal TemporalConfig `yaml:"temporal" mapstructure:"temporal"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend holding projects and results.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GeoConfig configures the PostGIS geometry engine and layer readers.
type GeoConfig struct {
	DatabaseURL string   `yaml:"database_url" mapstructure:"database_url"`
	SourceSRID  int      `yaml:"source_srid" mapstructure:"source_srid"`
	Extensions  []string `yaml:"extensions" mapstructure:"extensions"`
}

// ProjectsConfig locates project folders on disk.
type ProjectsConfig struct {
	MediaRoot string `yaml:"media_root" mapstructure:"media_root"`
}

// PipelineConfig configures scenario enumeration and persistence.
type PipelineConfig struct {
	ChunkSize          int `yaml:"chunk_size" mapstructure:"chunk_size"`
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
	ProgressIntervalMs int `yaml:"progress_interval_ms" mapstructure:"progress_interval_ms"`
	MaxSkipSamples     int `yaml:"max_skip_samples" mapstructure:"max_skip_samples"`
}

// PersistConfig controls retries for chunk upserts.
type PersistConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter           float64 `yaml:"jitter" mapstructure:"jitter"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// TemporalConfig configures the Temporal client and worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
	Shards    int    `yaml:"shards" mapstructure:"shards"`
}

// ServerConfig configures the status API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeoDatabaseURL returns the PostGIS URL, falling back to the store URL.
func (c *Config) GeoDatabaseURL() string {
	if c.Geo.DatabaseURL != "" {
		return c.Geo.DatabaseURL
	}
	return c.Store.DatabaseURL
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("URBANPERF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("geo.source_srid", 4326)
	v.SetDefault("geo.extensions", []string{".geojson"})
	v.SetDefault("projects.media_root", "./media")
	v.SetDefault("pipeline.chunk_size", 100)
	v.SetDefault("pipeline.concurrency", 8)
	v.SetDefault("pipeline.progress_interval_ms", 250)
	v.SetDefault("pipeline.max_skip_samples", 50)
	v.SetDefault("persist.max_attempts", 5)
	v.SetDefault("persist.initial_backoff_ms", 200)
	v.SetDefault("persist.max_backoff_ms", 10000)
	v.SetDefault("persist.multiplier", 2.0)
	v.SetDefault("persist.jitter", 0.25)
	v.SetDefault("persist.breaker_threshold", 10)
	v.SetDefault("persist.breaker_reset_secs", 30)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "urban-performance")
	v.SetDefault("temporal.shards", 16)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given command mode are
// present. Modes: "run", "worker", "submit", "serve", "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	needStore := func() {
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}
	needPipeline := func() {
		if c.GeoDatabaseURL() == "" {
			errs = append(errs, "geo.database_url (or store.database_url) is required")
		}
		if c.Projects.MediaRoot == "" {
			errs = append(errs, "projects.media_root is required")
		}
		if c.Pipeline.ChunkSize < 1 {
			errs = append(errs, "pipeline.chunk_size must be >= 1")
		}
		if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 64 {
			errs = append(errs, "pipeline.concurrency must be between 1 and 64")
		}
	}
	needTemporal := func() {
		if c.Temporal.HostPort == "" {
			errs = append(errs, "temporal.host_port is required")
		}
		if c.Temporal.TaskQueue == "" {
			errs = append(errs, "temporal.task_queue is required")
		}
		if c.Temporal.Shards < 1 {
			errs = append(errs, "temporal.shards must be >= 1")
		}
	}

	switch mode {
	case "run":
		needStore()
		needPipeline()
	case "worker":
		needStore()
		needPipeline()
		needTemporal()
	case "submit":
		needStore()
		needTemporal()
	case "serve":
		needStore()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "store":
		needStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
