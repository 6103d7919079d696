package pipeline

import (
	"time"

	"github.com/sells-group/urban-performance/internal/config"
	"github.com/sells-group/urban-performance/internal/resilience"
)

// Progress marks of the aggregation and finalize stages. The cache-build
// stage owns 0-37.
const (
	ProgressAggregateStart = 40
	ProgressAggregateEnd   = 80
	ProgressFinalizing     = 90
	ProgressReady          = 100
)

// Options tunes chunking, parallelism and write retries.
type Options struct {
	ChunkSize        int
	Concurrency      int
	ProgressInterval time.Duration
	MaxSkipSamples   int
	Retry            resilience.RetryConfig
	Breaker          resilience.CircuitBreakerConfig
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:        100,
		Concurrency:      8,
		ProgressInterval: 250 * time.Millisecond,
		MaxSkipSamples:   50,
		Retry:            resilience.DefaultRetryConfig(),
		Breaker:          resilience.DefaultCircuitBreakerConfig(),
	}
}

// OptionsFromConfig reads the pipeline and persist sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg.Pipeline.ChunkSize > 0 {
		opts.ChunkSize = cfg.Pipeline.ChunkSize
	}
	if cfg.Pipeline.Concurrency > 0 {
		opts.Concurrency = cfg.Pipeline.Concurrency
	}
	if cfg.Pipeline.ProgressIntervalMs >= 0 {
		opts.ProgressInterval = time.Duration(cfg.Pipeline.ProgressIntervalMs) * time.Millisecond
	}
	if cfg.Pipeline.MaxSkipSamples >= 0 {
		opts.MaxSkipSamples = cfg.Pipeline.MaxSkipSamples
	}
	opts.Retry, opts.Breaker = resilience.FromPersistConfig(cfg.Persist)
	return opts
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = def.ChunkSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.ProgressInterval < 0 {
		o.ProgressInterval = 0
	}
	if o.MaxSkipSamples < 0 {
		o.MaxSkipSamples = 0
	}
	return o
}
