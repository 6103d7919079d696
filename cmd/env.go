package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/db"
	"github.com/sells-group/urban-performance/internal/geo"
	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/partial"
	"github.com/sells-group/urban-performance/internal/pipeline"
	"github.com/sells-group/urban-performance/internal/store"
)

// initStore opens the configured store and applies its migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newCatalog() *catalog.Catalog {
	return catalog.New(cfg.Projects.MediaRoot, cfg.Geo.Extensions...)
}

// processorEnv holds the store, the PostGIS pool and the Processor used by
// the run and worker commands.
type processorEnv struct {
	Store     store.Store
	Processor *pipeline.Processor
	geoPool   *pgxpool.Pool
}

// Close releases the pool and the store.
func (pe *processorEnv) Close() {
	if pe.geoPool != nil {
		pe.geoPool.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initProcessor wires the store, the PostGIS engine and the cache builder
// into a Processor. Callers should defer env.Close().
func initProcessor(ctx context.Context, mode string) (*processorEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	constants, err := model.DefaultConstants()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg.GeoDatabaseURL(), db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "connect postgis")
	}

	cat := newCatalog()
	builder := partial.NewBuilder(geo.NewPostGIS(pool), cat, constants, cfg.Geo.SourceSRID)
	proc := pipeline.New(st, builder, cat, constants, pipeline.OptionsFromConfig(cfg))

	zap.L().Debug("processor ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("media_root", cfg.Projects.MediaRoot),
		zap.String("constants", constants.Version),
	)

	return &processorEnv{Store: st, Processor: proc, geoPool: pool}, nil
}
