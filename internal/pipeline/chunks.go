package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/partial"
	"github.com/sells-group/urban-performance/internal/resilience"
	"github.com/sells-group/urban-performance/internal/scenario"
	"github.com/sells-group/urban-performance/internal/store"
)

// runState is what every chunk of one run reads. It is immutable once
// prepared.
type runState struct {
	projectID  string
	generation string
	space      *scenario.Space
	agg        *scenario.Aggregator
	chunks     []scenario.Chunk
}

// prepare loads the stored partial results and fresh assumptions for a
// stage-2 worker.
func (p *Processor) prepare(ctx context.Context, projectID, generation string) (*runState, error) {
	blob, err := p.store.PartialResults(ctx, projectID, generation)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load partial results")
	}
	cache, err := partial.Decode(blob)
	if err != nil {
		return nil, err
	}
	if cache.Generation != generation {
		return nil, store.ErrSuperseded
	}
	a, err := assumptions.Load(p.catalog.AssumptionsPath(projectID))
	if err != nil {
		return nil, err
	}
	agg, err := scenario.NewAggregator(projectID, cache, a, p.constants)
	if err != nil {
		return nil, err
	}
	space := scenario.NewSpace(cache.Variants, p.constants)
	return &runState{
		projectID:  projectID,
		generation: generation,
		space:      space,
		agg:        agg,
		chunks:     space.Chunks(p.opts.ChunkSize),
	}, nil
}

// Plan returns the scenario space a run would enumerate, read from the
// catalog as it is now.
func (p *Processor) Plan(projectID string) (*scenario.Space, error) {
	snap, err := p.catalog.Snapshot(projectID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list variants")
	}
	return scenario.NewSpace(snap, p.constants), nil
}

// Aggregate is stage 2 run in process: every chunk of the space is
// aggregated and persisted by a bounded worker group, and the call returns
// only after all of them finished.
func (p *Processor) Aggregate(ctx context.Context, projectID, generation string) (*Diagnostics, error) {
	run, err := p.prepare(ctx, projectID, generation)
	if err != nil {
		return nil, err
	}
	return p.processChunks(ctx, run, run.chunks, len(run.chunks))
}

// ProcessShard runs the chunks with index shard, shard+shards, ... of the
// run. Progress assumes shards advance evenly.
func (p *Processor) ProcessShard(ctx context.Context, projectID, generation string, shard, shards int) (*Diagnostics, error) {
	if shards < 1 || shard < 0 || shard >= shards {
		return nil, eris.Errorf("pipeline: shard %d of %d out of range", shard, shards)
	}
	run, err := p.prepare(ctx, projectID, generation)
	if err != nil {
		return nil, err
	}
	var mine []scenario.Chunk
	for _, c := range run.chunks {
		if c.Index%shards == shard {
			mine = append(mine, c)
		}
	}
	if len(mine) == 0 {
		return NewDiagnostics(p.opts.MaxSkipSamples), nil
	}
	scale := len(run.chunks) / len(mine)
	if scale < 1 {
		scale = 1
	}
	return p.processChunks(ctx, run, mine, len(mine)*scale)
}

// ChunkCount returns the number of chunks a prepared run splits into.
func (p *Processor) ChunkCount(ctx context.Context, projectID, generation string) (int, error) {
	run, err := p.prepare(ctx, projectID, generation)
	if err != nil {
		return 0, err
	}
	return len(run.chunks), nil
}

// processChunks runs chunks with bounded parallelism. total is the chunk
// count progress is measured against.
func (p *Processor) processChunks(ctx context.Context, run *runState, chunks []scenario.Chunk, total int) (*Diagnostics, error) {
	log := p.log.With(zap.String("project_id", run.projectID), zap.String("generation", run.generation))
	diag := NewDiagnostics(p.opts.MaxSkipSamples)
	progress := newProgressReporter(p.store, run.projectID, run.generation, p.opts.ProgressInterval)

	if err := progress.Force(ctx, ProgressAggregateStart); err != nil {
		return nil, err
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, c := range chunks {
		g.Go(func() error {
			if err := p.processChunk(gctx, run, c, diag); err != nil {
				return err
			}
			n := int(done.Add(1))
			return progress.Report(gctx, bandProgress(n*total/len(chunks), total))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(chunks) == total {
		if err := progress.Force(ctx, ProgressAggregateEnd); err != nil {
			return nil, err
		}
	}
	log.Info("scenarios aggregated",
		zap.Int("scenarios", diag.Scenarios),
		zap.Int("chunks", len(chunks)),
		zap.Int("rows", diag.Rows),
		zap.Int("skipped", diag.SkippedTotal()),
		zap.Int("failed_chunks", len(diag.FailedChunks)),
	)
	return diag, nil
}

// processChunk aggregates one chunk and upserts its rows. Skipped scenarios
// are recorded; a chunk whose write keeps failing is recorded and
// contributes no rows. Supersession and cancellation abort the run.
func (p *Processor) processChunk(ctx context.Context, run *runState, c scenario.Chunk, diag *Diagnostics) error {
	log := p.log.With(zap.String("project_id", run.projectID), zap.Int("chunk", c.Index))

	rows := make([]model.IndicatorRow, 0, c.Len())
	for i := c.Start; i < c.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := run.space.At(i)
		if err != nil {
			return err
		}
		row, err := run.agg.Aggregate(s)
		if err != nil {
			sample := diag.Skip(s, err)
			log.Debug("scenario skipped",
				zap.String("reason", sample.Reason),
				zap.Stringer("scenario", s),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, *row)
	}

	if err := p.store.CheckGeneration(ctx, run.projectID, run.generation); err != nil {
		return err
	}

	retry := p.opts.Retry
	retry.OnRetry = resilience.RetryLogger("upsert_chunk", run.projectID)
	written, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (int64, error) {
		return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (int64, error) {
			return p.store.UpsertRows(ctx, rows)
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, store.ErrSuperseded) {
			return err
		}
		log.Error("chunk write failed",
			zap.Int("rows", len(rows)),
			zap.String("class", resilience.Classify(err)),
			zap.Stringer("breaker", p.breaker.State()),
			zap.Error(err),
		)
		diag.ChunkFailed(c.Index, c.Len(), len(rows), err)
		return nil
	}
	diag.ChunkDone(c.Len(), len(rows))
	log.Debug("chunk persisted", zap.Int("rows", len(rows)), zap.Int64("written", written))
	return nil
}

// Finalize is stage 3: compute indicator bounds over every persisted row and
// mark the project Ready.
func (p *Processor) Finalize(ctx context.Context, projectID, generation string, diag *Diagnostics) (model.Bounds, error) {
	log := p.log.With(zap.String("project_id", projectID), zap.String("generation", generation))

	if err := p.store.SetProgress(ctx, projectID, generation, ProgressFinalizing); err != nil {
		return nil, eris.Wrap(err, "pipeline: finalize progress")
	}
	bounds, err := p.store.Bounds(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: compute bounds")
	}
	if err := p.store.Complete(ctx, projectID, generation, bounds); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete project")
	}

	fields := []zap.Field{zap.Int("indicators", len(bounds))}
	if diag != nil {
		fields = append(fields,
			zap.Int("rows", diag.Rows),
			zap.Int("skipped", diag.SkippedTotal()),
			zap.Int("failed_chunks", len(diag.FailedChunks)),
		)
		if len(diag.FailedChunks) > 0 {
			log.Warn("project ready with failed chunks", fields...)
			return bounds, nil
		}
	}
	log.Info("project ready", fields...)
	return bounds, nil
}
