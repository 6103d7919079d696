// Package pipeline runs the three stages of a project run: cache build,
// chunked scenario aggregation and bounds finalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/partial"
	"github.com/sells-group/urban-performance/internal/resilience"
	"github.com/sells-group/urban-performance/internal/store"
)

// CacheBuilder computes a project's partial results. *partial.Builder
// satisfies it.
type CacheBuilder interface {
	Build(ctx context.Context, req partial.Request) (*partial.Cache, error)
}

// MissingLayersError reports base or hazard files absent from a project.
type MissingLayersError struct {
	ProjectID string
	Layers    []model.BaseLayer
}

func (e *MissingLayersError) Error() string {
	names := make([]string, len(e.Layers))
	for i, l := range e.Layers {
		names[i] = string(l)
	}
	return fmt.Sprintf("pipeline: project %s is missing base layers: %s", e.ProjectID, strings.Join(names, ", "))
}

// IsInputError reports whether err is a problem with the submitted project
// files that a retry cannot fix.
func IsInputError(err error) bool {
	var ve *assumptions.ValidationError
	var ml *MissingLayersError
	return errors.As(err, &ve) || errors.As(err, &ml)
}

// Processor runs pipeline stages against a store.
type Processor struct {
	store     store.Store
	builder   CacheBuilder
	catalog   *catalog.Catalog
	constants *model.Constants
	opts      Options
	breaker   *resilience.CircuitBreaker
	log       *zap.Logger
}

// New creates a Processor.
func New(st store.Store, builder CacheBuilder, cat *catalog.Catalog, constants *model.Constants, opts Options) *Processor {
	opts = opts.withDefaults()
	return &Processor{
		store:     st,
		builder:   builder,
		catalog:   cat,
		constants: constants,
		opts:      opts,
		breaker:   resilience.NewCircuitBreaker(opts.Breaker),
		log:       zap.L().With(zap.String("component", "pipeline")),
	}
}

// Report summarises a completed run.
type Report struct {
	ProjectID   string       `json:"project_id"`
	Generation  string       `json:"generation"`
	Diagnostics *Diagnostics `json:"diagnostics"`
	Bounds      model.Bounds `json:"bounds"`
}

// Run starts a new run of projectID and executes every stage in process.
func (p *Processor) Run(ctx context.Context, projectID, name string) (*Report, error) {
	gen, err := p.store.BeginRun(ctx, projectID, name)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: begin run")
	}
	return p.Execute(ctx, projectID, gen)
}

// Execute runs the three stages for an already started generation. A
// failure other than supersession marks the project Error.
func (p *Processor) Execute(ctx context.Context, projectID, generation string) (*Report, error) {
	log := p.log.With(zap.String("project_id", projectID), zap.String("generation", generation))

	report, err := p.execute(ctx, projectID, generation)
	if err != nil {
		if errors.Is(err, store.ErrSuperseded) {
			log.Info("run superseded, stopping")
			return nil, err
		}
		if failErr := p.Fail(context.WithoutCancel(ctx), projectID, generation, err); failErr != nil {
			log.Warn("could not mark project failed", zap.Error(failErr))
		}
		return nil, err
	}
	return report, nil
}

func (p *Processor) execute(ctx context.Context, projectID, generation string) (*Report, error) {
	if err := p.BuildCache(ctx, projectID, generation); err != nil {
		return nil, err
	}
	diag, err := p.Aggregate(ctx, projectID, generation)
	if err != nil {
		return nil, err
	}
	bounds, err := p.Finalize(ctx, projectID, generation, diag)
	if err != nil {
		return nil, err
	}
	return &Report{ProjectID: projectID, Generation: generation, Diagnostics: diag, Bounds: bounds}, nil
}

// Fail marks the run's project Error with err as the reason.
func (p *Processor) Fail(ctx context.Context, projectID, generation string, err error) error {
	p.log.Error("run failed",
		zap.String("project_id", projectID),
		zap.String("generation", generation),
		zap.Error(err),
	)
	if failErr := p.store.Fail(ctx, projectID, generation, err.Error()); failErr != nil {
		return eris.Wrap(failErr, "pipeline: mark failed")
	}
	return nil
}

// BuildCache is stage 1: validate inputs, compute the partial results and
// store them on the project.
func (p *Processor) BuildCache(ctx context.Context, projectID, generation string) error {
	if err := p.store.CheckGeneration(ctx, projectID, generation); err != nil {
		return err
	}
	a, err := assumptions.Load(p.catalog.AssumptionsPath(projectID))
	if err != nil {
		return err
	}
	if missing := p.catalog.MissingBaseLayers(projectID); len(missing) > 0 {
		return &MissingLayersError{ProjectID: projectID, Layers: missing}
	}
	snap, err := p.catalog.Snapshot(projectID)
	if err != nil {
		return eris.Wrap(err, "pipeline: list variants")
	}

	progress := newProgressReporter(p.store, projectID, generation, p.opts.ProgressInterval)
	cache, err := p.builder.Build(ctx, partial.Request{
		ProjectID:   projectID,
		Generation:  generation,
		Assumptions: a,
		Snapshot:    snap,
		Progress:    progress.Force,
	})
	if err != nil {
		return err
	}

	blob, err := cache.Encode()
	if err != nil {
		return err
	}
	if err := p.store.SavePartialResults(ctx, projectID, generation, blob); err != nil {
		return eris.Wrap(err, "pipeline: save partial results")
	}
	p.log.Info("partial results saved",
		zap.String("project_id", projectID),
		zap.Int("bytes", len(blob)),
		zap.Int("entries", cache.Entries()),
	)
	return nil
}
