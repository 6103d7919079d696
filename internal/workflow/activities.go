// Package workflow runs the project pipeline on Temporal: stage 1 and stage
// 3 as single activities, stage 2 as parallel shard activities joined
// before finalization.
package workflow

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/pipeline"
	"github.com/sells-group/urban-performance/internal/store"
)

// Non-retryable application error types.
const (
	ErrTypeInput      = "InputError"
	ErrTypeSuperseded = "Superseded"
)

// RunInput identifies one run of a project.
type RunInput struct {
	ProjectID  string `json:"project_id"`
	Generation string `json:"generation"`
	Shards     int    `json:"shards"`
}

// ShardInput selects one stage-2 shard.
type ShardInput struct {
	ProjectID  string `json:"project_id"`
	Generation string `json:"generation"`
	Shard      int    `json:"shard"`
	Shards     int    `json:"shards"`
}

// FinalizeInput carries the merged stage-2 diagnostics into stage 3.
type FinalizeInput struct {
	ProjectID   string                `json:"project_id"`
	Generation  string                `json:"generation"`
	Diagnostics *pipeline.Diagnostics `json:"diagnostics"`
}

// FailInput marks a run failed.
type FailInput struct {
	ProjectID  string `json:"project_id"`
	Generation string `json:"generation"`
	Reason     string `json:"reason"`
}

// Stages is the part of *pipeline.Processor the activities drive.
type Stages interface {
	BuildCache(ctx context.Context, projectID, generation string) error
	ChunkCount(ctx context.Context, projectID, generation string) (int, error)
	ProcessShard(ctx context.Context, projectID, generation string, shard, shards int) (*pipeline.Diagnostics, error)
	Finalize(ctx context.Context, projectID, generation string, diag *pipeline.Diagnostics) (model.Bounds, error)
	Fail(ctx context.Context, projectID, generation string, err error) error
}

// Activities hosts the pipeline stages as Temporal activities.
type Activities struct {
	stages Stages
}

// NewActivities wraps a pipeline processor.
func NewActivities(stages Stages) *Activities {
	return &Activities{stages: stages}
}

func (a *Activities) logger(ctx context.Context, projectID string) *zap.Logger {
	info := activity.GetInfo(ctx)
	return zap.L().With(
		zap.String("component", "workflow.activity"),
		zap.String("activity", info.ActivityType.Name),
		zap.Int32("attempt", info.Attempt),
		zap.String("project_id", projectID),
	)
}

// classify turns errors no retry can fix into non-retryable application
// errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrSuperseded):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSuperseded, err)
	case pipeline.IsInputError(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInput, err)
	default:
		return err
	}
}

// BuildCache runs stage 1.
func (a *Activities) BuildCache(ctx context.Context, in RunInput) error {
	a.logger(ctx, in.ProjectID).Info("building partial results")
	return classify(a.stages.BuildCache(ctx, in.ProjectID, in.Generation))
}

// CountChunks returns the number of stage-2 chunks of the run.
func (a *Activities) CountChunks(ctx context.Context, in RunInput) (int, error) {
	n, err := a.stages.ChunkCount(ctx, in.ProjectID, in.Generation)
	return n, classify(err)
}

// ProcessShard runs one stage-2 shard.
func (a *Activities) ProcessShard(ctx context.Context, in ShardInput) (*pipeline.Diagnostics, error) {
	log := a.logger(ctx, in.ProjectID).With(zap.Int("shard", in.Shard), zap.Int("shards", in.Shards))
	diag, err := a.stages.ProcessShard(ctx, in.ProjectID, in.Generation, in.Shard, in.Shards)
	if err != nil {
		log.Warn("shard failed", zap.Error(err))
		return nil, classify(err)
	}
	log.Info("shard done", zap.Int("rows", diag.Rows), zap.Int("skipped", diag.SkippedTotal()))
	return diag, nil
}

// Finalize runs stage 3.
func (a *Activities) Finalize(ctx context.Context, in FinalizeInput) (model.Bounds, error) {
	bounds, err := a.stages.Finalize(ctx, in.ProjectID, in.Generation, in.Diagnostics)
	return bounds, classify(err)
}

// MarkFailed records a run failure on the project.
func (a *Activities) MarkFailed(ctx context.Context, in FailInput) error {
	err := a.stages.Fail(ctx, in.ProjectID, in.Generation, errors.New(in.Reason))
	if errors.Is(err, store.ErrSuperseded) {
		return nil
	}
	return err
}
