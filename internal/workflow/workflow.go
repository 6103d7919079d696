package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/pipeline"
)

// WorkflowName is the registered name of ProcessProject.
const WorkflowName = "ProcessProject"

// Result is what a successful ProcessProject returns.
type Result struct {
	ProjectID   string                `json:"project_id"`
	Generation  string                `json:"generation"`
	Chunks      int                   `json:"chunks"`
	Diagnostics *pipeline.Diagnostics `json:"diagnostics"`
	Bounds      model.Bounds          `json:"bounds"`
}

func workflowRegisterOptions() workflow.RegisterOptions {
	return workflow.RegisterOptions{Name: WorkflowName}
}

var retryPolicy = &temporal.RetryPolicy{
	InitialInterval:        time.Second,
	BackoffCoefficient:     2,
	MaximumInterval:        time.Minute,
	MaximumAttempts:        3,
	NonRetryableErrorTypes: []string{ErrTypeInput, ErrTypeSuperseded},
}

func activityContext(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         retryPolicy,
	})
}

// ProcessProject runs cache build, every stage-2 shard and finalization in
// order. Finalization starts only after every shard has returned.
func ProcessProject(ctx workflow.Context, in RunInput) (*Result, error) {
	log := workflow.GetLogger(ctx)
	log.Info("processing project", "project_id", in.ProjectID, "generation", in.Generation)

	result, err := processProject(ctx, in)
	if err == nil {
		return result, nil
	}

	reason := err.Error()
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if appErr.Type() == ErrTypeSuperseded {
			log.Info("run superseded", "project_id", in.ProjectID)
			return nil, err
		}
		reason = appErr.Message()
	}

	var acts *Activities
	dctx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()
	failErr := workflow.ExecuteActivity(activityContext(dctx, time.Minute), acts.MarkFailed, FailInput{
		ProjectID:  in.ProjectID,
		Generation: in.Generation,
		Reason:     reason,
	}).Get(dctx, nil)
	if failErr != nil {
		log.Warn("could not mark project failed", "project_id", in.ProjectID, "error", failErr)
	}
	return nil, err
}

func processProject(ctx workflow.Context, in RunInput) (*Result, error) {
	var acts *Activities

	if err := workflow.ExecuteActivity(activityContext(ctx, 2*time.Hour), acts.BuildCache, in).Get(ctx, nil); err != nil {
		return nil, err
	}

	var chunks int
	if err := workflow.ExecuteActivity(activityContext(ctx, 5*time.Minute), acts.CountChunks, in).Get(ctx, &chunks); err != nil {
		return nil, err
	}

	shards := in.Shards
	if shards < 1 {
		shards = 1
	}
	if shards > chunks {
		shards = chunks
	}

	sctx := activityContext(ctx, 2*time.Hour)
	futures := make([]workflow.Future, shards)
	for i := range futures {
		futures[i] = workflow.ExecuteActivity(sctx, acts.ProcessShard, ShardInput{
			ProjectID:  in.ProjectID,
			Generation: in.Generation,
			Shard:      i,
			Shards:     shards,
		})
	}

	diag := pipeline.NewDiagnostics(50)
	var firstErr error
	for _, f := range futures {
		var d pipeline.Diagnostics
		if err := f.Get(ctx, &d); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		diag.Merge(&d)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var bounds model.Bounds
	err := workflow.ExecuteActivity(activityContext(ctx, 30*time.Minute), acts.Finalize, FinalizeInput{
		ProjectID:   in.ProjectID,
		Generation:  in.Generation,
		Diagnostics: diag,
	}).Get(ctx, &bounds)
	if err != nil {
		return nil, err
	}

	return &Result{
		ProjectID:   in.ProjectID,
		Generation:  in.Generation,
		Chunks:      chunks,
		Diagnostics: diag,
		Bounds:      bounds,
	}, nil
}
