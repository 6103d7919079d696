package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/config"
	"github.com/sells-group/urban-performance/internal/store"
)

// WorkflowID returns the Temporal workflow id of a project. One run per
// project is live at a time.
func WorkflowID(projectID string) string {
	return "project-" + projectID
}

// Dial connects a Temporal client logging through zap.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    NewZapAdapter(zap.L().With(zap.String("component", "temporal"))),
	})
	if err != nil {
		return nil, eris.Wrap(err, "workflow: dial temporal")
	}
	return c, nil
}

// Submission describes a started run.
type Submission struct {
	ProjectID  string `json:"project_id"`
	Generation string `json:"generation"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// Dispatcher starts project runs on Temporal.
type Dispatcher struct {
	client    client.Client
	projects  store.ProjectStore
	taskQueue string
	shards    int
	log       *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(c client.Client, projects store.ProjectStore, cfg config.TemporalConfig) *Dispatcher {
	return &Dispatcher{
		client:    c,
		projects:  projects,
		taskQueue: cfg.TaskQueue,
		shards:    cfg.Shards,
		log:       zap.L().With(zap.String("component", "workflow.dispatcher")),
	}
}

// Submit begins a new generation of projectID and starts its workflow. The
// project row exists before the workflow does, and a workflow still running
// for an older generation is terminated.
func (d *Dispatcher) Submit(ctx context.Context, projectID, name string) (*Submission, error) {
	gen, err := d.projects.BeginRun(ctx, projectID, name)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: begin run")
	}

	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       WorkflowID(projectID),
		TaskQueue:                d.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, WorkflowName, RunInput{ProjectID: projectID, Generation: gen, Shards: d.shards})
	if err != nil {
		if failErr := d.projects.Fail(ctx, projectID, gen, "could not start workflow: "+err.Error()); failErr != nil {
			d.log.Warn("could not mark project failed", zap.String("project_id", projectID), zap.Error(failErr))
		}
		return nil, eris.Wrapf(err, "workflow: start %s", projectID)
	}

	d.log.Info("run submitted",
		zap.String("project_id", projectID),
		zap.String("generation", gen),
		zap.String("run_id", run.GetRunID()),
	)
	return &Submission{
		ProjectID:  projectID,
		Generation: gen,
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	}, nil
}

// NewWorker creates a worker hosting ProcessProject and its activities.
// concurrency bounds the shard activities run at once.
func NewWorker(c client.Client, taskQueue string, acts *Activities, concurrency int) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: concurrency,
	})
	w.RegisterWorkflowWithOptions(ProcessProject, workflowRegisterOptions())
	w.RegisterActivity(acts)
	return w
}
