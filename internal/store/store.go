// Package store persists projects, their partial results and scenario rows
// in Postgres or SQLite.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/urban-performance/internal/model"
)

// ErrSuperseded reports a write for a run generation that no longer owns the
// project.
var ErrSuperseded = errors.New("store: run superseded by a newer generation")

// ErrNotFound reports a missing project.
var ErrNotFound = errors.New("store: project not found")

// ProjectStore holds project lifecycle state. Writes taking a generation
// apply only while that generation is current.
type ProjectStore interface {
	// BeginRun creates or resets the project for a new run, clearing its
	// scenario rows, and returns the run's generation.
	BeginRun(ctx context.Context, projectID, name string) (string, error)
	CheckGeneration(ctx context.Context, projectID, generation string) error
	// SetProgress never lowers the stored progress.
	SetProgress(ctx context.Context, projectID, generation string, progress int) error
	SavePartialResults(ctx context.Context, projectID, generation string, blob []byte) error
	PartialResults(ctx context.Context, projectID, generation string) ([]byte, error)
	Complete(ctx context.Context, projectID, generation string, bounds model.Bounds) error
	Fail(ctx context.Context, projectID, generation, reason string) error
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
}

// ResultStore holds scenario indicator rows.
type ResultStore interface {
	// UpsertRows inserts rows, overwriting every indicator of rows whose
	// project and scenario already exist.
	UpsertRows(ctx context.Context, rows []model.IndicatorRow) (int64, error)
	// Bounds returns the min and max of every indicator column. A project
	// without rows yields empty bounds.
	Bounds(ctx context.Context, projectID string) (model.Bounds, error)
	CountRows(ctx context.Context, projectID string) (int, error)
	// EachRow streams a project's rows in scenario order.
	EachRow(ctx context.Context, projectID string, fn func(model.IndicatorRow) error) error
	DeleteRows(ctx context.Context, projectID string) (int64, error)
}

// Store is the full persistence interface.
type Store interface {
	ProjectStore
	ResultStore

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// ProgressWriter is the part of ProjectStore progress reporting needs.
type ProgressWriter interface {
	SetProgress(ctx context.Context, projectID, generation string, progress int) error
}
