package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/urban-performance/internal/store"
)

// bandProgress maps done of total chunks onto the aggregation band.
func bandProgress(done, total int) int {
	if total <= 0 || done >= total {
		return ProgressAggregateEnd
	}
	return ProgressAggregateStart + (ProgressAggregateEnd-ProgressAggregateStart)*done/total
}

// progressReporter throttles progress writes for one run. Values that do not
// exceed the last written one are dropped.
type progressReporter struct {
	w          store.ProgressWriter
	projectID  string
	generation string
	limiter    *rate.Limiter
	log        *zap.Logger

	mu   sync.Mutex
	last int
}

func newProgressReporter(w store.ProgressWriter, projectID, generation string, interval time.Duration) *progressReporter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &progressReporter{
		w:          w,
		projectID:  projectID,
		generation: generation,
		limiter:    rate.NewLimiter(limit, 1),
		log: zap.L().With(
			zap.String("component", "pipeline.progress"),
			zap.String("project_id", projectID),
		),
		last: -1,
	}
}

// Report writes percent if the rate limit allows it.
func (r *progressReporter) Report(ctx context.Context, percent int) error {
	return r.write(ctx, percent, false)
}

// Force writes percent regardless of the rate limit.
func (r *progressReporter) Force(ctx context.Context, percent int) error {
	return r.write(ctx, percent, true)
}

func (r *progressReporter) write(ctx context.Context, percent int, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if percent <= r.last {
		return nil
	}
	if !force && !r.limiter.Allow() {
		return nil
	}
	if err := r.w.SetProgress(ctx, r.projectID, r.generation, percent); err != nil {
		if errors.Is(err, store.ErrSuperseded) || errors.Is(err, store.ErrNotFound) {
			return err
		}
		// Progress is advisory; a failed write is retried by the next tick.
		r.log.Warn("progress write failed", zap.Int("progress", percent), zap.Error(err))
		return nil
	}
	r.last = percent
	return nil
}
