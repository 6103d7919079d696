package pipeline

import (
	"errors"
	"sort"
	"sync"

	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/scenario"
)

// ReasonError counts rows dropped by an aggregation error that is not a
// recognised skip.
const ReasonError = "error"

// SkipSample is one recorded skipped scenario.
type SkipSample struct {
	Reason   string         `json:"reason"`
	Scenario model.Scenario `json:"scenario"`
	Error    string         `json:"error"`
}

// ChunkFailure records a chunk whose rows could not be persisted.
type ChunkFailure struct {
	Chunk int    `json:"chunk"`
	Rows  int    `json:"rows"`
	Error string `json:"error"`
}

// Diagnostics counts what stage 2 did with every scenario. It is safe for
// concurrent use and survives a JSON round trip between activities.
type Diagnostics struct {
	mu sync.Mutex

	Scenarios    int            `json:"scenarios"`
	Chunks       int            `json:"chunks"`
	Rows         int            `json:"rows"`
	Skipped      map[string]int `json:"skipped,omitempty"`
	Samples      []SkipSample   `json:"samples,omitempty"`
	FailedChunks []ChunkFailure `json:"failed_chunks,omitempty"`

	maxSamples int
}

// NewDiagnostics keeps at most maxSamples skip samples.
func NewDiagnostics(maxSamples int) *Diagnostics {
	return &Diagnostics{Skipped: map[string]int{}, maxSamples: maxSamples}
}

// Skip records a dropped scenario.
func (d *Diagnostics) Skip(s model.Scenario, err error) SkipSample {
	sample := SkipSample{Reason: ReasonError, Scenario: s, Error: err.Error()}
	var skip *scenario.SkipError
	if errors.As(err, &skip) {
		sample.Reason = skip.Reason
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Skipped == nil {
		d.Skipped = map[string]int{}
	}
	d.Skipped[sample.Reason]++
	if len(d.Samples) < d.maxSamples {
		d.Samples = append(d.Samples, sample)
	}
	return sample
}

// ChunkDone records a chunk persisted with rows rows.
func (d *Diagnostics) ChunkDone(scenarios, rows int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Chunks++
	d.Scenarios += scenarios
	d.Rows += rows
}

// ChunkFailed records a chunk that contributed no rows.
func (d *Diagnostics) ChunkFailed(chunk, scenarios, rows int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Chunks++
	d.Scenarios += scenarios
	d.FailedChunks = append(d.FailedChunks, ChunkFailure{Chunk: chunk, Rows: rows, Error: err.Error()})
}

// SkippedTotal returns the number of dropped scenarios.
func (d *Diagnostics) SkippedTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.Skipped {
		n += c
	}
	return n
}

// Merge folds other into d, keeping d's sample limit.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Scenarios += other.Scenarios
	d.Chunks += other.Chunks
	d.Rows += other.Rows
	if d.Skipped == nil {
		d.Skipped = map[string]int{}
	}
	for reason, n := range other.Skipped {
		d.Skipped[reason] += n
	}
	for _, s := range other.Samples {
		if len(d.Samples) >= d.maxSamples {
			break
		}
		d.Samples = append(d.Samples, s)
	}
	d.FailedChunks = append(d.FailedChunks, other.FailedChunks...)
	sort.Slice(d.FailedChunks, func(i, j int) bool { return d.FailedChunks[i].Chunk < d.FailedChunks[j].Chunk })
}
