package preload

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
)

// FileResult describes one successfully loaded file.
type FileResult struct {
	File    string
	Batch   string
	Size    int64
	Digest  digest.Digest
	Format  string
	Elapsed time.Duration
}

// Failure records a file that could not be fetched or decoded.
type Failure struct {
	File  string
	Batch string
	Cause error
}

// BatchOutcome summarizes one finished batch.
type BatchOutcome struct {
	Label     string
	Mandatory bool
	Attempted int
	Loaded    int
	Failed    int
	Started   time.Time
	Finished  time.Time
}

// Report accumulates the outcome of a plan run. Workers append to it
// concurrently; readers get copies.
type Report struct {
	mu       sync.Mutex
	batches  []BatchOutcome
	loaded   []FileResult
	failures []Failure
}

func newReport() *Report { return &Report{} }

func (r *Report) addLoaded(res FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, res)
}

func (r *Report) addFailure(f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *Report) addBatch(b BatchOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
}

// Batches returns the outcomes of the batches that ran, in plan order.
func (r *Report) Batches() []BatchOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BatchOutcome(nil), r.batches...)
}

// Loaded returns every successfully loaded file.
func (r *Report) Loaded() []FileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FileResult(nil), r.loaded...)
}

// Failures returns every failed file.
func (r *Report) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure(nil), r.failures...)
}

// TotalBytes sums the size of every loaded file.
func (r *Report) TotalBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.loaded {
		n += l.Size
	}
	return n
}

// PlanError is the cause of an aborted plan: a mandatory batch had failures.
type PlanError struct {
	Batch    string
	Failures []Failure
}

func (e *PlanError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mandatory batch %q had %d failed file(s)", e.Batch, len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "; %s: %v", f.File, f.Cause)
	}
	return sb.String()
}

// Unwrap exposes every file cause to errors.Is and errors.As.
func (e *PlanError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Cause)
	}
	return errs
}
