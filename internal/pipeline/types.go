package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("bootstrap pipeline already run")

// RoutingContext carries the URL the shell was opened with. Stages read
// override parameters from it.
type RoutingContext struct {
	URL    string
	Params url.Values
}

// ParseRouting builds a RoutingContext from a raw URL. An empty string gives
// an empty context.
func ParseRouting(raw string) (RoutingContext, error) {
	if raw == "" {
		return RoutingContext{Params: url.Values{}}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return RoutingContext{}, fmt.Errorf("invalid routing url %q: %w", raw, err)
	}
	return RoutingContext{URL: raw, Params: u.Query()}, nil
}

// RunFunc is the body of a stage.
type RunFunc func(ctx context.Context, rc RoutingContext) error

// Stage is one named step of the bootstrap.
type Stage struct {
	Name      string
	DependsOn []string
	// Mandatory stages abort the bootstrap when they fail. Failures of the
	// other stages are logged and the run continues.
	Mandatory bool
	Run       RunFunc
}

// Observer is told about every stage start and finish.
type Observer interface {
	StageStarted(name string, at time.Time)
	StageFinished(name string, at time.Time, err error)
}

// Sink receives the fatal error of a failed bootstrap.
type Sink interface {
	Report(ctx context.Context, err error)
}

// ReadySetter is the single-writer side of the readiness flag.
type ReadySetter interface {
	Set()
}

// Options tunes a Pipeline.
type Options struct {
	Observer Observer
	// Now is the clock used for stage timestamps. Defaults to time.Now.
	Now func() time.Time
}

// State is the lifecycle state of a stage within one run.
type State int32

const (
	Pending State = iota
	Running
	Done
	// Degraded marks a best-effort stage that failed without stopping the run.
	Degraded
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Result is the outcome of one stage.
type Result struct {
	Name      string
	Mandatory bool
	State     State
	Err       error
	Started   time.Time
	Finished  time.Time
}

// BootstrapError is the fatal outcome of a run.
type BootstrapError struct {
	Stage string
	Err   error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap failed at stage %q: %v", e.Stage, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

type stageNode struct {
	stage      Stage
	depCount   atomic.Int32
	state      atomic.Int32
	finishOnce sync.Once
	dependents []*stageNode

	// result fields are written by the goroutine that finishes the node,
	// before wg.Done, and read after wg.Wait.
	err      error
	started  time.Time
	finished time.Time
}

func (n *stageNode) setState(s State) { n.state.Store(int32(s)) }
func (n *stageNode) getState() State  { return State(n.state.Load()) }
