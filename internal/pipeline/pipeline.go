package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/dag"
)

// Pipeline executes a validated set of stages once.
type Pipeline struct {
	flag     ReadySetter
	sink     Sink
	observer Observer
	now      func() time.Time

	nodes map[string]*stageNode
	order []string

	ran atomic.Bool
	wg  sync.WaitGroup

	failMu    sync.Mutex
	rootCause *BootstrapError
}

// New validates stages and returns a pipeline ready to run. Duplicate names,
// unknown dependencies, self edges and cycles are rejected here.
func New(flag ReadySetter, sink Sink, stages []Stage, opts Options) (*Pipeline, error) {
	g := dag.New()
	nodes := make(map[string]*stageNode, len(stages))
	for _, s := range stages {
		if s.Name == "" {
			return nil, errors.New("stage with empty name")
		}
		if s.Run == nil {
			return nil, fmt.Errorf("stage %q has no run function", s.Name)
		}
		if _, dup := nodes[s.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name)
		}
		g.AddNode(s.Name)
		nodes[s.Name] = &stageNode{stage: s}
	}

	for _, s := range stages {
		for _, dep := range s.DependsOn {
			if !g.Has(dep) {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", s.Name, dep)
			}
			if err := g.AddEdge(dep, s.Name); err != nil {
				return nil, fmt.Errorf("stage %q: %w", s.Name, err)
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating stage graph: %w", err)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	for _, name := range order {
		n := nodes[name]
		deps, _ := g.Dependencies(name)
		n.depCount.Store(int32(len(deps)))
		dependents, _ := g.Dependents(name)
		for _, d := range dependents {
			n.dependents = append(n.dependents, nodes[d])
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		flag:     flag,
		sink:     sink,
		observer: opts.Observer,
		now:      now,
		nodes:    nodes,
		order:    order,
	}, nil
}

// Order returns the stage names in a valid start order.
func (p *Pipeline) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Run executes every stage. It returns nil and sets the readiness flag when
// all mandatory stages succeeded. On a mandatory failure the remaining
// stages are skipped, the error is handed to the sink and returned as a
// *BootstrapError. A second call returns ErrAlreadyRun.
func (p *Pipeline) Run(ctx context.Context, rc RoutingContext) error {
	if !p.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *stageNode, len(p.nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.wg.Add(len(p.nodes))
	for _, name := range p.order {
		if n := p.nodes[name]; n.depCount.Load() == 0 {
			logger.Debug("Found root stage.", "stage", name)
			readyChan <- n
		}
	}

	workers := len(p.nodes)
	logger.Info("🚀 Starting bootstrap.", "stages", len(p.nodes))
	for i := 0; i < workers; i++ {
		go p.worker(runCtx, readyChan, cancel, rc)
	}

	p.wg.Wait()
	close(readyChan)

	if p.rootCause != nil {
		logger.Error("❌ Bootstrap failed.", "stage", p.rootCause.Stage, "error", p.rootCause.Err)
		if p.sink != nil {
			p.sink.Report(ctx, p.rootCause)
		}
		return p.rootCause
	}
	if err := ctx.Err(); err != nil {
		logger.Warn("Bootstrap interrupted.", "error", err)
		return fmt.Errorf("bootstrap interrupted: %w", err)
	}

	if p.flag != nil {
		p.flag.Set()
	}
	logger.Info("🏁 Bootstrap finished.")
	return nil
}

// Results returns the per-stage outcomes in start order. It is meaningful
// once Run returned.
func (p *Pipeline) Results() []Result {
	out := make([]Result, 0, len(p.order))
	for _, name := range p.order {
		n := p.nodes[name]
		out = append(out, Result{
			Name:      name,
			Mandatory: n.stage.Mandatory,
			State:     n.getState(),
			Err:       n.err,
			Started:   n.started,
			Finished:  n.finished,
		})
	}
	return out
}

func (p *Pipeline) worker(ctx context.Context, readyChan chan *stageNode, cancel context.CancelFunc, rc RoutingContext) {
	for n := range readyChan {
		logger := ctxlog.FromContext(ctx).With("stage", n.stage.Name)

		if ctx.Err() != nil {
			n.finishOnce.Do(func() {
				logger.Warn("Context canceled, skipping stage.")
				n.setState(Skipped)
				n.err = ctx.Err()
				p.wg.Done()
			})
			p.skipDependents(ctx, n)
			continue
		}

		n.setState(Running)
		n.started = p.now()
		if p.observer != nil {
			p.observer.StageStarted(n.stage.Name, n.started)
		}
		logger.Info("▶️ Starting stage", "mandatory", n.stage.Mandatory)

		err := p.runStage(ctxlog.WithLogger(ctx, logger), n, rc)
		finished := p.now()
		if p.observer != nil {
			p.observer.StageFinished(n.stage.Name, finished, err)
		}

		var fatal bool
		if err != nil {
			var kindErr *booterr.Error
			fatal = n.stage.Mandatory || (errors.As(err, &kindErr) && kindErr.Kind == booterr.Internal)
		}

		switch {
		case err == nil:
			n.finishOnce.Do(func() {
				n.setState(Done)
				n.finished = finished
			})
			logger.Info("✅ Finished stage", "elapsed", finished.Sub(n.started))
		case !fatal:
			if _, classified := booterr.KindOf(err); !classified {
				err = booterr.New(booterr.Stage, "stage."+n.stage.Name, "", err)
			}
			n.finishOnce.Do(func() {
				n.setState(Degraded)
				n.err = err
				n.finished = finished
			})
			logger.Warn("⚠️ Optional stage failed, continuing.", "error", err)
		default:
			n.finishOnce.Do(func() {
				n.setState(Failed)
				n.err = err
				n.finished = finished
			})
			logger.Error("Stage failed.", "error", err)
			p.recordFailure(n.stage.Name, err)
			cancel()
			p.skipDependents(ctx, n)
			p.wg.Done()
			continue
		}

		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				logger.Debug("Unlocking dependent stage.", "dependent", dependent.stage.Name)
				readyChan <- dependent
			}
		}
		p.wg.Done()
	}
}

// runStage executes the stage body, converting a panic into an Internal
// error.
func (p *Pipeline) runStage(ctx context.Context, n *stageNode, rc RoutingContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = booterr.New(booterr.Internal, "stage."+n.stage.Name, "", fmt.Errorf("panic: %v", r))
		}
	}()
	return n.stage.Run(ctx, rc)
}

// skipDependents marks every downstream stage of n as skipped and counts it
// off the wait group.
func (p *Pipeline) skipDependents(ctx context.Context, n *stageNode) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		dependent.finishOnce.Do(func() {
			logger.Warn("Skipping stage due to upstream failure.", "stage", dependent.stage.Name, "dependency", n.stage.Name)
			dependent.setState(Skipped)
			dependent.err = fmt.Errorf("skipped due to upstream failure of %q", n.stage.Name)
			p.wg.Done()
			p.skipDependents(ctx, dependent)
		})
	}
}

func (p *Pipeline) recordFailure(stage string, err error) {
	p.failMu.Lock()
	defer p.failMu.Unlock()
	if p.rootCause == nil {
		p.rootCause = &BootstrapError{Stage: stage, Err: err}
	}
}
