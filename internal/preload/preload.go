// Package preload turns a preload plan into a show, load, hide sequence on
// the loading screen. Batches run strictly one after another; the files of
// a batch are fetched concurrently.
package preload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers     = 8
	DefaultFileTimeout = 30 * time.Second
)

// Batch is a labeled group of files loaded together.
type Batch struct {
	Label     string
	Files     []string
	Mandatory bool
}

// Plan is the ordered list of batches.
type Plan []Batch

// FileCount returns the number of files across all batches.
func (p Plan) FileCount() int {
	n := 0
	for _, b := range p {
		n += len(b.Files)
	}
	return n
}

// Screen is the loading UI the batcher drives.
type Screen interface {
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	SetTip(ctx context.Context, label string) error
}

// FetchFunc reads one file. fsys.FileSystem.ReadFile satisfies it.
type FetchFunc func(ctx context.Context, name string) ([]byte, error)

// Options tunes a Batcher. Zero values select the defaults.
type Options struct {
	Workers     int
	FileTimeout time.Duration
	// Decode validates fetched bytes. Defaults to Decode; set SkipDecode to
	// accept raw bytes.
	Decode     DecodeFunc
	SkipDecode bool
}

// Batcher runs plans against a Screen.
type Batcher struct {
	screen  Screen
	fetch   FetchFunc
	workers int
	timeout time.Duration
	decode  DecodeFunc

	mu      sync.Mutex
	visible bool
}

// New creates a batcher.
func New(screen Screen, fetch FetchFunc, opts Options) *Batcher {
	b := &Batcher{
		screen:  screen,
		fetch:   fetch,
		workers: opts.Workers,
		timeout: opts.FileTimeout,
		decode:  opts.Decode,
	}
	if b.workers <= 0 {
		b.workers = DefaultWorkers
	}
	if b.timeout <= 0 {
		b.timeout = DefaultFileTimeout
	}
	if b.decode == nil {
		b.decode = Decode
	}
	if opts.SkipDecode {
		b.decode = nil
	}
	return b
}

// Show makes the loading UI visible. Showing a visible UI is a no-op.
func (b *Batcher) Show(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.visible {
		return nil
	}
	if err := b.screen.Show(ctx); err != nil {
		return booterr.New(booterr.PreloadUI, "preload.show", "", err)
	}
	b.visible = true
	return nil
}

// Hide hides the loading UI. Hiding a hidden UI is a no-op.
func (b *Batcher) Hide(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.visible {
		return nil
	}
	if err := b.screen.Hide(ctx); err != nil {
		return booterr.New(booterr.PreloadUI, "preload.hide", "", err)
	}
	b.visible = false
	return nil
}

// Visible reports whether the loading UI is currently shown.
func (b *Batcher) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// Sync shows the UI, runs the plan and hides the UI again. Hide is attempted
// exactly once, also when the plan fails.
func (b *Batcher) Sync(ctx context.Context, plan Plan) (*Report, error) {
	if err := b.Show(ctx); err != nil {
		return newReport(), err
	}
	report, planErr := b.RunPlan(ctx, plan)
	// a canceled plan context must not prevent hiding
	hideErr := b.Hide(context.WithoutCancel(ctx))
	if planErr != nil {
		if hideErr != nil {
			ctxlog.FromContext(ctx).Warn("Failed to hide the loading UI after the plan failed.", "error", hideErr)
		}
		return report, planErr
	}
	return report, hideErr
}

// RunPlan loads every batch in order. A batch finishes when each of its
// files was attempted. Failures in best-effort batches are recorded and the
// plan continues; a failure in a mandatory batch stops the plan once that
// batch drained.
func (b *Batcher) RunPlan(ctx context.Context, plan Plan) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := newReport()
	logger.Info("📦 Preloading assets.", "batches", len(plan), "files", plan.FileCount(), "workers", b.workers)

	for i, batch := range plan {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("preload interrupted before batch %q: %w", batch.Label, err)
		}
		batchLogger := logger.With("batch", batch.Label, "index", i)

		if err := b.screen.SetTip(ctx, batch.Label); err != nil {
			return report, booterr.New(booterr.PreloadUI, "preload.tip", "", err)
		}

		outcome, failures := b.runBatch(ctxlog.WithLogger(ctx, batchLogger), batch, report)
		report.addBatch(outcome)
		batchLogger.Debug("Batch finished.", "loaded", outcome.Loaded, "failed", outcome.Failed,
			"elapsed", outcome.Finished.Sub(outcome.Started))

		if len(failures) > 0 && batch.Mandatory {
			batchLogger.Error("Mandatory batch failed.", "failed", len(failures))
			return report, booterr.New(booterr.PreloadFile, "preload.batch", failures[0].File,
				&PlanError{Batch: batch.Label, Failures: failures})
		}
		for _, f := range failures {
			batchLogger.Warn("Optional asset failed to load.", "file", f.File, "error", f.Cause)
		}
	}

	logger.Info("✅ Preload finished.",
		"loaded", len(report.Loaded()),
		"failed", len(report.Failures()),
		"size", humanize.Bytes(uint64(report.TotalBytes())),
	)
	return report, nil
}

func (b *Batcher) runBatch(ctx context.Context, batch Batch, report *Report) (BatchOutcome, []Failure) {
	outcome := BatchOutcome{
		Label:     batch.Label,
		Mandatory: batch.Mandatory,
		Attempted: len(batch.Files),
		Started:   time.Now(),
	}

	var (
		mu       sync.Mutex
		failures []Failure
	)
	var g errgroup.Group
	g.SetLimit(b.workers)
	for _, file := range batch.Files {
		g.Go(func() error {
			res, err := b.load(ctx, batch.Label, file)
			if err != nil {
				f := Failure{File: file, Batch: batch.Label, Cause: err}
				report.addFailure(f)
				mu.Lock()
				failures = append(failures, f)
				mu.Unlock()
				return nil
			}
			report.addLoaded(res)
			return nil
		})
	}
	_ = g.Wait()

	outcome.Finished = time.Now()
	outcome.Failed = len(failures)
	outcome.Loaded = outcome.Attempted - outcome.Failed
	return outcome, failures
}

func (b *Batcher) load(ctx context.Context, batchLabel, file string) (FileResult, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	fctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	data, err := b.fetch(fctx, file)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return FileResult{}, fmt.Errorf("timed out after %s: %w", b.timeout, err)
		}
		return FileResult{}, err
	}

	format := "raw"
	if b.decode != nil {
		if format, err = b.decode(file, data); err != nil {
			return FileResult{}, fmt.Errorf("decode: %w", err)
		}
	}

	res := FileResult{
		File:    file,
		Batch:   batchLabel,
		Size:    int64(len(data)),
		Digest:  digest.FromBytes(data),
		Format:  format,
		Elapsed: time.Since(start),
	}
	logger.Debug("Asset loaded.", "file", file, "format", format, "size", humanize.Bytes(uint64(res.Size)), "digest", res.Digest)
	return res, nil
}
