package app

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/pipeline"
	"github.com/specialistvlad/avgboot/internal/store"
)

// openHistory opens the boot history store when one is configured. A store
// that cannot be opened is logged and ignored; history is diagnostics only.
func (a *App) openHistory(ctx context.Context) {
	if a.config.HistoryDB == "" {
		return
	}
	s, err := store.New(ctx, a.config.HistoryDB)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Boot history disabled.", "path", a.config.HistoryDB, "error", err)
		return
	}
	a.history = s
}

// recordHistory persists the finished run.
func (a *App) recordHistory(ctx context.Context, started time.Time, runErr error) {
	if a.history == nil {
		return
	}

	run := &store.BootRun{
		ID:         a.runID,
		BaseDir:    a.config.BaseDir,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Outcome:    store.OutcomeReady,
	}
	var bootErr *pipeline.BootstrapError
	switch {
	case errors.As(runErr, &bootErr):
		run.Outcome = store.OutcomeFailed
		rec := booterr.Normalize(bootErr.Err)
		rec.Data["stage"] = bootErr.Stage
		run.Fatal = &rec
	case runErr != nil:
		run.Outcome = store.OutcomeInterrupted
	}

	for _, r := range a.Results() {
		st := store.StageRecord{
			Name:       r.Name,
			State:      r.State.String(),
			StartedAt:  r.Started,
			FinishedAt: r.Finished,
		}
		if r.Err != nil {
			st.Error = r.Err.Error()
		}
		run.Stages = append(run.Stages, st)
	}
	if report := a.PreloadReport(); report != nil {
		for _, f := range report.Failures() {
			run.Failures = append(run.Failures, store.PreloadFailure{Batch: f.Batch, File: f.File, Cause: f.Cause.Error()})
		}
	}

	if err := a.history.RecordRun(ctx, run); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record boot history.", "error", err)
		return
	}
	ctxlog.FromContext(ctx).Debug("Boot run recorded.", "run_id", run.ID, "outcome", run.Outcome)
}

// History returns the recent runs, newest first. It returns nil when no
// history store is configured.
func (a *App) History(ctx context.Context, limit int) ([]*store.BootRun, error) {
	if a.history == nil {
		return nil, nil
	}
	return a.history.RecentRuns(ctx, limit)
}
