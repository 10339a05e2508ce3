package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/specialistvlad/avgboot/internal/ipc"
	"github.com/specialistvlad/avgboot/internal/pipeline"
)

// Run starts the local servers and executes the bootstrap pipeline once. It
// returns when the pipeline finished; the servers keep running until Close.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "run_id", a.runID, "base_dir", a.config.BaseDir)

	if err := a.startServers(ctx); err != nil {
		return err
	}
	a.openHistory(ctx)

	routing, err := pipeline.ParseRouting(a.config.Route)
	if err != nil {
		return fmt.Errorf("invalid route: %w", err)
	}

	p, err := pipeline.New(&a.flag, a.reporter, a.stages(), pipeline.Options{Observer: a})
	if err != nil {
		// the stage wiring is code, not configuration
		panic(fmt.Errorf("invalid bootstrap wiring: %w", err))
	}
	a.mu.Lock()
	a.pipeline = p
	a.mu.Unlock()

	a.logger.Info("🚀 Starting bootstrap...", "stages", len(p.Order()))
	started := time.Now()
	runErr := p.Run(ctx, routing)
	a.recordHistory(ctx, started, runErr)

	if runErr != nil {
		return fmt.Errorf("bootstrap failed: %w", runErr)
	}

	_ = a.hub.Broadcast(ipc.TypeReady, map[string]string{"runId": a.runID, "route": a.config.Route})
	a.mu.Lock()
	pg := a.playground
	a.mu.Unlock()
	if pg != nil {
		pg.AnnounceReady(a.runID)
	}
	a.logger.Info("🏁 Bootstrap finished.", "elapsed", time.Since(started))
	return nil
}

// Wait blocks until ctx is done, keeping the shell's servers up.
func (a *App) Wait(ctx context.Context) {
	<-ctx.Done()
}

// Close releases everything Run started.
func (a *App) Close(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	pg := a.playground
	a.playground = nil
	a.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if pg != nil {
		pg.Close()
	}
	a.hub.Close()

	var errs []error
	if err := a.closeServers(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n, ok := a.fs.(*fsys.Native); ok {
		n.CloseIdleConnections()
	}
	a.logger.Debug("App closed.")
	return errors.Join(errs...)
}
