package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// startServers starts the health check server and the IPC server. Either is
// skipped when its port is 0. Both serve the full handler so a frontend can
// use whichever it was given.
func (a *App) startServers(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	start := func(name string, port int) (*http.Server, error) {
		if port <= 0 {
			logger.Debug("Server not started: disabled", "server", name)
			return nil, nil
		}
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return nil, fmt.Errorf("failed to listen for %s server: %w", name, err)
		}
		srv := &http.Server{Handler: a.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("🩺 Server starting", "server", name, "address", "http://"+ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server failed unexpectedly", "server", name, "error", err)
			}
		}()
		return srv, nil
	}

	var err error
	if a.httpServer, err = start("healthcheck", a.config.HealthcheckPort); err != nil {
		return err
	}
	if a.ipcServer, err = start("ipc", a.config.IPCPort); err != nil {
		return err
	}
	return nil
}

func (a *App) closeServers(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var errs []error
	for name, srv := range map[string]*http.Server{"healthcheck": a.httpServer, "ipc": a.ipcServer} {
		if srv == nil {
			continue
		}
		logger.Info("🩺 Shutting down server...", "server", name)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", "server", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
