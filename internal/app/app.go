package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/avgboot/internal/config"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/environment"
	"github.com/specialistvlad/avgboot/internal/errreport"
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/specialistvlad/avgboot/internal/input"
	"github.com/specialistvlad/avgboot/internal/ipc"
	"github.com/specialistvlad/avgboot/internal/loading"
	"github.com/specialistvlad/avgboot/internal/pipeline"
	"github.com/specialistvlad/avgboot/internal/preload"
	"github.com/specialistvlad/avgboot/internal/readiness"
	"github.com/specialistvlad/avgboot/internal/resource"
	"github.com/specialistvlad/avgboot/internal/scripting"
	"github.com/specialistvlad/avgboot/internal/settings"
	"github.com/specialistvlad/avgboot/internal/store"
	"github.com/specialistvlad/avgboot/internal/stylesheet"
	"github.com/specialistvlad/avgboot/internal/transition"
	"github.com/specialistvlad/avgboot/internal/window"
)

// Option customizes an App, mostly for tests and platform builds.
type Option func(*App)

// WithFileSystem replaces the native filesystem.
func WithFileSystem(fs fsys.FileSystem) Option {
	return func(a *App) { a.fs = fs }
}

// WithWindow provides the desktop window. Without one the window stage is a
// no-op.
func WithWindow(win window.Window) Option {
	return func(a *App) { a.window = win }
}

// WithRenderer draws the loading layer.
func WithRenderer(r loading.Renderer) Option {
	return func(a *App) { a.renderer = r }
}

// WithSurface adds a diagnostic surface next to the log output and the IPC
// hub.
func WithSurface(s errreport.Surface) Option {
	return func(a *App) { a.surfaces = append(a.surfaces, s) }
}

// WithReporterOptions tunes the error reporter.
func WithReporterOptions(opts ...errreport.Option) Option {
	return func(a *App) { a.reporterOpts = append(a.reporterOpts, opts...) }
}

// WithStageHook runs fn right before the named stage body. Tests use it to
// inject failures and delays.
func WithStageHook(stage string, fn pipeline.RunFunc) Option {
	return func(a *App) { a.hooks[stage] = fn }
}

// App encapsulates the shell's dependencies, configuration and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	ctx       context.Context
	config    *Config
	shell     *config.Model
	converter config.Converter

	fs           fsys.FileSystem
	window       window.Window
	renderer     loading.Renderer
	surfaces     []errreport.Surface
	reporterOpts []errreport.Option
	hooks        map[string]pipeline.RunFunc

	flag        readiness.Flag
	gate        *readiness.Gate
	reporter    *errreport.Reporter
	bindings    *input.Bindings
	resources   *resource.Registry
	layer       *transition.Layer
	interceptor *transition.Interceptor
	loading     *loading.Service
	hub         *ipc.Hub
	router      *ipc.Router
	sheet       *stylesheet.Sheet
	history     *store.Store

	// Written by stages, read after Run.
	mu         sync.Mutex
	env        environment.Descriptor
	engine     *settings.Engine
	game       *settings.Game
	runtime    *scripting.Runtime
	bounds     window.Bounds
	report     *preload.Report
	playground *ipc.Playground
	pipeline   *pipeline.Pipeline
	runID      string
	cancels    []func()

	httpServer *http.Server
	ipcServer  *http.Server
}

// NewApp is the constructor for the shell. It loads the shell configuration
// and builds every service the stages drive. A configuration that cannot be
// loaded is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	shell, converter, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Shell configuration loaded.", "source", shell.Source, "batches", len(shell.Preload))

	a := &App{
		outW:      outW,
		logger:    logger,
		ctx:       ctx,
		config:    appConfig,
		shell:     shell,
		converter: converter,
		hooks:     make(map[string]pipeline.RunFunc),
		runID:     store.NewRunID(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fs == nil {
		a.fs = fsys.NewNative(appConfig.BaseDir)
	}

	a.gate = readiness.NewGate(&a.flag)
	a.hub = ipc.NewHub(ctx)
	a.router = ipc.NewRouter(a.gate, a.hub)
	a.bindings = input.NewBindings()
	a.resources = resource.NewRegistry()
	a.layer = transition.NewLayer()
	a.interceptor = transition.NewInterceptor(a.layer)
	a.sheet = &stylesheet.Sheet{}

	surfaces := append([]errreport.Surface{errreport.WriterSurface{W: outW}, a.hubSurface()}, a.surfaces...)
	a.reporter = errreport.New(appConfig.Lang, surfaces, a.reporterOpts...)

	batcherOpts := shell.Options.BatcherOptions()
	if appConfig.WorkerCount > 0 {
		batcherOpts.Workers = appConfig.WorkerCount
	}
	a.loading = loading.NewService(a.renderer, a.fs.ReadFile, batcherOpts)

	return a
}

// Ready reports whether the bootstrap completed.
func (a *App) Ready() bool {
	return a.flag.Ready()
}

// RunID identifies this bootstrap in the history store.
func (a *App) RunID() string {
	return a.runID
}

// Results returns the per-stage outcomes once Run returned.
func (a *App) Results() []pipeline.Result {
	a.mu.Lock()
	p := a.pipeline
	a.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Results()
}

// PreloadReport returns the report of the preload stage, nil before it ran.
func (a *App) PreloadReport() *preload.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.report
}

// Diagnostic returns the last reported fatal error view.
func (a *App) Diagnostic() (errreport.View, bool) {
	return a.reporter.Last()
}

// Bounds returns the applied window geometry.
func (a *App) Bounds() window.Bounds {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bounds
}

// Hub is the frontend event hub.
func (a *App) Hub() *ipc.Hub {
	return a.hub
}

// Router is the frontend route tracker.
func (a *App) Router() *ipc.Router {
	return a.router
}

// Handler returns the shell's HTTP handler: health, readiness, diagnostics,
// the mask stylesheet and the IPC websocket.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/ready", a.gate)
	mux.Handle("/diagnostic", a.reporter)
	mux.HandleFunc("/stylesheets/mask.css", a.stylesheetHandler)
	mux.Handle("/ws", a.hub)
	return mux
}

func (a *App) stylesheetHandler(w http.ResponseWriter, r *http.Request) {
	css := a.sheet.CSS()
	if css == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = io.WriteString(w, css)
}

// hubSurface forwards diagnostic views to frontends.
func (a *App) hubSurface() errreport.Surface {
	return errreport.SurfaceFunc(func(_ context.Context, v errreport.View) error {
		return a.hub.Broadcast(ipc.TypeDiagnostic, map[string]any{
			"record": v.Record,
			"html":   v.HTML,
			"lang":   v.Lang.String(),
		})
	})
}

func (a *App) addCancel(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancels = append(a.cancels, fn)
}
