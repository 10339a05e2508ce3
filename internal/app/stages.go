package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/config"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/environment"
	"github.com/specialistvlad/avgboot/internal/ipc"
	"github.com/specialistvlad/avgboot/internal/pipeline"
	"github.com/specialistvlad/avgboot/internal/scripting"
	"github.com/specialistvlad/avgboot/internal/settings"
	"github.com/specialistvlad/avgboot/internal/transition"
	"github.com/specialistvlad/avgboot/internal/window"
)

// Bootstrap stage names.
const (
	StageErrorReporting   = "error_reporting"
	StageFilesystem       = "filesystem"
	StageHotkeys          = "hotkeys"
	StageEngineSettings   = "engine_settings"
	StageResourceRoots    = "resource_roots"
	StageGameSettings     = "game_settings"
	StageStylesheets      = "stylesheets"
	StageClickInterceptor = "click_interception"
	StageWindow           = "window"
	StageAPIBindings      = "api_bindings"
	StageLoadingService   = "loading_service"
	StagePreload          = "preload"
	StageIPC              = "ipc"
)

// Frontend command that evaluates a script through the API runtime.
const msgEval = "eval"

// stages returns the default wiring. Hotkeys stand alone; everything else
// is a chain in declaration order behind error reporting.
func (a *App) stages() []pipeline.Stage {
	chain := []pipeline.Stage{
		{Name: StageFilesystem, Mandatory: true, Run: a.initFilesystem},
		{Name: StageEngineSettings, Mandatory: true, Run: a.loadEngineSettings},
		{Name: StageResourceRoots, Mandatory: true, Run: a.resolveResourceRoots},
		{Name: StageGameSettings, Mandatory: true, Run: a.loadGameSettings},
		{Name: StageStylesheets, Run: a.initStylesheets},
		{Name: StageClickInterceptor, Run: a.initClickInterception},
		{Name: StageWindow, Run: a.initWindow},
		{Name: StageAPIBindings, Mandatory: true, Run: a.initAPI},
		{Name: StageLoadingService, Mandatory: true, Run: a.initLoadingService},
		{Name: StagePreload, Mandatory: true, Run: a.preloadAssets},
		{Name: StageIPC, Run: a.initIPC},
	}
	// the reporter is installed before anything that can fail fatally
	chain[0].DependsOn = []string{StageErrorReporting}
	for i := 1; i < len(chain); i++ {
		chain[i].DependsOn = []string{chain[i-1].Name}
	}

	stages := append([]pipeline.Stage{
		{Name: StageErrorReporting, Run: a.installErrorReporting},
		{Name: StageHotkeys, Run: a.initHotkeys},
	}, chain...)

	for i := range stages {
		if hook, ok := a.hooks[stages[i].Name]; ok {
			stages[i].Run = withHook(hook, stages[i].Run)
		}
	}
	return stages
}

func withHook(hook, run pipeline.RunFunc) pipeline.RunFunc {
	return func(ctx context.Context, rc pipeline.RoutingContext) error {
		if err := hook(ctx, rc); err != nil {
			return err
		}
		return run(ctx, rc)
	}
}

func (a *App) installErrorReporting(ctx context.Context, _ pipeline.RoutingContext) error {
	return a.reporter.Install(ctx)
}

// initFilesystem checks that the base directory is usable before anything
// reads through it.
func (a *App) initFilesystem(ctx context.Context, _ pipeline.RoutingContext) error {
	base := a.fs.BaseDir()
	if a.fs.IsRemote(base) {
		ctxlog.FromContext(ctx).Debug("Remote base directory, skipping local check.", "base_dir", base)
		return nil
	}
	info, err := os.Stat(base)
	if err != nil {
		return booterr.New(booterr.EnvironmentRead, "filesystem.init", base, err)
	}
	if !info.IsDir() {
		return booterr.New(booterr.EnvironmentRead, "filesystem.init", base, fmt.Errorf("%s is not a directory", base))
	}
	return nil
}

func (a *App) initHotkeys(ctx context.Context, _ pipeline.RoutingContext) error {
	if err := a.bindings.Init(a.shell.Hotkeys); err != nil {
		return fmt.Errorf("failed to bind hotkeys: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Hotkeys bound.", "count", len(a.bindings.Keymap()))
	return nil
}

func (a *App) loadEngineSettings(ctx context.Context, _ pipeline.RoutingContext) error {
	engine, err := settings.LoadEngine(ctx, a.fs, a.fs.BaseDir())
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.engine = engine
	a.mu.Unlock()
	return nil
}

func (a *App) resolveResourceRoots(ctx context.Context, rc pipeline.RoutingContext) error {
	base := a.fs.BaseDir()
	env, err := environment.NewResolver(a.fs).Resolve(ctx, base)
	if err != nil {
		return err
	}
	env = env.WithOverrides(base, rc.Params)
	if err := a.resources.Init(env.GameAssetsRoot, env.EngineBundleRoot); err != nil {
		return err
	}
	a.mu.Lock()
	a.env = env
	a.mu.Unlock()
	ctxlog.FromContext(ctx).Info("📂 Resource roots resolved.", "assets_root", env.GameAssetsRoot, "data_root", env.EngineBundleRoot)
	return nil
}

func (a *App) loadGameSettings(ctx context.Context, _ pipeline.RoutingContext) error {
	game, err := settings.LoadGame(ctx, a.fs, a.resources.AssetsRoot())
	if err != nil {
		return err
	}
	a.mu.Lock()
	engine := a.engine
	a.game = game
	a.mu.Unlock()
	return settings.CheckCompatibility(engine, game)
}

func (a *App) initStylesheets(ctx context.Context, _ pipeline.RoutingContext) error {
	return a.sheet.Load(ctx, a.fs, a.fs.Join(a.fs.BaseDir(), "data"))
}

// initClickInterception routes frontend clicks through the interceptor and
// announces full-screen clicks back to frontends.
func (a *App) initClickInterception(ctx context.Context, _ pipeline.RoutingContext) error {
	a.hub.Handle(ipc.TypeClick, func(_ context.Context, msg ipc.Message) (any, error) {
		var ev transition.ClickEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("invalid click event: %w", err)
		}
		return map[string]bool{"advanced": a.interceptor.Handle(ev)}, nil
	})

	clicks, cancel := a.layer.FullScreenClicks()
	a.addCancel(cancel)
	logger := ctxlog.FromContext(ctx)
	go func() {
		for range clicks {
			if err := a.hub.Broadcast(ipc.TypeClick, map[string]bool{"fullscreen": true}); err != nil {
				logger.Warn("Failed to forward full-screen click.", "error", err)
			}
		}
	}()
	return nil
}

func (a *App) initWindow(ctx context.Context, _ pipeline.RoutingContext) error {
	a.mu.Lock()
	game := a.game
	a.mu.Unlock()

	title := a.shell.Window.Title
	if game != nil && game.Title != "" {
		title = game.Title
	}
	if a.window != nil {
		window.SetTitle(a.window, title)
	}
	bounds, err := window.Apply(ctx, a.window, game)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.bounds = bounds
	a.mu.Unlock()
	return nil
}

func (a *App) initAPI(ctx context.Context, _ pipeline.RoutingContext) error {
	a.mu.Lock()
	b := scripting.Bindings{Engine: a.engine, Game: a.game, Resources: a.resources, Ready: a.flag.Ready}
	a.mu.Unlock()

	rt, err := scripting.New(ctx, b)
	if err != nil {
		return booterr.New(booterr.Internal, "api.init", "", err)
	}
	a.mu.Lock()
	a.runtime = rt
	a.mu.Unlock()

	a.hub.Handle(msgEval, func(ctx context.Context, msg ipc.Message) (any, error) {
		var req struct {
			Name   string `json:"name"`
			Source string `json:"source"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("invalid eval request: %w", err)
		}
		if req.Name == "" {
			req.Name = "frontend.js"
		}
		return rt.Run(ctx, req.Name, req.Source)
	})
	return nil
}

// initLoadingService initializes the loading layer, forwards its state to
// frontends and queues the configured preload plan.
func (a *App) initLoadingService(ctx context.Context, _ pipeline.RoutingContext) error {
	if err := a.loading.Init(); err != nil {
		return booterr.New(booterr.PreloadUI, "loading.init", "", err)
	}

	events, cancel := a.loading.Subscribe(32)
	a.addCancel(cancel)
	go func() {
		for ev := range events {
			_ = a.hub.Broadcast(ipc.TypeLoading, ev)
		}
	}()

	a.mu.Lock()
	engine := a.engine
	a.mu.Unlock()
	vars := config.Variables{
		EngineDir:         a.fs.BaseDir(),
		DataRoot:          a.resources.DataRoot(),
		AssetsRoot:        a.resources.AssetsRoot(),
		DefaultFont:       engine.String(settings.KeyDefaultFonts),
		LoadingBackground: engine.String(settings.KeyLoadingBackground),
	}
	plan, err := a.shell.Plan(ctx, a.converter, vars)
	if err != nil {
		return booterr.New(booterr.ResourceResolution, "preload.plan", a.shell.Source, err)
	}
	a.loading.AddToSyncList(plan...)
	ctxlog.FromContext(ctx).Debug("Preload plan queued.", "batches", len(plan), "files", plan.FileCount())
	return nil
}

func (a *App) preloadAssets(ctx context.Context, _ pipeline.RoutingContext) error {
	report, err := a.loading.StartDownloadSync(ctx)
	a.mu.Lock()
	a.report = report
	a.mu.Unlock()
	return err
}

// initIPC registers frontend commands and connects to the playground host
// when one is configured.
func (a *App) initIPC(ctx context.Context, _ pipeline.RoutingContext) error {
	a.hub.Handle(ipc.TypeNavigate, ipc.NavigateHandler(a.router))
	a.hub.Handle(ipc.TypeReady, func(context.Context, ipc.Message) (any, error) {
		return map[string]bool{"ready": a.flag.Ready()}, nil
	})
	a.hub.Handle(ipc.TypeLoading, func(context.Context, ipc.Message) (any, error) {
		return a.loading.State(), nil
	})

	if a.config.PlaygroundURL == "" {
		return nil
	}
	// the link outlives the bootstrap, so it must not inherit the run's cancellation
	pg, err := ipc.DialPlayground(context.WithoutCancel(ctx), ipc.PlaygroundOptions{
		URL: a.config.PlaygroundURL,
		OnReload: func() {
			_ = a.hub.Broadcast(ipc.TypeReload, map[string]string{"runId": a.runID})
		},
	}, a.router)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.playground = pg
	a.mu.Unlock()
	return nil
}
