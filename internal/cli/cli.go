package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/avgboot/internal/app"
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type flags struct {
	baseDir         string
	configPath      string
	route           string
	logFormat       string
	logLevel        string
	healthcheckPort int
	ipcPort         int
	playgroundURL   string
	historyDB       string
	workers         int
	headless        bool
	lang            string
	exitAfterBoot   bool
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		f      flags
		config *app.Config
	)
	cmd := &cobra.Command{
		Use:   "avgshell [BASE_DIR]",
		Short: "Visual novel runtime shell",
		Long: `avgshell boots the visual novel runtime: it resolves the engine and game
roots from env.avd, loads settings, preloads the startup assets and serves
the frontend bridge.

BASE_DIR defaults to the directory of the executable.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(f, args)
			if err != nil {
				return err
			}
			config = cfg
			return nil
		},
	}
	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	fl := cmd.Flags()
	fl.StringVarP(&f.baseDir, "base-dir", "d", "", "Base directory holding env.avd and data/.")
	fl.StringVarP(&f.configPath, "config", "c", "", "Path to shell.hcl, or a directory of .hcl drop-ins. Defaults to BASE_DIR/shell.hcl.")
	fl.StringVar(&f.route, "route", "/main", "Route the shell is opened with, e.g. '/main?assets_root=games/demo/'.")
	fl.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fl.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fl.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	fl.IntVar(&f.ipcPort, "ipc-port", 0, "Port for the frontend bridge. 0 is disabled.")
	fl.StringVar(&f.playgroundURL, "playground-url", "", "Socket.IO endpoint of a playground host to report to.")
	fl.StringVar(&f.historyDB, "history-db", "", "SQLite file recording bootstrap runs. Empty disables history.")
	fl.IntVarP(&f.workers, "workers", "w", 0, "Concurrent preload downloads. 0 keeps preload_options.workers.")
	fl.BoolVar(&f.headless, "headless", false, "Run without a desktop window.")
	fl.StringVar(&f.lang, "lang", "en", "Language of diagnostic pages, e.g. 'en' or 'zh-Hans'.")
	fl.BoolVar(&f.exitAfterBoot, "exit-after-boot", false, "Exit once the bootstrap finished.")

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if config == nil {
		// --help and --version print and return without running the command.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func buildConfig(f flags, args []string) (*app.Config, error) {
	baseDir := ""
	if f.baseDir != "" {
		baseDir = f.baseDir
	} else if len(args) > 0 {
		baseDir = args[0]
	} else {
		dir, err := fsys.ExecutableDir()
		if err != nil {
			return nil, &ExitError{Code: 1, Message: fmt.Sprintf("cannot locate executable directory: %v", err)}
		}
		baseDir = dir
	}
	slog.Debug("Base directory determined.", "path", baseDir)

	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		BaseDir:         baseDir,
		ConfigPath:      f.configPath,
		Route:           f.route,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: f.healthcheckPort,
		IPCPort:         f.ipcPort,
		PlaygroundURL:   f.playgroundURL,
		HistoryDB:       f.historyDB,
		WorkerCount:     f.workers,
		Headless:        f.headless,
		Lang:            f.lang,
		ExitAfterBoot:   f.exitAfterBoot,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, nil
}
