package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/avgboot/internal/app"
	"github.com/specialistvlad/avgboot/internal/cli"
	"github.com/specialistvlad/avgboot/internal/hcl"
)

// frontend hosts the bootstrap: the desktop build owns the main thread for
// the window loop, headless runs the body directly.
type frontend interface {
	options() []app.Option
	loop(ctx context.Context, body func(ctx context.Context) error) error
}

type headless struct{}

func (headless) options() []app.Option { return nil }

func (headless) loop(ctx context.Context, body func(ctx context.Context) error) error {
	return body(ctx)
}

// main is the entrypoint for the avgshell application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors; turn that into an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	fe := newFrontend(appConfig)
	shell := app.NewApp(outW, appConfig, hcl.NewLoader(), fe.options()...)

	return fe.loop(ctx, func(ctx context.Context) error {
		defer func() {
			if closeErr := shell.Close(context.WithoutCancel(ctx)); closeErr != nil {
				slog.Warn("Shutdown finished with errors.", "error", closeErr)
			}
		}()
		bootErr := shell.Run(ctx)
		if appConfig.ExitAfterBoot {
			return bootErr
		}
		if bootErr != nil {
			// a failed shell stays up on its diagnostic view until told to stop
			slog.Warn("Bootstrap failed, serving diagnostics until interrupted.", "error", bootErr)
		}
		shell.Wait(ctx)
		return bootErr
	})
}
