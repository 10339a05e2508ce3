package ipc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Playground events.
const (
	EventShellReady = "shell:ready"
	EventNavigate   = "navigate"
	EventReload     = "reload"
)

const connectTimeout = 15 * time.Second

// PlaygroundOptions configures the connection to the editor host.
type PlaygroundOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// OnReload runs when the editor asks the shell to reload the game.
	OnReload func()
}

// Playground is the socket.io link to the editor host. The editor drives
// the shell with navigate and reload events.
type Playground struct {
	io  *socket.Socket
	nav Navigator
}

// DialPlayground connects to the editor host and relays its commands to nav.
func DialPlayground(ctx context.Context, opts PlaygroundOptions, nav Navigator) (*Playground, error) {
	logger := ctxlog.FromContext(ctx).With("component", "playground", "url", opts.URL)
	logger.Info("Connecting to playground host...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse playground URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("playground URL %q needs a scheme and host", opts.URL)
	}

	sopts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sopts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)
	p := &Playground{io: io, nav: nav}

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to playground host.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- firstError(errs)
	})

	io.On(types.EventName(EventNavigate), func(args ...any) {
		route, err := routeFromArgs(args)
		if err != nil {
			logger.Warn("Ignoring navigate event.", "error", err)
			return
		}
		if err := nav.Navigate(ctx, route); err != nil {
			logger.Warn("Playground navigation refused.", "route", route, "error", err)
		}
	})
	io.On(types.EventName(EventReload), func(...any) {
		logger.Info("Playground requested reload.")
		if opts.OnReload != nil {
			opts.OnReload()
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("playground connection failed: %w", err)
		}
		return p, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for playground connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for playground connection", connectTimeout)
	}
}

// AnnounceReady tells the editor host the shell finished booting.
func (p *Playground) AnnounceReady(runID string) {
	p.io.Emit(EventShellReady, map[string]any{"runId": runID})
}

// Close disconnects from the editor host.
func (p *Playground) Close() {
	p.io.Disconnect()
}

// routeFromArgs accepts either a bare route string or {"route": "..."}.
func routeFromArgs(args []any) (string, error) {
	if len(args) == 0 {
		return "", errors.New("missing route")
	}
	switch v := args[0].(type) {
	case string:
		if v == "" {
			return "", errors.New("empty route")
		}
		return v, nil
	case map[string]any:
		if r, ok := v["route"].(string); ok && r != "" {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported navigate payload %T", args[0])
}

func firstError(args []any) error {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			return err
		}
		return fmt.Errorf("%v", args[0])
	}
	return errors.New("unknown connect error")
}
