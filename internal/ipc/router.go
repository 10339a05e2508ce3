package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/readiness"
)

// ErrRouteGated is returned when navigation is refused by the readiness gate.
var ErrRouteGated = errors.New("route is not available before the shell is ready")

// Navigator changes the active frontend route.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// Router tracks the active route and announces changes to frontends.
type Router struct {
	gate *readiness.Gate
	hub  *Hub

	mu      sync.Mutex
	current string
}

// NewRouter creates a router admitting routes through gate. hub may be nil.
func NewRouter(gate *readiness.Gate, hub *Hub) *Router {
	return &Router{gate: gate, hub: hub}
}

// Navigate switches to route when the gate allows it.
func (r *Router) Navigate(ctx context.Context, route string) error {
	if route == "" {
		return errors.New("empty route")
	}
	if !r.gate.CanActivate(route) {
		return fmt.Errorf("%w: %s", ErrRouteGated, route)
	}

	r.mu.Lock()
	r.current = route
	r.mu.Unlock()

	ctxlog.FromContext(ctx).Info("🧭 Navigating.", "route", route)
	if r.hub != nil {
		return r.hub.Broadcast(TypeNavigate, map[string]string{"route": route})
	}
	return nil
}

// Current returns the active route.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

type navigateRequest struct {
	Route string `json:"route"`
}

// NavigateHandler answers navigate commands from frontends.
func NavigateHandler(nav Navigator) Handler {
	return func(ctx context.Context, msg Message) (any, error) {
		var req navigateRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("invalid navigate request: %w", err)
		}
		if err := nav.Navigate(ctx, req.Route); err != nil {
			return nil, err
		}
		return map[string]string{"route": req.Route}, nil
	}
}
