// Package readiness holds the process-wide "bootstrap finished" flag and the
// route gate that consults it.
package readiness

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// Flag starts false and flips to true at most once. The pipeline is the only
// writer; any goroutine may read it.
type Flag struct {
	ready atomic.Bool

	mu        sync.Mutex
	listeners []func()
}

// Set marks the process ready. Calls after the first are no-ops.
func (f *Flag) Set() {
	if !f.ready.CompareAndSwap(false, true) {
		return
	}
	f.mu.Lock()
	listeners := f.listeners
	f.listeners = nil
	f.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Ready reports whether Set was called.
func (f *Flag) Ready() bool {
	return f.ready.Load()
}

// OnReady registers fn to run once the flag is set. If it already is, fn runs
// immediately on the calling goroutine.
func (f *Flag) OnReady(fn func()) {
	f.mu.Lock()
	if !f.ready.Load() {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// MainRoute is the application route guarded by the gate.
const MainRoute = "/main"

// Gate admits guarded routes only after the flag is set.
type Gate struct {
	flag      *Flag
	protected map[string]bool
}

// NewGate guards the given routes, MainRoute when none are given.
func NewGate(flag *Flag, routes ...string) *Gate {
	if len(routes) == 0 {
		routes = []string{MainRoute}
	}
	g := &Gate{flag: flag, protected: make(map[string]bool, len(routes))}
	for _, r := range routes {
		g.protected[normalize(r)] = true
	}
	return g
}

// CanActivate reports whether navigation to route is allowed now.
func (g *Gate) CanActivate(route string) bool {
	if !g.protected[normalize(route)] {
		return true
	}
	return g.flag.Ready()
}

// ServeHTTP answers 200 once ready and 503 before.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !g.flag.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func normalize(route string) string {
	route = strings.TrimSpace(route)
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}
