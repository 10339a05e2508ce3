// Package loading is the loading-screen service. It owns the visible state
// of the loading layer, queues preload batches and runs them through a
// preload.Batcher, publishing every state change to subscribers.
package loading

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/preload"
)

// ErrNotInitialized is returned when the service is used before Init.
var ErrNotInitialized = errors.New("loading service not initialized")

// State is what the loading layer currently shows.
type State struct {
	Visible bool   `json:"visible"`
	Tip     string `json:"tip"`
}

// EventKind names a state change.
type EventKind string

const (
	EventShow EventKind = "show"
	EventHide EventKind = "hide"
	EventTip  EventKind = "tip"
)

// Event is published on every state change.
type Event struct {
	Kind  EventKind `json:"kind"`
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// Renderer draws the loading layer. A nil Renderer renders nothing.
type Renderer interface {
	Render(ctx context.Context, s State) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, s State) error

func (f RendererFunc) Render(ctx context.Context, s State) error { return f(ctx, s) }

// Service drives the loading layer.
type Service struct {
	renderer Renderer
	batcher  *preload.Batcher

	mu          sync.Mutex
	initialized bool
	state       State
	queue       preload.Plan
	subs        map[int]chan Event
	nextSub     int
}

// NewService creates the service. Files are fetched with fetch and the
// batcher is tuned with opts.
func NewService(renderer Renderer, fetch preload.FetchFunc, opts preload.Options) *Service {
	s := &Service{renderer: renderer, subs: make(map[int]chan Event)}
	s.batcher = preload.New(screen{s}, fetch, opts)
	return s
}

// Init makes the service usable.
func (s *Service) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

// State returns the current loading-layer state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ShowLoadingScreen shows the layer. Showing twice is a no-op.
func (s *Service) ShowLoadingScreen(ctx context.Context) error {
	return s.batcher.Show(ctx)
}

// HideLoadingScreen hides the layer. Hiding twice is a no-op.
func (s *Service) HideLoadingScreen(ctx context.Context) error {
	return s.batcher.Hide(ctx)
}

// AddToSyncList queues batches for the next StartDownloadSync.
func (s *Service) AddToSyncList(batches ...preload.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, batches...)
}

// Pending returns the queued plan.
func (s *Service) Pending() preload.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(preload.Plan(nil), s.queue...)
}

// StartDownloadSync runs the queued plan with the show, load, hide sequence
// and returns when every batch finished or the plan failed. The queue is
// emptied.
func (s *Service) StartDownloadSync(ctx context.Context) (*preload.Report, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	plan := s.queue
	s.queue = nil
	s.mu.Unlock()

	return s.batcher.Sync(ctx, plan)
}

// Subscribe returns a channel of state changes and a cancel function.
// Slow subscribers miss events rather than block the loading layer.
func (s *Service) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) apply(ctx context.Context, kind EventKind, mutate func(*State)) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	next := s.state
	mutate(&next)
	s.mu.Unlock()

	if s.renderer != nil {
		if err := s.renderer.Render(ctx, next); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = next
	ev := Event{Kind: kind, State: next, At: time.Now()}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Loading layer updated.", "event", kind, "visible", next.Visible, "tip", next.Tip)
	return nil
}

// screen is the preload.Screen view of the service.
type screen struct{ s *Service }

func (sc screen) Show(ctx context.Context) error {
	return sc.s.apply(ctx, EventShow, func(st *State) { st.Visible = true })
}

func (sc screen) Hide(ctx context.Context) error {
	return sc.s.apply(ctx, EventHide, func(st *State) {
		st.Visible = false
		st.Tip = ""
	})
}

func (sc screen) SetTip(ctx context.Context, label string) error {
	return sc.s.apply(ctx, EventTip, func(st *State) { st.Tip = label })
}
