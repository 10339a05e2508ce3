// Package transition holds the transition layer state and the global click
// interception that turns clicks into story advances.
package transition

import (
	"sync"
	"sync/atomic"
)

// StoryLockerAttr marks elements whose clicks never advance the story.
const StoryLockerAttr = "story-locker"

// Layer is the transition layer. While it locks pointer events, clicks do
// not reach the story.
type Layer struct {
	locked atomic.Bool

	mu      sync.Mutex
	clicks  map[int]chan struct{}
	nextSub int
}

// NewLayer returns an unlocked layer.
func NewLayer() *Layer {
	return &Layer{clicks: make(map[int]chan struct{})}
}

// LockPointerEvents blocks story clicks, e.g. during a transition.
func (l *Layer) LockPointerEvents() { l.locked.Store(true) }

// UnlockPointerEvents lets story clicks through again.
func (l *Layer) UnlockPointerEvents() { l.locked.Store(false) }

// IsLockPointerEvents reports whether story clicks are blocked.
func (l *Layer) IsLockPointerEvents() bool { return l.locked.Load() }

// FullScreenClicks subscribes to full-screen click notifications. The
// returned cancel function releases the subscription.
func (l *Layer) FullScreenClicks() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.clicks[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.clicks, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}

// publish notifies subscribers. A pending notification is not duplicated.
func (l *Layer) publish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.clicks {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ClickEvent is a click as reported by the frontend.
type ClickEvent struct {
	Target     string            `json:"target"`
	Attributes map[string]string `json:"attributes"`
}

// Interceptor is installed once and sees every click of the document.
type Interceptor struct {
	layer *Layer
}

// NewInterceptor binds an interceptor to layer.
func NewInterceptor(layer *Layer) *Interceptor {
	return &Interceptor{layer: layer}
}

// Handle processes one click and reports whether it advanced the story.
func (i *Interceptor) Handle(ev ClickEvent) bool {
	if _, locker := ev.Attributes[StoryLockerAttr]; locker {
		return false
	}
	if i.layer.IsLockPointerEvents() {
		return false
	}
	i.layer.publish()
	return true
}
