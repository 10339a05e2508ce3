package loading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/preload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	mu     sync.Mutex
	states []State
	err    error
}

func (r *recordingRenderer) Render(_ context.Context, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.states = append(r.states, s)
	return nil
}

func okFetch(_ context.Context, name string) ([]byte, error) { return []byte(name), nil }

func newService(r Renderer) *Service {
	return NewService(r, okFetch, preload.Options{SkipDecode: true})
}

func TestService_RequiresInit(t *testing.T) {
	s := newService(nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.ShowLoadingScreen(ctx), booterr.PreloadUI)
	assert.ErrorIs(t, s.ShowLoadingScreen(ctx), ErrNotInitialized)
	_, err := s.StartDownloadSync(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestService_StartDownloadSync(t *testing.T) {
	// Arrange
	r := &recordingRenderer{}
	s := newService(r)
	require.NoError(t, s.Init())
	events, cancel := s.Subscribe(32)
	defer cancel()

	s.AddToSyncList(
		preload.Batch{Label: "正在加载过渡效果...", Files: []string{"wipe.png"}},
		preload.Batch{Label: "正在加载特效...", Files: []string{"bg_fsh.shader"}},
	)
	assert.Len(t, s.Pending(), 2)

	// Act
	report, err := s.StartDownloadSync(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Len(t, report.Loaded(), 2)
	assert.Empty(t, s.Pending())
	assert.False(t, s.State().Visible)

	assert.Equal(t, []State{
		{Visible: true},
		{Visible: true, Tip: "正在加载过渡效果..."},
		{Visible: true, Tip: "正在加载特效..."},
		{Visible: false},
	}, r.states)

	var kinds []EventKind
	for i := 0; i < 4; i++ {
		kinds = append(kinds, (<-events).Kind)
	}
	assert.Equal(t, []EventKind{EventShow, EventTip, EventTip, EventHide}, kinds)
}

func TestService_ShowHideIdempotent(t *testing.T) {
	r := &recordingRenderer{}
	s := newService(r)
	require.NoError(t, s.Init())
	ctx := context.Background()

	require.NoError(t, s.ShowLoadingScreen(ctx))
	require.NoError(t, s.ShowLoadingScreen(ctx))
	require.NoError(t, s.HideLoadingScreen(ctx))
	require.NoError(t, s.HideLoadingScreen(ctx))

	assert.Len(t, r.states, 2)
}

func TestService_RenderFailure(t *testing.T) {
	s := newService(&recordingRenderer{err: errors.New("surface lost")})
	require.NoError(t, s.Init())
	s.AddToSyncList(preload.Batch{Label: "A", Files: []string{"a"}})

	_, err := s.StartDownloadSync(context.Background())
	assert.ErrorIs(t, err, booterr.PreloadUI)
	assert.False(t, s.State().Visible)
}

func TestService_UnsubscribeClosesChannel(t *testing.T) {
	s := newService(nil)
	ch, cancel := s.Subscribe(1)
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}
