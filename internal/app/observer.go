package app

import (
	"time"

	"github.com/specialistvlad/avgboot/internal/ipc"
)

type stageEvent struct {
	Stage string    `json:"stage"`
	Event string    `json:"event"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// StageStarted broadcasts stage progress to frontends.
func (a *App) StageStarted(name string, at time.Time) {
	_ = a.hub.Broadcast(ipc.TypeStage, stageEvent{Stage: name, Event: "started", At: at})
}

// StageFinished broadcasts stage progress to frontends.
func (a *App) StageFinished(name string, at time.Time, err error) {
	ev := stageEvent{Stage: name, Event: "finished", At: at}
	if err != nil {
		ev.Error = err.Error()
	}
	_ = a.hub.Broadcast(ipc.TypeStage, ev)
}
