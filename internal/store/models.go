package store

import (
	"time"

	"github.com/specialistvlad/avgboot/internal/booterr"
)

// Outcome values of a boot run.
const (
	OutcomeReady       = "ready"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// BootRun is one bootstrap attempt.
type BootRun struct {
	ID         string
	BaseDir    string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	// Fatal is the normalized record of the failure that aborted the run.
	Fatal    *booterr.Record
	Stages   []StageRecord
	Failures []PreloadFailure
}

// StageRecord is the outcome of one stage inside a run.
type StageRecord struct {
	Name       string
	State      string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// PreloadFailure is one file that failed to load during a run.
type PreloadFailure struct {
	Batch string
	File  string
	Cause string
}
