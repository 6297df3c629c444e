package domain

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

var clock = clockwork.NewRealClock()

// SetClock replaces the clock that stamps ProcessedAt on step events. nil
// restores the wall clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// StepEvent announces that one forcing step has been written.
type StepEvent struct {
	RunID       string    `json:"run_id"`
	Step        int       `json:"step"`
	ValidTime   time.Time `json:"valid_time"`
	File        string    `json:"file"`
	Summary     Summary   `json:"summary"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewStepEvent builds the notification for a completed step, stamped with the
// package clock.
func NewStepEvent(runID string, step int, valid time.Time, file string, f []Forcing) StepEvent {
	return StepEvent{
		RunID:       runID,
		Step:        step,
		ValidTime:   valid.UTC(),
		File:        file,
		Summary:     Summarize(f),
		ProcessedAt: clock.Now().UTC(),
	}
}

// Key identifies the event uniquely within a run.
func (e StepEvent) Key() string {
	return fmt.Sprintf("%s-%06d", e.RunID, e.Step)
}

// RunProgress is a point-in-time view of a run.
type RunProgress struct {
	RunID   string `json:"run_id"`
	Steps   int    `json:"steps"`
	Written int    `json:"written"`
	Running bool   `json:"running"`
}
