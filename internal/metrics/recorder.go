// Package metrics provides the observability hooks for the extraction
// pipeline. Components receive a Recorder through dependency injection and
// default to NoopRecorder, so metrics cost nothing unless a real
// implementation is wired in (daemon mode wires Prometheus).
package metrics

import "time"

// Recorder receives pipeline measurements.
type Recorder interface {
	// UnitStarted is called when a unit enters its analysis phase.
	UnitStarted(unitType string)
	// UnitCompleted is called when a unit reaches a terminal status.
	UnitCompleted(unitType string, success bool, duration time.Duration)
	// PhaseDuration records the duration of one protocol phase
	// ("analysis", "parsing", "render").
	PhaseDuration(unitType, phase string, duration time.Duration)
	// DocumentGenerated is called when a document generation finishes.
	DocumentGenerated(templateID string, success bool)
	// SyncState records a live-sync connection state change.
	SyncState(state string)
}

// NoopRecorder is the default Recorder; every method is a no-op.
type NoopRecorder struct{}

func (NoopRecorder) UnitStarted(string)                          {}
func (NoopRecorder) UnitCompleted(string, bool, time.Duration)   {}
func (NoopRecorder) PhaseDuration(string, string, time.Duration) {}
func (NoopRecorder) DocumentGenerated(string, bool)              {}
func (NoopRecorder) SyncState(string)                            {}
