// Package runner drives extraction units through the two-phase protocol in
// dependency order. Units within a wave run concurrently; waves are joined
// before the next starts. A unit failure never aborts its siblings or the
// batch: RunAll always completes and reports a per-unit result map.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/brandintel/internal/llm"
	"git.home.luguber.info/inful/brandintel/internal/metrics"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
	"git.home.luguber.info/inful/brandintel/internal/store"
)

// Result reports one unit's outcome.
type Result struct {
	UnitType string
	OK       bool
	Duration time.Duration
	Err      string
}

// Runner owns a registry, the LLM boundary, and the unit store. It assumes a
// single invocation per subject at a time; concurrent invocations for the
// same subject need an external single-writer guarantee.
type Runner struct {
	registry *registry.Registry
	client   llm.Client
	units    store.UnitStore
	recorder metrics.Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(rn *Runner) { rn.recorder = r }
}

// New creates a runner.
func New(reg *registry.Registry, client llm.Client, units store.UnitStore, opts ...Option) *Runner {
	r := &Runner{
		registry: reg,
		client:   client,
		units:    units,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunUnit drives one extraction unit through the two-phase protocol and
// persists every status transition. prior holds parsed outputs of earlier
// waves; entries for failed prerequisites are simply absent.
func (r *Runner) RunUnit(ctx context.Context, subject *model.Subject, unitType, content string, prior model.Outputs) Result {
	start := time.Now()

	def, err := r.registry.Extractor(unitType)
	if err != nil {
		return r.fail(ctx, subject.ID, unitType, start, err)
	}

	unit, err := r.units.GetUnit(ctx, subject.ID, unitType)
	if err != nil {
		return r.fail(ctx, subject.ID, unitType, start, fmt.Errorf("loading unit: %w", err))
	}

	parsed, runErr := r.runPhases(ctx, unit, phaseInput{
		unitType: unitType,
		prompt:   def.BuildPrompt(content, prior),
		parser:   def.Parser,
	})
	if runErr != nil {
		return r.fail(ctx, subject.ID, unitType, start, runErr)
	}

	now := time.Now()
	unit.Status = model.UnitStatusComplete
	unit.Parsed = parsed
	unit.ErrorMessage = ""
	unit.CompletedAt = &now
	if err := r.units.Update(ctx, unit); err != nil {
		return r.fail(ctx, subject.ID, unitType, start, fmt.Errorf("persisting completion: %w", err))
	}

	duration := time.Since(start)
	r.recorder.UnitCompleted(unitType, true, duration)
	slog.Info("unit complete",
		slog.String("subject", subject.ID),
		slog.String("unit", unitType),
		slog.Duration("duration", duration))
	return Result{UnitType: unitType, OK: true, Duration: duration}
}

type phaseInput struct {
	unitType string
	prompt   string
	parser   registry.ParserSpec
}

// runPhases executes analysis then parsing, persisting the intermediate
// transitions on the given unit. The unit's terminal write is the caller's.
func (r *Runner) runPhases(ctx context.Context, unit *model.ExtractionUnit, in phaseInput) (json.RawMessage, error) {
	// Analysis phase.
	now := time.Now()
	unit.Status = model.UnitStatusAnalyzing
	unit.StartedAt = &now
	if err := r.units.Update(ctx, unit); err != nil {
		return nil, fmt.Errorf("persisting analysis transition: %w", err)
	}
	r.recorder.UnitStarted(in.unitType)

	phaseStart := time.Now()
	raw, err := r.client.Complete(ctx, "", in.prompt)
	r.recorder.PhaseDuration(in.unitType, "analysis", time.Since(phaseStart))
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	// Parsing phase.
	unit.Status = model.UnitStatusParsing
	unit.RawOutput = raw
	if err := r.units.Update(ctx, unit); err != nil {
		return nil, fmt.Errorf("persisting parsing transition: %w", err)
	}

	phaseStart = time.Now()
	parsed, err := r.client.Extract(ctx, raw, in.parser.SystemPrompt, llm.Schema{
		Name:        in.parser.SchemaName,
		Description: in.parser.SchemaDescription,
		Definition:  in.parser.Schema,
	})
	r.recorder.PhaseDuration(in.unitType, "parsing", time.Since(phaseStart))
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	// Post-process: deterministic, no I/O.
	if in.parser.Normalize != nil {
		parsed, err = in.parser.Normalize(parsed)
		if err != nil {
			return nil, fmt.Errorf("normalizing: %w", err)
		}
	}
	return parsed, nil
}

// fail records the unit failure on its row and returns the failed result.
func (r *Runner) fail(ctx context.Context, subjectID, unitType string, start time.Time, cause error) Result {
	slog.Error("unit failed",
		slog.String("subject", subjectID),
		slog.String("unit", unitType),
		slog.Any("error", cause))

	if unit, err := r.units.GetUnit(ctx, subjectID, unitType); err == nil {
		now := time.Now()
		unit.Status = model.UnitStatusError
		unit.ErrorMessage = cause.Error()
		unit.CompletedAt = &now
		if uerr := r.units.Update(ctx, unit); uerr != nil {
			slog.Error("persisting unit failure", slog.Any("error", uerr))
		}
	}

	duration := time.Since(start)
	r.recorder.UnitCompleted(unitType, false, duration)
	return Result{UnitType: unitType, OK: false, Duration: duration, Err: cause.Error()}
}

// RunAll schedules every registered extractor and runs each wave with
// fan-out/fan-in, threading completed outputs forward as the prior snapshot
// for later waves. The returned map always holds an entry per scheduled unit.
func (r *Runner) RunAll(ctx context.Context, subject *model.Subject, content string) map[string]Result {
	schedule := BuildSchedule(r.registry.Extractors())
	slog.Info("running extraction",
		slog.String("subject", subject.ID),
		slog.Int("waves", len(schedule.Waves)),
		slog.Int("units", schedule.UnitCount()))

	results := make(map[string]Result, schedule.UnitCount())
	prior := make(model.Outputs)

	for _, wave := range schedule.Waves {
		waveResults := r.runWave(ctx, subject, content, wave, prior)
		for unitType, res := range waveResults {
			results[unitType] = res
			if !res.OK {
				continue
			}
			if unit, err := r.units.GetUnit(ctx, subject.ID, unitType); err == nil && len(unit.Parsed) > 0 {
				prior[unitType] = unit.Parsed
			}
		}
	}

	for _, unitType := range schedule.Unscheduled {
		results[unitType] = Result{UnitType: unitType, OK: false, Err: "unscheduled: dependency cycle"}
	}
	return results
}

// runWave fans out one wave and joins before returning. Each goroutine gets
// the same read-only prior snapshot; nothing in a wave observes a sibling.
func (r *Runner) runWave(ctx context.Context, subject *model.Subject, content string, wave []string, prior model.Outputs) map[string]Result {
	type keyed struct {
		unitType string
		result   Result
	}

	out := make(chan keyed, len(wave))
	snapshot := prior.Clone()
	for _, unitType := range wave {
		go func(ut string) {
			out <- keyed{ut, r.RunUnit(ctx, subject, ut, content, snapshot)}
		}(unitType)
	}

	results := make(map[string]Result, len(wave))
	for range wave {
		k := <-out
		results[k.unitType] = k.result
	}
	return results
}
