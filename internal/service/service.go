// Package service orchestrates the pipeline: subject registration, batch
// extraction, document generation, and export. It owns the transactional
// boundaries the lower layers deliberately avoid.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/brandintel/internal/docgen"
	"git.home.luguber.info/inful/brandintel/internal/docstate"
	"git.home.luguber.info/inful/brandintel/internal/export"
	"git.home.luguber.info/inful/brandintel/internal/livesync"
	"git.home.luguber.info/inful/brandintel/internal/llm"
	"git.home.luguber.info/inful/brandintel/internal/metrics"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/readiness"
	"git.home.luguber.info/inful/brandintel/internal/registry"
	"git.home.luguber.info/inful/brandintel/internal/runner"
	"git.home.luguber.info/inful/brandintel/internal/store"
)

// ErrNotReady is returned when a template's input requirements are not met.
var ErrNotReady = errors.New("template inputs not ready")

// ErrNoExporter is returned when export is requested without a configured
// exporter.
var ErrNoExporter = errors.New("no exporter configured")

// Stores bundles the persistence boundaries the service consumes.
type Stores struct {
	Subjects  store.SubjectStore
	Units     store.UnitStore
	Documents store.DocumentStore
}

// Service drives the pipeline for all subjects.
type Service struct {
	stores    Stores
	registry  *registry.Registry
	runner    *runner.Runner
	generator *docgen.Generator
	exporter  export.Exporter
	publisher livesync.Publisher
	recorder  metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithExporter wires the external document export boundary.
func WithExporter(e export.Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithPublisher wires change-event publication for live sync consumers.
func WithPublisher(p livesync.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder injects a metrics recorder shared with runner and generator.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// New creates the service and its runner/generator over the given stores and
// LLM client.
func New(stores Stores, reg *registry.Registry, client llm.Client, opts ...Option) *Service {
	s := &Service{
		stores:   stores,
		registry: reg,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	// The runner writes through a publishing decorator so every persisted
	// transition surfaces as a change event.
	units := &publishingUnitStore{inner: stores.Units, service: s}
	s.runner = runner.New(reg, client, units, runner.WithRecorder(s.recorder))
	s.generator = docgen.New(reg, client, s.recorder)
	return s
}

// RegisterSubject creates the subject and bulk-seeds one queued unit per
// registered extractor.
func (s *Service) RegisterSubject(ctx context.Context, name, content string) (*model.Subject, error) {
	now := time.Now()
	subject := &model.Subject{
		ID:               uuid.NewString(),
		Name:             name,
		Content:          content,
		ContentUpdatedAt: now,
		UpdatedAt:        now,
		CreatedAt:        now,
	}
	if err := s.stores.Subjects.Insert(ctx, subject); err != nil {
		return nil, fmt.Errorf("registering subject: %w", err)
	}

	if err := s.stores.Units.SeedUnits(ctx, subject.ID, s.registry.ExtractorIDs()); err != nil {
		return nil, fmt.Errorf("seeding units: %w", err)
	}
	s.publish(livesync.Event{SubjectID: subject.ID, Op: "insert"})

	slog.Info("subject registered",
		slog.String("subject", subject.ID),
		slog.String("name", name),
		slog.Int("units", len(s.registry.ExtractorIDs())))
	return subject, nil
}

// UpdateSubjectContent replaces the content snapshot and bumps the subject's
// timestamps, which marks every generated document stale.
func (s *Service) UpdateSubjectContent(ctx context.Context, subjectID, content string) error {
	if err := s.stores.Subjects.Touch(ctx, subjectID, content); err != nil {
		return fmt.Errorf("updating subject content: %w", err)
	}
	s.publish(livesync.Event{SubjectID: subjectID, Op: "update"})
	return nil
}

// RunExtraction runs every registered extractor for the subject. Individual
// unit failures are reported in the result map, never as a batch error.
func (s *Service) RunExtraction(ctx context.Context, subjectID string) (map[string]runner.Result, error) {
	subject, err := s.stores.Subjects.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	// Re-seed first so extractors registered after the subject was created
	// still get a unit row.
	if err := s.stores.Units.SeedUnits(ctx, subjectID, s.registry.ExtractorIDs()); err != nil {
		return nil, fmt.Errorf("seeding units: %w", err)
	}

	return s.runner.RunAll(ctx, subject, subject.Content), nil
}

// ListSubjects returns every registered subject.
func (s *Service) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.stores.Subjects.ListSubjects(ctx)
}

// Readiness reports per-template readiness for the subject.
func (s *Service) Readiness(ctx context.Context, subjectID string) (map[string]readiness.Report, error) {
	units, err := s.stores.Units.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return readiness.CheckAll(s.registry, units), nil
}

// GenerateDocument validates readiness, aggregates the completed extractor
// outputs, runs the generator, and persists the outcome as a new row.
func (s *Service) GenerateDocument(ctx context.Context, subjectID, templateID string) (*model.GeneratedDocument, error) {
	subject, err := s.stores.Subjects.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	units, err := s.stores.Units.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	report, err := readiness.Check(s.registry, units, templateID)
	if err != nil {
		return nil, err
	}
	if !report.IsReady {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, readiness.Describe(report))
	}

	inputs := aggregateInputs(units)
	snapshot, err := inputs.MarshalSnapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshotting inputs: %w", err)
	}

	now := time.Now()
	doc := &model.GeneratedDocument{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		TemplateID: templateID,
		Status:     model.DocumentStatusGenerating,
		Inputs:     snapshot,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.stores.Documents.InsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	s.publish(livesync.Event{SubjectID: subjectID, Op: "insert"})

	out, genErr := s.generator.Generate(ctx, subject, templateID, inputs)
	if genErr != nil {
		doc.Status = model.DocumentStatusError
		doc.ErrorMsg = genErr.Error()
	} else {
		doc.Status = model.DocumentStatusComplete
		doc.Title = out.Title
		doc.Content = out.Content
		doc.Markdown = out.Markdown
	}
	if err := s.stores.Documents.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("persisting document outcome: %w", err)
	}
	s.publish(livesync.Event{SubjectID: subjectID, Op: "update"})

	if genErr != nil {
		slog.Error("document generation failed",
			slog.String("subject", subjectID),
			slog.String("template", templateID),
			slog.Any("error", genErr))
	}
	return doc, nil
}

// DeleteDocument removes one generated document.
func (s *Service) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := s.stores.Documents.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.stores.Documents.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	s.publish(livesync.Event{SubjectID: doc.SubjectID, Op: "delete"})
	return nil
}

// ExportDocument pushes a completed document to the external boundary and
// records the returned reference and timestamp. This is the one in-place
// mutation a completed document receives.
func (s *Service) ExportDocument(ctx context.Context, docID string) (string, error) {
	if s.exporter == nil {
		return "", ErrNoExporter
	}
	doc, err := s.stores.Documents.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if doc.Status != model.DocumentStatusComplete {
		return "", fmt.Errorf("document %s is not complete", docID)
	}

	ref, err := s.exporter.Export(ctx, doc.Title, doc.Markdown)
	if err != nil {
		return "", fmt.Errorf("exporting document: %w", err)
	}

	now := time.Now()
	doc.ExternalRef = ref
	doc.ExportedAt = &now
	if err := s.stores.Documents.UpdateDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("recording export reference: %w", err)
	}
	s.publish(livesync.Event{SubjectID: doc.SubjectID, Op: "update"})
	return ref, nil
}

// DocumentStates composes the pure document state model over the subject's
// persisted documents.
func (s *Service) DocumentStates(ctx context.Context, subjectID string) (map[string]docstate.State, error) {
	subject, err := s.stores.Subjects.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	docs, err := s.stores.Documents.ListDocumentsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return docstate.ComputeAll(docs, subject), nil
}

func (s *Service) publish(e livesync.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(e); err != nil {
		// Live sync is best effort; consumers fall back to polling.
		slog.Warn("publishing change event", slog.Any("error", err))
	}
}

// aggregateInputs collects the parsed outputs of complete units.
func aggregateInputs(units []model.ExtractionUnit) model.Outputs {
	out := make(model.Outputs)
	for _, u := range units {
		if u.Status == model.UnitStatusComplete && len(u.Parsed) > 0 {
			out[u.UnitType] = u.Parsed
		}
	}
	return out
}
