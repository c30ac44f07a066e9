// Package store persists subjects, extraction units, and generated documents.
package store

import (
	"context"
	"errors"

	"git.home.luguber.info/inful/brandintel/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// SubjectStore persists subjects. Deleting a subject cascades to its units
// and documents.
type SubjectStore interface {
	Insert(ctx context.Context, s *model.Subject) error
	Get(ctx context.Context, id string) (*model.Subject, error)
	// Touch updates content and bumps ContentUpdatedAt/UpdatedAt. Passing an
	// empty content leaves the snapshot alone and bumps UpdatedAt only.
	Touch(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error

	// ListSubjects returns all subjects ordered by creation time.
	ListSubjects(ctx context.Context) ([]model.Subject, error)
}

// UnitStore persists extraction units under the (subject_id, unit_type)
// natural key. SeedUnits is an explicit idempotent upsert: re-seeding a
// subject never duplicates a unit.
type UnitStore interface {
	// SeedUnits inserts one queued unit per unit type, skipping types that
	// already have a unit for the subject.
	SeedUnits(ctx context.Context, subjectID string, unitTypes []string) error

	// Update replaces the mutable fields of the unit identified by
	// (subject_id, unit_type).
	Update(ctx context.Context, u *model.ExtractionUnit) error

	GetUnit(ctx context.Context, subjectID, unitType string) (*model.ExtractionUnit, error)

	// ListBySubject returns all units for a subject ordered by creation time.
	ListBySubject(ctx context.Context, subjectID string) ([]model.ExtractionUnit, error)
}

// DocumentStore persists generated documents.
type DocumentStore interface {
	InsertDocument(ctx context.Context, d *model.GeneratedDocument) error
	UpdateDocument(ctx context.Context, d *model.GeneratedDocument) error
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*model.GeneratedDocument, error)

	// ListDocumentsBySubject returns all documents for a subject ordered by
	// creation time descending.
	ListDocumentsBySubject(ctx context.Context, subjectID string) ([]model.GeneratedDocument, error)
}
