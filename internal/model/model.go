// Package model defines the persisted entities of the extraction pipeline:
// subjects, extraction units, and generated documents.
package model

import (
	"encoding/json"
	"time"
)

// UnitStatus represents the lifecycle state of an extraction unit.
type UnitStatus string

const (
	UnitStatusQueued    UnitStatus = "queued"
	UnitStatusAnalyzing UnitStatus = "analyzing"
	UnitStatusParsing   UnitStatus = "parsing"
	UnitStatusComplete  UnitStatus = "complete"
	UnitStatusError     UnitStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s UnitStatus) Terminal() bool {
	return s == UnitStatusComplete || s == UnitStatusError
}

// DocumentStatus represents the lifecycle state of a generated document.
type DocumentStatus string

const (
	DocumentStatusGenerating DocumentStatus = "generating"
	DocumentStatusComplete   DocumentStatus = "complete"
	DocumentStatusError      DocumentStatus = "error"
)

// Subject is the business entity being analyzed. Deleting a subject
// cascades to its units and documents at the storage layer.
type Subject struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Content          string    `json:"content"`
	ContentUpdatedAt time.Time `json:"content_updated_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	CreatedAt        time.Time `json:"created_at"`
	OwnerID          string    `json:"owner_id,omitempty"`
}

// ExtractionUnit is the persisted execution record of one extractor for one
// subject. Exactly one unit exists per (SubjectID, UnitType); units are
// created in bulk at subject registration and mutated only by the runner.
type ExtractionUnit struct {
	ID           string          `json:"id"`
	SubjectID    string          `json:"subject_id"`
	UnitType     string          `json:"unit_type"`
	Status       UnitStatus      `json:"status"`
	RawOutput    string          `json:"raw_output,omitempty"`
	Parsed       json.RawMessage `json:"parsed,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	RetryCount   int             `json:"retry_count"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// GeneratedDocument is one derived document for a subject. Content and
// Markdown are populated only when Status is complete. Regeneration inserts
// a new row; completed rows are never rewritten except to record an export
// reference.
type GeneratedDocument struct {
	ID          string          `json:"id"`
	SubjectID   string          `json:"subject_id"`
	TemplateID  string          `json:"template_id"`
	Status      DocumentStatus  `json:"status"`
	Title       string          `json:"title,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Markdown    string          `json:"markdown,omitempty"`
	Inputs      json.RawMessage `json:"inputs,omitempty"`
	ErrorMsg    string          `json:"error_message,omitempty"`
	ExternalRef string          `json:"external_ref,omitempty"`
	ExportedAt  *time.Time      `json:"exported_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Outputs is the read-only snapshot of parsed extractor outputs keyed by
// extractor id. Later waves and document templates consume it; entries for
// failed extractors are simply absent.
type Outputs map[string]json.RawMessage

// Clone returns a shallow copy so callers can extend a snapshot without
// mutating the one handed to concurrently running units.
func (o Outputs) Clone() Outputs {
	c := make(Outputs, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// MarshalSnapshot serializes the snapshot for storage alongside a document,
// preserving exactly which inputs fed a generation.
func (o Outputs) MarshalSnapshot() (json.RawMessage, error) {
	return json.Marshal(o)
}
