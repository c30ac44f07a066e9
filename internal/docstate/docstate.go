// Package docstate derives document freshness, export state, and the
// suggested next action from timestamps alone. Everything here is pure:
// identical inputs always yield identical outputs, and nothing touches I/O.
package docstate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/brandintel/internal/model"
)

// GenerationState describes whether a document exists and is current.
type GenerationState string

const (
	NeverGenerated GenerationState = "never_generated"
	GeneratedStale GenerationState = "generated_stale"
	GeneratedFresh GenerationState = "generated_fresh"
)

// ExportState describes the document's relationship to its external copy.
type ExportState string

const (
	NotExported     ExportState = "not_exported"
	ExportedStale   ExportState = "exported_stale"
	ExportedCurrent ExportState = "exported_current"
)

// PrimaryAction is the suggested next user action.
type PrimaryAction string

const (
	ActionGenerate       PrimaryAction = "generate"
	ActionView           PrimaryAction = "view"
	ActionViewRegenerate PrimaryAction = "view_and_regenerate"
	ActionOpenExternal   PrimaryAction = "open_in_external"
)

// State is the composed per-template document state.
type State struct {
	TemplateID  string
	Latest      *model.GeneratedDocument
	Generations int
	Generation  GenerationState
	Export      ExportState
	Action      PrimaryAction
	StatusLine  string
}

// ComputeGenerationState derives freshness from the latest document and the
// subject's updated-at. Any subject mutation after document creation
// invalidates it, regardless of which field changed; the invalidation is
// deliberately coarse.
func ComputeGenerationState(latest *model.GeneratedDocument, subjectUpdatedAt time.Time) GenerationState {
	if latest == nil {
		return NeverGenerated
	}
	if subjectUpdatedAt.After(latest.CreatedAt) {
		return GeneratedStale
	}
	return GeneratedFresh
}

// ComputeExportState derives the export state from the latest document.
func ComputeExportState(latest *model.GeneratedDocument) ExportState {
	if latest == nil || latest.ExternalRef == "" || latest.ExportedAt == nil {
		return NotExported
	}
	if latest.CreatedAt.After(*latest.ExportedAt) {
		return ExportedStale
	}
	return ExportedCurrent
}

// DeterminePrimaryAction maps every generation/export combination to one
// action. Total over the 3x3 space.
func DeterminePrimaryAction(gen GenerationState, exp ExportState) PrimaryAction {
	switch gen {
	case NeverGenerated:
		return ActionGenerate
	case GeneratedStale:
		return ActionViewRegenerate
	default: // GeneratedFresh
		if exp == ExportedCurrent {
			return ActionOpenExternal
		}
		return ActionView
	}
}

// Compute sorts the template's documents newest-first, takes the head as the
// latest, and composes the three derivations plus a human status line.
func Compute(templateID string, docs []model.GeneratedDocument, subject *model.Subject) State {
	sorted := make([]model.GeneratedDocument, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var latest *model.GeneratedDocument
	if len(sorted) > 0 {
		latest = &sorted[0]
	}

	gen := ComputeGenerationState(latest, subject.UpdatedAt)
	exp := ComputeExportState(latest)

	return State{
		TemplateID:  templateID,
		Latest:      latest,
		Generations: len(sorted),
		Generation:  gen,
		Export:      exp,
		Action:      DeterminePrimaryAction(gen, exp),
		StatusLine:  statusLine(latest, gen, exp),
	}
}

// ComputeAll groups documents by template id and computes each state.
func ComputeAll(docs []model.GeneratedDocument, subject *model.Subject) map[string]State {
	grouped := make(map[string][]model.GeneratedDocument)
	for _, d := range docs {
		grouped[d.TemplateID] = append(grouped[d.TemplateID], d)
	}

	states := make(map[string]State, len(grouped))
	for templateID, group := range grouped {
		states[templateID] = Compute(templateID, group, subject)
	}
	return states
}

func statusLine(latest *model.GeneratedDocument, gen GenerationState, exp ExportState) string {
	if latest == nil {
		return "Not generated"
	}

	parts := []string{fmt.Sprintf("Generated %s", latest.CreatedAt.Format("Jan 2"))}
	if gen == GeneratedStale {
		parts = append(parts, "data updated")
	}
	switch exp {
	case ExportedCurrent:
		parts = append(parts, "in external doc")
	case ExportedStale:
		parts = append(parts, "external doc outdated")
	}
	return strings.Join(parts, " • ")
}
