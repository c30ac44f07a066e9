// Package registry holds the pluggable extractor and document template
// definitions. The registry is populated once at process start and is
// immutable afterwards; lookups for unknown ids fail fast with a distinct
// error so callers can reject requests before any external call is made.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/brandintel/internal/model"
)

var (
	// ErrUnknownExtractor is returned when an extractor id is not registered.
	ErrUnknownExtractor = errors.New("unknown extractor id")
	// ErrUnknownTemplate is returned when a template id is not registered.
	ErrUnknownTemplate = errors.New("unknown template id")
)

// ParserSpec describes the schema-constrained second phase of a unit:
// the system prompt handed to the extraction call, the named JSON schema the
// response must satisfy, and an optional deterministic normalizer applied to
// the parsed record.
type ParserSpec struct {
	SystemPrompt      string
	SchemaName        string
	SchemaDescription string
	Schema            string // JSON schema document

	// Normalize post-processes the parsed record (trim strings, substitute
	// defaults for empty required fields). Pure; no I/O. May be nil.
	Normalize func([]byte) ([]byte, error)
}

// ExtractorDefinition describes one extraction unit type.
type ExtractorDefinition struct {
	ID          string
	DisplayName string
	Description string

	// DependsOn lists extractor ids whose parsed outputs this extractor
	// consumes. Prerequisites are scheduled in strictly earlier waves.
	DependsOn []string

	// BuildPrompt builds the analysis-phase prompt from subject content and
	// the outputs of already-completed prerequisite extractors.
	BuildPrompt func(content string, prior model.Outputs) string

	Parser ParserSpec
}

// FieldRequirement names one field of an extractor's parsed output that a
// template needs populated before it can generate.
type FieldRequirement struct {
	Key         string
	Description string
}

// TemplateDefinition describes one derived document type.
type TemplateDefinition struct {
	ID          string
	DisplayName string
	Description string
	Category    string
	Available   bool

	// Requires lists extractor ids whose completed outputs feed this
	// template; RequiredFields narrows that to specific fields per extractor.
	Requires       []string
	RequiredFields map[string][]FieldRequirement

	// BuildPrompt builds the analysis-phase prompt from the aggregated
	// parsed outputs of the required extractors.
	BuildPrompt func(inputs model.Outputs) string

	Parser ParserSpec

	// RenderMarkdown converts the parsed document content plus the subject's
	// display name into markdown.
	RenderMarkdown func(content []byte, subjectName string) (string, error)

	// Title derives a document title from the aggregated inputs. Pure.
	Title func(inputs model.Outputs) string
}

// Meta is the display metadata exposed for reverse lookup.
type Meta struct {
	ID          string
	DisplayName string
	Description string
	Category    string
}

// Registry maps stable string ids to definitions. Not safe for concurrent
// registration; register everything before handing it out.
type Registry struct {
	extractors map[string]ExtractorDefinition
	templates  map[string]TemplateDefinition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		extractors: make(map[string]ExtractorDefinition),
		templates:  make(map[string]TemplateDefinition),
	}
}

// RegisterExtractor adds an extractor definition. Last registration wins.
func (r *Registry) RegisterExtractor(def ExtractorDefinition) {
	r.extractors[def.ID] = def
}

// RegisterTemplate adds a template definition.
func (r *Registry) RegisterTemplate(def TemplateDefinition) {
	r.templates[def.ID] = def
}

// Extractor retrieves an extractor definition by id.
func (r *Registry) Extractor(id string) (ExtractorDefinition, error) {
	def, ok := r.extractors[id]
	if !ok {
		return ExtractorDefinition{}, fmt.Errorf("%w: %s", ErrUnknownExtractor, id)
	}
	return def, nil
}

// Template retrieves a template definition by id.
func (r *Registry) Template(id string) (TemplateDefinition, error) {
	def, ok := r.templates[id]
	if !ok {
		return TemplateDefinition{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	return def, nil
}

// ExtractorIDs returns all registered extractor ids in sorted order.
func (r *Registry) ExtractorIDs() []string {
	ids := make([]string, 0, len(r.extractors))
	for id := range r.extractors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TemplateIDs returns all registered template ids in sorted order.
func (r *Registry) TemplateIDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Extractors returns all extractor definitions in id order.
func (r *Registry) Extractors() []ExtractorDefinition {
	defs := make([]ExtractorDefinition, 0, len(r.extractors))
	for _, id := range r.ExtractorIDs() {
		defs = append(defs, r.extractors[id])
	}
	return defs
}

// MetaFor returns display metadata for an extractor or template id.
func (r *Registry) MetaFor(id string) (Meta, bool) {
	if def, ok := r.extractors[id]; ok {
		return Meta{ID: def.ID, DisplayName: def.DisplayName, Description: def.Description}, true
	}
	if def, ok := r.templates[id]; ok {
		return Meta{ID: def.ID, DisplayName: def.DisplayName, Description: def.Description, Category: def.Category}, true
	}
	return Meta{}, false
}
