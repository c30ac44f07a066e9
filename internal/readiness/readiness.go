// Package readiness determines whether a subject's completed extractor
// outputs satisfy a template's input requirements. Pure; no I/O.
package readiness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
)

// MissingField identifies one required field that is absent or empty in an
// otherwise complete extractor output.
type MissingField struct {
	ExtractorID string
	Key         string
	Description string
}

// Report is the result of a readiness check for one template.
type Report struct {
	TemplateID        string
	MissingExtractors []string
	MissingFields     []MissingField
	IsReady           bool
}

// Check evaluates one template against the subject's units. A required
// extractor counts only when its unit exists, is complete, and carries parsed
// output; a required field counts only when its value is present, non-null,
// and (for strings) non-empty.
func Check(reg *registry.Registry, units []model.ExtractionUnit, templateID string) (Report, error) {
	def, err := reg.Template(templateID)
	if err != nil {
		return Report{}, err
	}

	byType := make(map[string]*model.ExtractionUnit, len(units))
	for i := range units {
		byType[units[i].UnitType] = &units[i]
	}

	report := Report{TemplateID: templateID}
	for _, extractorID := range def.Requires {
		unit, ok := byType[extractorID]
		if !ok || unit.Status != model.UnitStatusComplete || len(unit.Parsed) == 0 {
			report.MissingExtractors = append(report.MissingExtractors, extractorID)
			continue
		}

		var parsed map[string]json.RawMessage
		if err := json.Unmarshal(unit.Parsed, &parsed); err != nil {
			// Unparseable output blocks the whole extractor, not fields.
			report.MissingExtractors = append(report.MissingExtractors, extractorID)
			continue
		}

		for _, field := range def.RequiredFields[extractorID] {
			if !fieldPresent(parsed, field.Key) {
				report.MissingFields = append(report.MissingFields, MissingField{
					ExtractorID: extractorID,
					Key:         field.Key,
					Description: field.Description,
				})
			}
		}
	}

	report.IsReady = len(report.MissingExtractors) == 0 && len(report.MissingFields) == 0
	if !report.IsReady {
		slog.Debug("template not ready",
			slog.String("template", templateID),
			slog.Any("missing_extractors", report.MissingExtractors),
			slog.Int("missing_fields", len(report.MissingFields)))
	}
	return report, nil
}

// CheckAll evaluates every registered template.
func CheckAll(reg *registry.Registry, units []model.ExtractionUnit) map[string]Report {
	reports := make(map[string]Report)
	for _, id := range reg.TemplateIDs() {
		report, err := Check(reg, units, id)
		if err != nil {
			// Registry drift between TemplateIDs and Template; skip.
			continue
		}
		reports[id] = report
	}
	return reports
}

func fieldPresent(parsed map[string]json.RawMessage, key string) bool {
	raw, ok := parsed[key]
	if !ok || len(raw) == 0 {
		return false
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return false
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Describe renders a report as a short human-readable summary, used by the
// status command.
func Describe(r Report) string {
	if r.IsReady {
		return "ready"
	}
	var parts []string
	if len(r.MissingExtractors) > 0 {
		parts = append(parts, fmt.Sprintf("missing extractors: %s", strings.Join(r.MissingExtractors, ", ")))
	}
	if len(r.MissingFields) > 0 {
		keys := make([]string, 0, len(r.MissingFields))
		for _, f := range r.MissingFields {
			keys = append(keys, f.ExtractorID+"."+f.Key)
		}
		parts = append(parts, fmt.Sprintf("missing fields: %s", strings.Join(keys, ", ")))
	}
	return strings.Join(parts, "; ")
}
