package readiness

import (
	"encoding/json"
	"testing"

	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterExtractor(registry.ExtractorDefinition{ID: "profile"})
	reg.RegisterExtractor(registry.ExtractorDefinition{ID: "voice"})
	reg.RegisterTemplate(registry.TemplateDefinition{
		ID:       "brief",
		Requires: []string{"profile", "voice"},
		RequiredFields: map[string][]registry.FieldRequirement{
			"profile": {
				{Key: "name", Description: "Company name"},
				{Key: "summary", Description: "Company summary"},
			},
		},
	})
	reg.RegisterTemplate(registry.TemplateDefinition{
		ID:       "plan",
		Requires: []string{"profile"},
	})
	return reg
}

func completeUnit(unitType string, parsed map[string]any) model.ExtractionUnit {
	data, _ := json.Marshal(parsed)
	return model.ExtractionUnit{
		UnitType: unitType,
		Status:   model.UnitStatusComplete,
		Parsed:   data,
	}
}

func TestCheckReady(t *testing.T) {
	units := []model.ExtractionUnit{
		completeUnit("profile", map[string]any{"name": "Acme", "summary": "Makes anvils"}),
		completeUnit("voice", map[string]any{"tone": "dry"}),
	}

	report, err := Check(testRegistry(), units, "brief")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.IsReady {
		t.Fatalf("expected ready, got %+v", report)
	}
	if len(report.MissingExtractors) != 0 || len(report.MissingFields) != 0 {
		t.Errorf("ready report must have no gaps: %+v", report)
	}
}

func TestCheckMissingExtractor(t *testing.T) {
	units := []model.ExtractionUnit{
		completeUnit("profile", map[string]any{"name": "Acme", "summary": "x"}),
		// voice unit exists but never completed
		{UnitType: "voice", Status: model.UnitStatusQueued},
	}

	report, err := Check(testRegistry(), units, "brief")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.IsReady {
		t.Fatal("incomplete extractor must block readiness")
	}
	if len(report.MissingExtractors) != 1 || report.MissingExtractors[0] != "voice" {
		t.Errorf("missing extractors = %v, want [voice]", report.MissingExtractors)
	}
}

func TestCheckCompleteWithoutParsedOutputIsMissing(t *testing.T) {
	units := []model.ExtractionUnit{
		{UnitType: "profile", Status: model.UnitStatusComplete}, // no parsed payload
		completeUnit("voice", map[string]any{"tone": "dry"}),
	}

	report, _ := Check(testRegistry(), units, "brief")
	if report.IsReady {
		t.Fatal("complete unit without parsed output must count as missing")
	}
}

func TestCheckMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		parsed map[string]any
	}{
		{"absent key", map[string]any{"name": "Acme"}},
		{"null value", map[string]any{"name": "Acme", "summary": nil}},
		{"empty string", map[string]any{"name": "Acme", "summary": ""}},
		{"whitespace string", map[string]any{"name": "Acme", "summary": "   "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			units := []model.ExtractionUnit{
				completeUnit("profile", tc.parsed),
				completeUnit("voice", map[string]any{"tone": "dry"}),
			}
			report, _ := Check(testRegistry(), units, "brief")
			if report.IsReady {
				t.Fatal("gap in required field must block readiness")
			}
			if len(report.MissingFields) != 1 {
				t.Fatalf("missing fields = %+v, want exactly one", report.MissingFields)
			}
			mf := report.MissingFields[0]
			if mf.ExtractorID != "profile" || mf.Key != "summary" {
				t.Errorf("missing field = %+v, want profile.summary", mf)
			}
			if mf.Description == "" {
				t.Error("missing field must carry its description")
			}
		})
	}
}

// Populating a previously missing field can only flip readiness false->true.
func TestReadinessMonotonic(t *testing.T) {
	reg := testRegistry()
	incomplete := []model.ExtractionUnit{
		completeUnit("profile", map[string]any{"name": "Acme"}),
		completeUnit("voice", map[string]any{"tone": "dry"}),
	}
	before, _ := Check(reg, incomplete, "brief")
	if before.IsReady {
		t.Fatal("setup: report should not be ready yet")
	}

	filled := []model.ExtractionUnit{
		completeUnit("profile", map[string]any{"name": "Acme", "summary": "Makes anvils"}),
		completeUnit("voice", map[string]any{"tone": "dry"}),
	}
	after, _ := Check(reg, filled, "brief")
	if !after.IsReady {
		t.Fatal("filling the gap must make the template ready")
	}
}

func TestCheckUnknownTemplate(t *testing.T) {
	_, err := Check(testRegistry(), nil, "nope")
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestCheckNonStringFieldPresence(t *testing.T) {
	reg := registry.New()
	reg.RegisterExtractor(registry.ExtractorDefinition{ID: "products"})
	reg.RegisterTemplate(registry.TemplateDefinition{
		ID:       "catalog",
		Requires: []string{"products"},
		RequiredFields: map[string][]registry.FieldRequirement{
			"products": {{Key: "offerings", Description: "Offerings list"}},
		},
	})

	// A non-string value (even an empty array) counts as present; only null
	// and empty strings are gaps.
	units := []model.ExtractionUnit{completeUnit("products", map[string]any{"offerings": []string{}})}
	report, _ := Check(reg, units, "catalog")
	if !report.IsReady {
		t.Errorf("non-null array value must count as present: %+v", report)
	}
}

func TestCheckAll(t *testing.T) {
	units := []model.ExtractionUnit{
		completeUnit("profile", map[string]any{"name": "Acme", "summary": "x"}),
	}
	reports := CheckAll(testRegistry(), units)
	if len(reports) != 2 {
		t.Fatalf("expected a report per template, got %d", len(reports))
	}
	if reports["brief"].IsReady {
		t.Error("brief requires the voice extractor")
	}
	if !reports["plan"].IsReady {
		t.Error("plan only needs the profile extractor")
	}
}
