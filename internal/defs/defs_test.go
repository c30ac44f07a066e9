package defs

import (
	"encoding/json"
	"strings"
	"testing"

	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/runner"
)

func TestLoadRegistersEverything(t *testing.T) {
	reg := Load()

	wantExtractors := []string{
		ExtractorBrandVoice, ExtractorCompanyProfile, ExtractorCompetitors,
		ExtractorProducts, ExtractorAudience,
	}
	for _, id := range wantExtractors {
		if _, err := reg.Extractor(id); err != nil {
			t.Errorf("extractor %s not registered: %v", id, err)
		}
	}
	for _, id := range []string{TemplateBrandBrief, TemplateMarketingPlan} {
		def, err := reg.Template(id)
		if err != nil {
			t.Errorf("template %s not registered: %v", id, err)
			continue
		}
		if !def.Available {
			t.Errorf("template %s not available", id)
		}
	}
}

func TestDependenciesScheduleInEarlierWaves(t *testing.T) {
	reg := Load()
	schedule := runner.BuildSchedule(reg.Extractors())
	if len(schedule.Unscheduled) != 0 {
		t.Fatalf("built-in extractors left unscheduled: %v", schedule.Unscheduled)
	}

	wave := make(map[string]int)
	for i, w := range schedule.Waves {
		for _, id := range w {
			wave[id] = i
		}
	}
	for _, def := range reg.Extractors() {
		for _, dep := range def.DependsOn {
			if wave[dep] >= wave[def.ID] {
				t.Errorf("%s (wave %d) does not run before %s (wave %d)",
					dep, wave[dep], def.ID, wave[def.ID])
			}
		}
	}
}

func TestTemplateRequirementsReferenceKnownExtractors(t *testing.T) {
	reg := Load()
	for _, id := range reg.TemplateIDs() {
		def, err := reg.Template(id)
		if err != nil {
			t.Fatalf("template %s: %v", id, err)
		}
		for _, req := range def.Requires {
			if _, err := reg.Extractor(req); err != nil {
				t.Errorf("template %s requires unknown extractor %s", id, req)
			}
		}
		for extractorID := range def.RequiredFields {
			found := false
			for _, req := range def.Requires {
				if req == extractorID {
					found = true
				}
			}
			if !found {
				t.Errorf("template %s narrows fields of %s without requiring it", id, extractorID)
			}
		}
	}
}

func TestTrimStringsNormalizer(t *testing.T) {
	out, err := trimStrings([]byte(`{"name":"  Acme  ","blank":"   ","nested":{"tone":" direct "},"n":3}`))
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["name"] != "Acme" {
		t.Errorf("name = %q", got["name"])
	}
	if got["blank"] != "" {
		t.Errorf("blank = %q, want empty", got["blank"])
	}
	// Only top-level strings are normalized; nested records and non-string
	// values pass through untouched.
	if nested := got["nested"].(map[string]any); nested["tone"] != " direct " {
		t.Errorf("nested tone = %q", nested["tone"])
	}
	if got["n"] != float64(3) {
		t.Errorf("non-string value changed: %v", got["n"])
	}

	if _, err := trimStrings([]byte("not json")); err == nil {
		t.Error("expected error for malformed record")
	}
}

func TestTitleForUsesProfileName(t *testing.T) {
	inputs := model.Outputs{
		ExtractorCompanyProfile: []byte(`{"name":"acme corp"}`),
	}
	if got := titleFor("Brand Brief", inputs); got != "Acme Corp - Brand Brief" {
		t.Errorf("title = %q", got)
	}
	if got := titleFor("Brand Brief", model.Outputs{}); got != "Brand Brief" {
		t.Errorf("title without profile = %q", got)
	}
	inputs[ExtractorCompanyProfile] = []byte(`{"name":"  "}`)
	if got := titleFor("Brand Brief", inputs); got != "Brand Brief" {
		t.Errorf("title with blank name = %q", got)
	}
}

func TestRenderBrandBrief(t *testing.T) {
	content := []byte(`{
		"positioning_statement": "Anvils for the modern coyote.",
		"identity": "Heavy industry, light touch.",
		"audience": "Desert predators.",
		"voice": "Direct.",
		"key_messages": ["Built to drop.", "Ships anywhere."]
	}`)
	md, err := renderBrandBrief(content, "Acme")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"# Brand Brief: Acme",
		"> Anvils for the modern coyote.",
		"## Key Messages",
		"- Built to drop.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	if _, err := renderBrandBrief([]byte("not json"), "Acme"); err == nil {
		t.Error("expected error for malformed content")
	}
}

func TestRenderMarketingPlanOmitsEmptyMetric(t *testing.T) {
	content := []byte(`{
		"objective": "Grow anvil revenue.",
		"plays": [
			{"segment": "coyotes", "channel": "catalog", "message": "Heavier is better.", "metric": "orders"},
			{"segment": "roadrunners", "channel": "radio", "message": "Stay alert."}
		]
	}`)
	md, err := renderMarketingPlan(content, "Acme")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(md, "## Coyotes") || !strings.Contains(md, "- **Metric:** orders") {
		t.Errorf("markdown missing play detail:\n%s", md)
	}
	if strings.Count(md, "**Metric:**") != 1 {
		t.Errorf("empty metric rendered:\n%s", md)
	}
}
