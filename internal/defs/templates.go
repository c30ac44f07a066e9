package defs

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
)

// Template ids.
const (
	TemplateBrandBrief    = "brand_brief"
	TemplateMarketingPlan = "marketing_plan"
)

var titleCaser = cases.Title(language.English)

func templateDefs() []registry.TemplateDefinition {
	return []registry.TemplateDefinition{
		{
			ID:          TemplateBrandBrief,
			DisplayName: "Brand Brief",
			Description: "A one-page summary of identity, audience, and positioning.",
			Category:    "strategy",
			Available:   true,
			Requires:    []string{ExtractorCompanyProfile, ExtractorAudience, ExtractorBrandVoice},
			RequiredFields: map[string][]registry.FieldRequirement{
				ExtractorCompanyProfile: {
					{Key: "name", Description: "Company name"},
					{Key: "summary", Description: "Company summary"},
				},
				ExtractorAudience: {
					{Key: "primary_segment", Description: "Primary audience segment"},
				},
				ExtractorBrandVoice: {
					{Key: "tone", Description: "Brand tone of voice"},
				},
			},
			BuildPrompt: func(inputs model.Outputs) string {
				var b strings.Builder
				b.WriteString("Write a concise brand brief from the structured intelligence below: ")
				b.WriteString("identity, audience, voice, and the positioning statement that ties them together.\n\n")
				writePrior(&b, inputs, ExtractorCompanyProfile, ExtractorAudience, ExtractorBrandVoice)
				return b.String()
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the brand brief from the analysis as structured data.",
				SchemaName:        "brand_brief",
				SchemaDescription: "One-page brand brief",
				Schema: `{
  "type": "object",
  "properties": {
    "positioning_statement": {"type": "string"},
    "identity": {"type": "string"},
    "audience": {"type": "string"},
    "voice": {"type": "string"},
    "key_messages": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["positioning_statement", "identity", "audience", "voice"]
}`,
				Normalize: trimStrings,
			},
			RenderMarkdown: renderBrandBrief,
			Title: func(inputs model.Outputs) string {
				return titleFor("Brand Brief", inputs)
			},
		},
		{
			ID:          TemplateMarketingPlan,
			DisplayName: "Marketing Plan",
			Description: "Channel and campaign recommendations per audience segment.",
			Category:    "marketing",
			Available:   true,
			Requires:    []string{ExtractorCompanyProfile, ExtractorProducts, ExtractorAudience, ExtractorCompetitors},
			RequiredFields: map[string][]registry.FieldRequirement{
				ExtractorCompanyProfile: {
					{Key: "name", Description: "Company name"},
				},
				ExtractorCompetitors: {
					{Key: "positioning", Description: "Competitive positioning"},
				},
			},
			BuildPrompt: func(inputs model.Outputs) string {
				var b strings.Builder
				b.WriteString("Draft a marketing plan from the structured intelligence below: ")
				b.WriteString("one play per audience segment, with channel, message, and success metric.\n\n")
				writePrior(&b, inputs, ExtractorCompanyProfile, ExtractorProducts, ExtractorAudience, ExtractorCompetitors)
				return b.String()
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the marketing plan from the analysis as structured data.",
				SchemaName:        "marketing_plan",
				SchemaDescription: "Marketing plan with per-segment plays",
				Schema: `{
  "type": "object",
  "properties": {
    "objective": {"type": "string"},
    "plays": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "segment": {"type": "string"},
          "channel": {"type": "string"},
          "message": {"type": "string"},
          "metric": {"type": "string"}
        },
        "required": ["segment", "channel", "message"]
      }
    }
  },
  "required": ["objective", "plays"]
}`,
				Normalize: trimStrings,
			},
			RenderMarkdown: renderMarketingPlan,
			Title: func(inputs model.Outputs) string {
				return titleFor("Marketing Plan", inputs)
			},
		},
	}
}

// titleFor prefixes the document kind with the company name when the profile
// extractor produced one.
func titleFor(kind string, inputs model.Outputs) string {
	profile, ok := inputs[ExtractorCompanyProfile]
	if !ok {
		return kind
	}
	var record struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(profile, &record); err != nil || strings.TrimSpace(record.Name) == "" {
		return kind
	}
	return fmt.Sprintf("%s - %s", titleCaser.String(record.Name), kind)
}

func renderBrandBrief(content []byte, subjectName string) (string, error) {
	var brief struct {
		PositioningStatement string   `json:"positioning_statement"`
		Identity             string   `json:"identity"`
		Audience             string   `json:"audience"`
		Voice                string   `json:"voice"`
		KeyMessages          []string `json:"key_messages"`
	}
	if err := json.Unmarshal(content, &brief); err != nil {
		return "", fmt.Errorf("brand brief content: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Brand Brief: %s\n\n", subjectName)
	fmt.Fprintf(&b, "> %s\n\n", brief.PositioningStatement)
	fmt.Fprintf(&b, "## Identity\n\n%s\n\n", brief.Identity)
	fmt.Fprintf(&b, "## Audience\n\n%s\n\n", brief.Audience)
	fmt.Fprintf(&b, "## Voice\n\n%s\n", brief.Voice)
	if len(brief.KeyMessages) > 0 {
		b.WriteString("\n## Key Messages\n\n")
		for _, msg := range brief.KeyMessages {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}
	return b.String(), nil
}

func renderMarketingPlan(content []byte, subjectName string) (string, error) {
	var plan struct {
		Objective string `json:"objective"`
		Plays     []struct {
			Segment string `json:"segment"`
			Channel string `json:"channel"`
			Message string `json:"message"`
			Metric  string `json:"metric"`
		} `json:"plays"`
	}
	if err := json.Unmarshal(content, &plan); err != nil {
		return "", fmt.Errorf("marketing plan content: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Marketing Plan: %s\n\n", subjectName)
	fmt.Fprintf(&b, "**Objective:** %s\n", plan.Objective)
	for _, play := range plan.Plays {
		fmt.Fprintf(&b, "\n## %s\n\n", titleCaser.String(play.Segment))
		fmt.Fprintf(&b, "- **Channel:** %s\n", play.Channel)
		fmt.Fprintf(&b, "- **Message:** %s\n", play.Message)
		if play.Metric != "" {
			fmt.Fprintf(&b, "- **Metric:** %s\n", play.Metric)
		}
	}
	return b.String(), nil
}
