// Package defs registers the built-in extractor and document template
// definitions. Everything here is data plus pure functions: prompt builders,
// JSON schemas, normalizers, and markdown renderers. The registry is built
// once at startup via Load.
package defs

import (
	"encoding/json"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
)

// Extractor ids. Dependent extractors reference these constants, never raw
// strings, so a rename shows up at compile time.
const (
	ExtractorCompanyProfile = "company_profile"
	ExtractorProducts       = "products"
	ExtractorAudience       = "target_audience"
	ExtractorCompetitors    = "competitors"
	ExtractorBrandVoice     = "brand_voice"
)

// Load builds the registry with every built-in definition.
func Load() *registry.Registry {
	reg := registry.New()
	for _, def := range extractorDefs() {
		reg.RegisterExtractor(def)
	}
	for _, def := range templateDefs() {
		reg.RegisterTemplate(def)
	}
	return reg
}

func extractorDefs() []registry.ExtractorDefinition {
	return []registry.ExtractorDefinition{
		{
			ID:          ExtractorCompanyProfile,
			DisplayName: "Company Profile",
			Description: "Core identity: what the company is, does, and sells to whom.",
			BuildPrompt: func(content string, _ model.Outputs) string {
				var b strings.Builder
				b.WriteString("Analyze the following website content and describe the company: ")
				b.WriteString("its name, what it does, its industry, its mission, and its value proposition.\n\n")
				b.WriteString(content)
				return b.String()
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the company profile from the analysis as structured data.",
				SchemaName:        "company_profile",
				SchemaDescription: "Structured company identity record",
				Schema: objectSchema(map[string]string{
					"name":              "string",
					"industry":          "string",
					"mission":           "string",
					"value_proposition": "string",
					"summary":           "string",
				}, "name", "summary"),
				Normalize: trimStrings,
			},
		},
		{
			ID:          ExtractorProducts,
			DisplayName: "Products & Services",
			Description: "The catalog of offerings found in the content.",
			BuildPrompt: func(content string, _ model.Outputs) string {
				return "List every product or service mentioned in the following content, " +
					"with a short description and target buyer for each.\n\n" + content
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the offerings from the analysis as structured data.",
				SchemaName:        "products",
				SchemaDescription: "Offerings catalog",
				Schema: `{
  "type": "object",
  "properties": {
    "offerings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "target_buyer": {"type": "string"}
        },
        "required": ["name", "description"]
      }
    }
  },
  "required": ["offerings"]
}`,
				Normalize: trimStrings,
			},
		},
		{
			ID:          ExtractorAudience,
			DisplayName: "Target Audience",
			Description: "Who the company sells to, derived from profile and offerings.",
			DependsOn:   []string{ExtractorCompanyProfile, ExtractorProducts},
			BuildPrompt: func(content string, prior model.Outputs) string {
				var b strings.Builder
				b.WriteString("Using the company profile and offerings below, describe the target audience: ")
				b.WriteString("segments, demographics, and the pain points each segment brings.\n\n")
				writePrior(&b, prior, ExtractorCompanyProfile, ExtractorProducts)
				b.WriteString("\nSource content:\n")
				b.WriteString(content)
				return b.String()
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the audience segments from the analysis as structured data.",
				SchemaName:        "target_audience",
				SchemaDescription: "Audience segments",
				Schema: `{
  "type": "object",
  "properties": {
    "segments": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "pain_points": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["name", "description"]
      }
    },
    "primary_segment": {"type": "string"}
  },
  "required": ["segments", "primary_segment"]
}`,
				Normalize: trimStrings,
			},
		},
		{
			ID:          ExtractorCompetitors,
			DisplayName: "Competitive Landscape",
			Description: "Named or implied competitors and differentiation.",
			DependsOn:   []string{ExtractorCompanyProfile},
			BuildPrompt: func(content string, prior model.Outputs) string {
				var b strings.Builder
				b.WriteString("Given the company profile below, identify competitors named or implied ")
				b.WriteString("in the content and how the company differentiates from them.\n\n")
				writePrior(&b, prior, ExtractorCompanyProfile)
				b.WriteString("\nSource content:\n")
				b.WriteString(content)
				return b.String()
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the competitive landscape from the analysis as structured data.",
				SchemaName:        "competitors",
				SchemaDescription: "Competitive landscape",
				Schema: `{
  "type": "object",
  "properties": {
    "competitors": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "differentiation": {"type": "string"}
        },
        "required": ["name"]
      }
    },
    "positioning": {"type": "string"}
  },
  "required": ["positioning"]
}`,
				Normalize: trimStrings,
			},
		},
		{
			ID:          ExtractorBrandVoice,
			DisplayName: "Brand Voice",
			Description: "Tone, vocabulary, and messaging style of the content.",
			BuildPrompt: func(content string, _ model.Outputs) string {
				return "Describe the brand voice of the following content: tone, vocabulary, " +
					"recurring phrases, and the personality it projects.\n\n" + content
			},
			Parser: registry.ParserSpec{
				SystemPrompt:      "Extract the brand voice from the analysis as structured data.",
				SchemaName:        "brand_voice",
				SchemaDescription: "Voice and tone record",
				Schema: objectSchema(map[string]string{
					"tone":        "string",
					"personality": "string",
					"vocabulary":  "string",
				}, "tone"),
				Normalize: trimStrings,
			},
		},
	}
}

// writePrior appends labeled prior outputs in a stable order.
func writePrior(b *strings.Builder, prior model.Outputs, ids ...string) {
	for _, id := range ids {
		out, ok := prior[id]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "%s:\n%s\n\n", id, string(out))
	}
}

// objectSchema builds a flat object schema with string-typed properties.
func objectSchema(props map[string]string, required ...string) string {
	properties := make(map[string]map[string]string, len(props))
	for name, typ := range props {
		properties[name] = map[string]string{"type": typ}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	data, _ := json.MarshalIndent(schema, "", "  ")
	return string(data)
}

// trimStrings trims every top-level string field of the parsed record, so a
// whitespace-only value reads as empty to the required-field checks.
func trimStrings(parsed []byte) ([]byte, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(parsed, &record); err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	for key, raw := range record {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue // not a string field
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == s {
			continue
		}
		enc, err := json.Marshal(trimmed)
		if err != nil {
			return nil, fmt.Errorf("normalizer: %w", err)
		}
		record[key] = enc
	}
	return json.Marshal(record)
}
