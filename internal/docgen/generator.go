// Package docgen runs the document-generation specialization of the
// two-phase protocol: the analysis prompt is built from aggregated extractor
// outputs instead of raw subject content, and a third phase renders the
// parsed structure to markdown. Nothing here persists; the caller owns the
// write so it can pick its own transactional boundary.
package docgen

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/brandintel/internal/llm"
	"git.home.luguber.info/inful/brandintel/internal/metrics"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
)

// Output is a fully generated, not yet persisted document body.
type Output struct {
	TemplateID string
	Title      string
	RawOutput  string
	Content    []byte
	Markdown   string
	HTML       string
	Duration   time.Duration
}

// Generator runs template generations against the LLM boundary.
type Generator struct {
	registry *registry.Registry
	client   llm.Client
	recorder metrics.Recorder
	md       goldmark.Markdown
}

// New creates a generator.
func New(reg *registry.Registry, client llm.Client, recorder metrics.Recorder) *Generator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Generator{
		registry: reg,
		client:   client,
		recorder: recorder,
		md:       goldmark.New(),
	}
}

// Generate runs analysis, parsing, and render for one template over the
// subject's aggregated extractor outputs.
func (g *Generator) Generate(ctx context.Context, subject *model.Subject, templateID string, inputs model.Outputs) (*Output, error) {
	start := time.Now()

	def, err := g.registry.Template(templateID)
	if err != nil {
		return nil, err
	}

	// Analysis phase.
	phaseStart := time.Now()
	raw, err := g.client.Complete(ctx, "", def.BuildPrompt(inputs))
	g.recorder.PhaseDuration(templateID, "analysis", time.Since(phaseStart))
	if err != nil {
		g.recorder.DocumentGenerated(templateID, false)
		return nil, fmt.Errorf("analysis: %w", err)
	}

	// Parsing phase.
	phaseStart = time.Now()
	content, err := g.client.Extract(ctx, raw, def.Parser.SystemPrompt, llm.Schema{
		Name:        def.Parser.SchemaName,
		Description: def.Parser.SchemaDescription,
		Definition:  def.Parser.Schema,
	})
	g.recorder.PhaseDuration(templateID, "parsing", time.Since(phaseStart))
	if err != nil {
		g.recorder.DocumentGenerated(templateID, false)
		return nil, fmt.Errorf("parsing: %w", err)
	}

	if def.Parser.Normalize != nil {
		content, err = def.Parser.Normalize(content)
		if err != nil {
			g.recorder.DocumentGenerated(templateID, false)
			return nil, fmt.Errorf("normalizing: %w", err)
		}
	}

	// Render phase.
	phaseStart = time.Now()
	markdown, err := def.RenderMarkdown(content, subject.Name)
	g.recorder.PhaseDuration(templateID, "render", time.Since(phaseStart))
	if err != nil {
		g.recorder.DocumentGenerated(templateID, false)
		return nil, fmt.Errorf("rendering: %w", err)
	}

	html, err := g.renderHTML(markdown)
	if err != nil {
		// The HTML preview is derived; a conversion failure does not void
		// the generation.
		slog.Warn("html preview failed", slog.String("template", templateID), slog.Any("error", err))
		html = ""
	}

	g.recorder.DocumentGenerated(templateID, true)
	return &Output{
		TemplateID: templateID,
		Title:      g.GenerateTitle(def, inputs),
		RawOutput:  raw,
		Content:    content,
		Markdown:   markdown,
		HTML:       html,
		Duration:   time.Since(start),
	}, nil
}

// GenerateTitle delegates to the template's pure title generator; no
// external call is involved.
func (g *Generator) GenerateTitle(def registry.TemplateDefinition, inputs model.Outputs) string {
	if def.Title == nil {
		return def.DisplayName
	}
	return def.Title(inputs)
}

func (g *Generator) renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
