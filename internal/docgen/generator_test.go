package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"git.home.luguber.info/inful/brandintel/internal/llm"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/registry"
)

type scriptedClient struct {
	completeErr error
	extractErr  error
	record      string
}

func (s *scriptedClient) Complete(_ context.Context, _, prompt string) (string, error) {
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return "analysis of: " + prompt, nil
}

func (s *scriptedClient) Extract(_ context.Context, _, _ string, _ llm.Schema) ([]byte, error) {
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return []byte(s.record), nil
}

func briefRegistry(renderErr error) *registry.Registry {
	reg := registry.New()
	reg.RegisterTemplate(registry.TemplateDefinition{
		ID:          "brief",
		DisplayName: "Brand Brief",
		BuildPrompt: func(inputs model.Outputs) string {
			return fmt.Sprintf("brief over %d inputs", len(inputs))
		},
		Parser: registry.ParserSpec{
			SchemaName: "brief_record",
			Schema:     `{"type":"object"}`,
			Normalize: func(b []byte) ([]byte, error) {
				return []byte(strings.ReplaceAll(string(b), "  ", " ")), nil
			},
		},
		RenderMarkdown: func(content []byte, subjectName string) (string, error) {
			if renderErr != nil {
				return "", renderErr
			}
			return "# Brief for " + subjectName, nil
		},
		Title: func(_ model.Outputs) string { return "Brand Brief" },
	})
	return reg
}

func testSubject() *model.Subject {
	return &model.Subject{ID: "sub-1", Name: "Acme", CreatedAt: time.Now()}
}

func TestGenerateRunsAllPhases(t *testing.T) {
	client := &scriptedClient{record: `{"summary":"anvils,  fast"}`}
	gen := New(briefRegistry(nil), client, nil)

	out, err := gen.Generate(context.Background(), testSubject(), "brief",
		model.Outputs{"profile": []byte(`{"name":"Acme"}`)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Title != "Brand Brief" {
		t.Errorf("title = %q", out.Title)
	}
	if out.Markdown != "# Brief for Acme" {
		t.Errorf("markdown = %q", out.Markdown)
	}
	// The normalizer ran over the parsed record.
	if string(out.Content) != `{"summary":"anvils, fast"}` {
		t.Errorf("content = %s", out.Content)
	}
	if !strings.Contains(out.HTML, "<h1") {
		t.Errorf("expected rendered HTML preview, got %q", out.HTML)
	}
	if out.RawOutput == "" {
		t.Error("raw analysis output not retained")
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	gen := New(briefRegistry(nil), &scriptedClient{record: `{}`}, nil)
	_, err := gen.Generate(context.Background(), testSubject(), "nope", nil)
	if !errors.Is(err, registry.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestGeneratePhaseFailures(t *testing.T) {
	cases := []struct {
		name   string
		client *scriptedClient
		reg    *registry.Registry
		want   string
	}{
		{"analysis", &scriptedClient{completeErr: errors.New("boom")}, briefRegistry(nil), "analysis"},
		{"parsing", &scriptedClient{extractErr: errors.New("boom")}, briefRegistry(nil), "parsing"},
		{"render", &scriptedClient{record: `{}`}, briefRegistry(errors.New("boom")), "rendering"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := New(tc.reg, tc.client, nil)
			_, err := gen.Generate(context.Background(), testSubject(), "brief", nil)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %s failure, got %v", tc.want, err)
			}
		})
	}
}

func TestGenerateTitleFallsBackToDisplayName(t *testing.T) {
	gen := New(briefRegistry(nil), &scriptedClient{record: `{}`}, nil)
	def := registry.TemplateDefinition{DisplayName: "Marketing Plan"}
	if got := gen.GenerateTitle(def, nil); got != "Marketing Plan" {
		t.Errorf("title = %q, want display name fallback", got)
	}
}
