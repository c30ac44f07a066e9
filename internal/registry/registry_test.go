package registry

import (
	"errors"
	"reflect"
	"testing"
)

func populated() *Registry {
	r := New()
	r.RegisterExtractor(ExtractorDefinition{ID: "products", DisplayName: "Products"})
	r.RegisterExtractor(ExtractorDefinition{ID: "company_profile", DisplayName: "Company Profile"})
	r.RegisterTemplate(TemplateDefinition{ID: "brand_brief", DisplayName: "Brand Brief", Category: "strategy"})
	return r
}

func TestLookupUnknownIDs(t *testing.T) {
	r := populated()
	if _, err := r.Extractor("nope"); !errors.Is(err, ErrUnknownExtractor) {
		t.Errorf("expected ErrUnknownExtractor, got %v", err)
	}
	if _, err := r.Template("nope"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
	if _, err := r.Extractor("company_profile"); err != nil {
		t.Errorf("known extractor lookup failed: %v", err)
	}
}

func TestIDsAreSorted(t *testing.T) {
	r := populated()
	want := []string{"company_profile", "products"}
	if got := r.ExtractorIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractorIDs = %v, want %v", got, want)
	}
	defs := r.Extractors()
	if len(defs) != 2 || defs[0].ID != "company_profile" {
		t.Errorf("Extractors not in id order: %v", defs)
	}
}

func TestLastRegistrationWins(t *testing.T) {
	r := populated()
	r.RegisterExtractor(ExtractorDefinition{ID: "products", DisplayName: "Product Catalog"})
	def, err := r.Extractor("products")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if def.DisplayName != "Product Catalog" {
		t.Errorf("DisplayName = %q, want re-registered value", def.DisplayName)
	}
}

func TestMetaFor(t *testing.T) {
	r := populated()
	meta, ok := r.MetaFor("brand_brief")
	if !ok || meta.Category != "strategy" {
		t.Errorf("MetaFor(brand_brief) = %+v, %v", meta, ok)
	}
	if _, ok := r.MetaFor("nope"); ok {
		t.Error("MetaFor returned metadata for unknown id")
	}
}
