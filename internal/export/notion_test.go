package export

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jomei/notionapi"
)

func paragraphText(t *testing.T, block notionapi.Block) string {
	t.Helper()
	p, ok := block.(*notionapi.ParagraphBlock)
	if !ok {
		t.Fatalf("block type = %T, want *notionapi.ParagraphBlock", block)
	}
	return p.Paragraph.RichText[0].Text.Content
}

func TestMarkdownBlocksSplitsOnBlankLines(t *testing.T) {
	blocks := markdownBlocks("# Title\n\nfirst paragraph\n\n\n\nsecond paragraph\n")
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if got := paragraphText(t, blocks[1]); got != "first paragraph" {
		t.Errorf("block 1 = %q", got)
	}
	if got := paragraphText(t, blocks[2]); got != "second paragraph" {
		t.Errorf("block 2 = %q", got)
	}
}

func TestMarkdownBlocksSplitsLongChunks(t *testing.T) {
	blocks := markdownBlocks(strings.Repeat("x", notionTextLimit+100))
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if got := len(paragraphText(t, blocks[0])); got != notionTextLimit {
		t.Errorf("first piece length = %d, want %d", got, notionTextLimit)
	}
	if got := len(paragraphText(t, blocks[1])); got != 100 {
		t.Errorf("second piece length = %d, want 100", got)
	}
}

// A long run of multi-byte text must split on character count, never mid-rune.
func TestMarkdownBlocksSplitsOnRuneBoundaries(t *testing.T) {
	blocks := markdownBlocks(strings.Repeat("é", notionTextLimit+400))
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	first := paragraphText(t, blocks[0])
	second := paragraphText(t, blocks[1])
	if !utf8.ValidString(first) || !utf8.ValidString(second) {
		t.Fatal("split produced invalid utf-8")
	}
	if got := utf8.RuneCountInString(first); got != notionTextLimit {
		t.Errorf("first piece = %d characters, want %d", got, notionTextLimit)
	}
	if got := utf8.RuneCountInString(second); got != 400 {
		t.Errorf("second piece = %d characters, want 400", got)
	}
}
