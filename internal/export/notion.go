package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jomei/notionapi"
)

// notionTextLimit is Notion's per-rich-text content cap, counted in
// characters rather than bytes.
const notionTextLimit = 2000

// NotionExporter creates one Notion page per exported document, as children
// of a fixed parent page.
type NotionExporter struct {
	client       *notionapi.Client
	parentPageID string
}

// NewNotionExporter creates an exporter with an integration token and the
// parent page all exported documents are filed under.
func NewNotionExporter(token, parentPageID string) (*NotionExporter, error) {
	if token == "" {
		return nil, fmt.Errorf("notion token is required")
	}
	if parentPageID == "" {
		return nil, fmt.Errorf("notion parent page id is required")
	}
	return &NotionExporter{
		client:       notionapi.NewClient(notionapi.Token(token)),
		parentPageID: parentPageID,
	}, nil
}

// Export creates the page and returns its URL.
func (e *NotionExporter) Export(ctx context.Context, title, markdown string) (string, error) {
	page, err := e.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(e.parentPageID),
		},
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{
				Title: []notionapi.RichText{richText(title)},
			},
		},
		Children: markdownBlocks(markdown),
	})
	if err != nil {
		return "", fmt.Errorf("create notion page: %w", err)
	}

	slog.Info("document exported", slog.String("title", title), slog.String("url", page.URL))
	return page.URL, nil
}

// markdownBlocks converts markdown into a flat list of paragraph blocks, one
// per blank-line-separated chunk. Notion's own markdown import handles
// richer structure; a flat paragraph export keeps the page readable without
// replicating a markdown AST here.
func markdownBlocks(markdown string) []notionapi.Block {
	var blocks []notionapi.Block
	for _, chunk := range strings.Split(markdown, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		runes := []rune(chunk)
		for len(runes) > 0 {
			piece := runes
			if len(piece) > notionTextLimit {
				piece = piece[:notionTextLimit]
			}
			runes = runes[len(piece):]
			blocks = append(blocks, &notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeParagraph,
				},
				Paragraph: notionapi.Paragraph{
					RichText: []notionapi.RichText{richText(string(piece))},
				},
			})
		}
	}
	return blocks
}

func richText(content string) notionapi.RichText {
	return notionapi.RichText{Text: &notionapi.Text{Content: content}}
}
