// Package export pushes rendered documents to an external destination. The
// core only records the returned reference and timestamp; everything about
// the destination's data model stays behind the Exporter boundary.
package export

import "context"

// Exporter publishes rendered markdown under a title and returns an external
// reference (typically a URL).
type Exporter interface {
	Export(ctx context.Context, title, markdown string) (string, error)
}
