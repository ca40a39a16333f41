// Package extract provides the raw PDF collaborators: positioned spans,
// filled rectangles and detected table grids.
package extract

import (
	"context"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

// Page is the raw content of one page in top-down coordinates.
type Page struct {
	Number int // 0-based
	Width  float64
	Height float64
	Spans  []model.Span
	Rects  []model.FilledRect // drawing order
}

// Extractor delivers spans (with block/line indices) and filled rects per page.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}

// TableDetector delivers the candidate table grids of a page (0-based).
type TableDetector interface {
	DetectTables(ctx context.Context, path string, page int) ([]model.Grid, error)
}
