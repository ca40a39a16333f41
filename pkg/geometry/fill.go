// Package geometry resolves the background color of positioned text.
package geometry

import (
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

// Resolve returns the fill of the first rect (in drawing order) which
// overlaps bbox vertically and intersects it. Returns nil if there is none.
// A rect that only touches the span at an edge is not a match.
// The first match wins even if a later rect covers more of the span.
func Resolve(bbox model.BBox, rects []model.FilledRect) *model.RGB {
	for i := range rects {
		r := rects[i].Rect
		if r.Y0() >= bbox.Y1() || r.Y1() <= bbox.Y0() {
			continue
		}
		if !r.Intersects(bbox) {
			continue
		}
		fill := rects[i].Fill
		return &fill
	}
	return nil
}

// ResolveSpans sets the fill of each span from the rects of its page.
// rectsByPage is indexed by the page number used in the spans.
func ResolveSpans(spans []model.Span, rectsByPage map[int][]model.FilledRect) {
	for i := range spans {
		spans[i].Fill = Resolve(spans[i].BBox, rectsByPage[spans[i].Page])
	}
}

// Near reports whether both colors differ by at most tol per channel.
func Near(a, b model.RGB, tol int) bool {
	for i := range a {
		d := a[i] - b[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}
