package model

// RGB is a fill color with 0-255 channels.
type RGB [3]int

// BBox is x0,y0,x1,y1 in page coordinates (y grows downwards).
type BBox [4]float64

func (b BBox) X0() float64 { return b[0] }
func (b BBox) Y0() float64 { return b[1] }
func (b BBox) X1() float64 { return b[2] }
func (b BBox) Y1() float64 { return b[3] }

// Intersects reports whether both boxes overlap with a non-empty area.
// Boxes that only touch at an edge do not intersect.
func (b BBox) Intersects(o BBox) bool {
	return b[0] < o[2] && o[0] < b[2] && b[1] < o[3] && o[1] < b[3]
}

// Span is a positioned text run as emitted by the raw extraction.
// It is also the record format of the raw JSON cache.
type Span struct {
	Data  string `json:"data"`
	Fill  *RGB   `json:"fill"`
	BBox  BBox   `json:"bbox"`
	Page  int    `json:"page"`
	Block int    `json:"block"`
	Line  int    `json:"line"`
}

// FilledRect is a filled drawing on a page.
type FilledRect struct {
	Rect BBox
	Fill RGB
}

// Grid is a detected table as rows of cell texts.
type Grid [][]string
