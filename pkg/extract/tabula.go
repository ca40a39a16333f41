package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/layout"
	tmodel "github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

type (
	Tabula struct {
		blocks *layout.BlockDetector
		l      *log.Logger
	}
	TabulaOption func(t *Tabula)
)

var (
	_ Extractor     = (*Tabula)(nil)
	_ TableDetector = (*Tabula)(nil)
)

func WithBlockConfig(cfg layout.BlockConfig) TabulaOption {
	return func(t *Tabula) {
		t.blocks = layout.NewBlockDetectorWithConfig(cfg)
	}
}

func WithLogger(l *log.Logger) TabulaOption {
	return func(t *Tabula) {
		t.l = l
	}
}

func NewTabula(opts ...TabulaOption) *Tabula {
	ret := &Tabula{
		blocks: layout.NewBlockDetector(),
		l:      log.Default().Named("extract"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (t *Tabula) Extract(ctx context.Context, path string) ([]Page, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()
	num, err := r.PageCount()
	if err != nil {
		return nil, err
	}
	ret := make([]Page, 0, num)
	for i := range num {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := t.extractPage(r, i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		ret = append(ret, *page)
	}
	t.l.Debug("extracted", log.String("file", path), log.Int("pages", num))
	return ret, nil
}

func (t *Tabula) extractPage(r *reader.Reader, idx int) (*Page, error) {
	p, err := r.GetPage(idx)
	if err != nil {
		return nil, err
	}
	w, h, err := pageSize(p)
	if err != nil {
		return nil, err
	}
	frags, err := r.ExtractTextFragments(p)
	if err != nil {
		return nil, err
	}
	ge, err := graphics(p)
	if err != nil {
		return nil, err
	}
	bl := t.blocks.Detect(frags, w, h)
	return &Page{
		Number: idx,
		Width:  w,
		Height: h,
		Spans:  toSpans(idx, bl, h),
		Rects:  toRects(ge.GetRectangles(), h),
	}, nil
}

// DetectTables runs the geometric table detector on the page.
func (t *Tabula) DetectTables(ctx context.Context, path string, page int) (
	[]model.Grid, error,
) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()
	p, err := r.GetPage(page)
	if err != nil {
		return nil, err
	}
	w, h, err := pageSize(p)
	if err != nil {
		return nil, err
	}
	frags, err := r.ExtractTextFragments(p)
	if err != nil {
		return nil, err
	}
	ge, err := graphics(p)
	if err != nil {
		return nil, err
	}
	mp := &tmodel.Page{
		Number:   page + 1,
		Width:    w,
		Height:   h,
		RawText:  toModelFragments(frags),
		RawLines: append(ge.ToModelLines(), ge.ToModelRectangles()...),
	}
	found, err := tables.NewGeometricDetector().Detect(mp)
	if err != nil {
		return nil, err
	}
	ret := make([]model.Grid, 0, len(found))
	for _, tbl := range found {
		ret = append(ret, toGrid(tbl))
	}
	t.l.Debug("tables detected",
		log.String("file", path), log.Int("page", page), log.Int("tables", len(ret)))
	return ret, nil
}

func pageSize(p *pages.Page) (w, h float64, err error) {
	if w, err = p.Width(); err != nil {
		return 0, 0, err
	}
	if h, err = p.Height(); err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func graphics(p *pages.Page) (*graphicsstate.GraphicsExtractor, error) {
	contents, err := p.Contents()
	if err != nil {
		return nil, err
	}
	ge := graphicsstate.NewGraphicsExtractor()
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, err
		}
		if err := ge.ExtractFromBytes(data); err != nil {
			return nil, err
		}
	}
	return ge, nil
}

// toSpans flips the y axis so that y grows downwards.
func toSpans(page int, bl *layout.BlockLayout, height float64) []model.Span {
	ret := make([]model.Span, 0)
	for b := range bl.Blocks {
		for l, line := range bl.Blocks[b].Lines {
			for _, f := range line {
				data := strings.TrimSpace(f.Text)
				if data == "" {
					continue
				}
				ret = append(ret, model.Span{
					Data:  data,
					BBox:  fragmentBox(f, height),
					Page:  page,
					Block: b,
					Line:  l,
				})
			}
		}
	}
	return ret
}

func fragmentBox(f text.TextFragment, height float64) model.BBox {
	return model.BBox{f.X, height - (f.Y + f.Height), f.X + f.Width, height - f.Y}
}

func toRects(rects []graphicsstate.ExtractedRectangle, height float64) []model.FilledRect {
	ret := make([]model.FilledRect, 0, len(rects))
	for _, r := range rects {
		if !r.IsFilled {
			continue
		}
		ret = append(ret, model.FilledRect{
			Rect: model.BBox{
				r.BBox.X,
				height - (r.BBox.Y + r.BBox.Height),
				r.BBox.X + r.BBox.Width,
				height - r.BBox.Y,
			},
			Fill: toRGB(r.FillColor),
		})
	}
	return ret
}

func toRGB(c [3]float64) model.RGB {
	return model.RGB{int(c[0] * 255), int(c[1] * 255), int(c[2] * 255)}
}

func toModelFragments(frags []text.TextFragment) []tmodel.TextFragment {
	ret := make([]tmodel.TextFragment, 0, len(frags))
	for _, f := range frags {
		ret = append(ret, tmodel.TextFragment{
			Text:     f.Text,
			BBox:     tmodel.NewBBox(f.X, f.Y, f.Width, f.Height),
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return ret
}

func toGrid(tbl *tmodel.Table) model.Grid {
	ret := make(model.Grid, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			cells = append(cells, strings.TrimSpace(c.Text))
		}
		ret = append(ret, cells)
	}
	return ret
}
