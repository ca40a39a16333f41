package section

import (
	"math"
	"regexp"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/geometry"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

type cellKind int

const (
	kindNone cellKind = iota
	kindTime
	kindSpeed
)

// dataCell is a value of the section table before column assignment.
type dataCell struct {
	axisSpan
	lap  int
	kind cellKind
}

var (
	titleRe     = regexp.MustCompile(`Section Data for Car (\d{1,3}) - (.+)$`)
	lapNumberRe = regexp.MustCompile(`^\d{1,3}$`)

	flagFills = []struct {
		flag model.Flag
		fill model.RGB
	}{
		{model.FlagGreen, model.RGB{144, 237, 144}},
		{model.FlagGray, model.RGB{210, 210, 210}},
		{model.FlagYellow, model.RGB{255, 255, 0}},
	}
)

const fillTolerance = 1

// carAndDriver returns the car number and driver of a section data page.
func carAndDriver(spans []model.Span) (car, driver string, ok bool) {
	for i := range spans {
		if m := titleRe.FindStringSubmatch(spans[i].Data); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// rowAxis returns the bbox index of the row axis (1: rows along y, 0: rotated page).
// It compares the spread of both coordinates of the block holding the most spans.
func rowAxis(spans []model.Span) int {
	counts := lo.CountValuesBy(spans, func(s model.Span) int { return s.Block })
	block, best := 0, -1
	for _, b := range lo.Uniq(lo.Map(spans, func(s model.Span, _ int) int { return s.Block })) {
		if counts[b] > best {
			block, best = b, counts[b]
		}
	}
	in := lo.Filter(spans, func(s model.Span, _ int) bool { return s.Block == block })
	xStd := stddev(lo.Map(in, func(s model.Span, _ int) float64 { return s.BBox[0] }))
	yStd := stddev(lo.Map(in, func(s model.Span, _ int) float64 { return s.BBox[1] }))
	if yStd < xStd {
		return 1
	}
	return 0
}

func stddev(v []float64) float64 {
	if len(v) < 2 {
		return math.NaN()
	}
	mean := lo.Sum(v) / float64(len(v))
	sum := 0.0
	for _, x := range v {
		sum += (x - mean) * (x - mean)
	}
	return math.Sqrt(sum / float64(len(v)-1))
}

// project maps the span onto the detected orientation, truncating to whole points.
func project(s model.Span, iy int) axisSpan {
	return axisSpan{
		Span: s,
		y0:   math.Trunc(s.BBox[iy]),
		x0:   math.Trunc(s.BBox[1-iy]),
		y1:   math.Trunc(s.BBox[iy+2]),
		x1:   math.Trunc(s.BBox[3-iy]),
	}
}

// dataBlocks returns the blocks containing both a "T" and an "S" marker, ascending.
func dataBlocks(spans []model.Span) []int {
	type marks struct{ t, s bool }
	m := map[int]*marks{}
	for i := range spans {
		b := spans[i].Block
		if _, ok := m[b]; !ok {
			m[b] = &marks{}
		}
		switch spans[i].Data {
		case "T":
			m[b].t = true
		case "S":
			m[b].s = true
		}
	}
	ret := make([]int, 0)
	for b, v := range m {
		if v.t && v.s {
			ret = append(ret, b)
		}
	}
	slices.Sort(ret)
	return ret
}

// scanCells walks the data spans in (block, line) order keeping the current
// lap and cell kind. Lap numbers on line 0 start a new lap, "T" and "S"
// switch the kind, everything else is a value of the current lap and kind.
func scanCells(spans []axisSpan) []dataCell {
	ordered := slices.Clone(spans)
	slices.SortStableFunc(ordered, func(a, b axisSpan) int {
		if a.Block != b.Block {
			return a.Block - b.Block
		}
		return a.Line - b.Line
	})
	ret := make([]dataCell, 0, len(ordered))
	lap, haveLap := 0, false
	kind := kindNone
	for _, s := range ordered {
		switch {
		case s.Line == 0 && lapNumberRe.MatchString(s.Data):
			lap, _ = strconv.Atoi(s.Data)
			haveLap = true
			kind = kindNone
		case s.Data == "T":
			kind = kindTime
		case s.Data == "S":
			kind = kindSpeed
		default:
			if haveLap && kind != kindNone {
				ret = append(ret, dataCell{axisSpan: s, lap: lap, kind: kind})
			}
		}
	}
	return ret
}

// leftToRight compares the median leading coordinates of lines 1 and 2.
// Equal medians and blocks without both lines count as left to right.
func leftToRight(block []axisSpan) bool {
	l1 := lo.FilterMap(block, func(s axisSpan, _ int) (float64, bool) { return s.x0, s.Line == 1 })
	l2 := lo.FilterMap(block, func(s axisSpan, _ int) (float64, bool) { return s.x0, s.Line == 2 })
	if len(l1) == 0 || len(l2) == 0 {
		return true
	}
	return median(l1) <= median(l2)
}

func median(v []float64) float64 {
	s := slices.Clone(v)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func flagOf(fill *model.RGB) (model.Flag, bool) {
	if fill == nil {
		return "", false
	}
	for _, f := range flagFills {
		if geometry.Near(*fill, f.fill, fillTolerance) {
			return f.flag, true
		}
	}
	return "", false
}

// parsePage reconstructs the section rows of one page.
// Pages without a section data title return nil.
func parsePage(
	spans []model.Span,
	defs []model.SectionDefinition,
	l *log.Logger,
) []model.SectionRow {
	if len(spans) == 0 {
		return nil
	}
	car, driver, ok := carAndDriver(spans)
	if !ok {
		l.Debug("skipping page without section data", log.Int("page", spans[0].Page))
		return nil
	}
	blocks := dataBlocks(spans)
	if len(blocks) == 0 {
		return nil
	}
	iy := rowAxis(spans)
	projected := lo.Map(spans, func(s model.Span, _ int) axisSpan { return project(s, iy) })

	firstBlock := blocks[0]
	data := lo.Filter(projected, func(s axisSpan, _ int) bool {
		return slices.Contains(blocks, s.Block)
	})
	cells := scanCells(data)
	if len(cells) == 0 {
		return nil
	}
	// ties read left to right
	ltr := leftToRight(lo.Filter(data, func(s axisSpan, _ int) bool {
		return s.Block == firstBlock
	}))
	header := lo.Filter(projected, func(s axisSpan, _ int) bool {
		return s.Block < firstBlock
	})
	dataMin := lo.MinBy(cells, func(a, b dataCell) bool { return a.x0 < b.x0 }).x0
	dataMax := lo.MaxBy(cells, func(a, b dataCell) bool { return a.x1 > b.x1 }).x1
	headers := buildHeaderMap(header, defs, dataMin, dataMax, ltr)
	if len(headers) == 0 {
		l.Debug("no section headers found", log.Int("page", spans[0].Page))
		return nil
	}

	return pivot(car, driver, cells, headers, ltr, l)
}

type rowKey struct {
	lap     int
	section string
}

// pivot combines time and speed cells of a (lap, section) into one row.
// The flag of a row is taken from the first cell seen. A repeated time or
// speed of the same row is dropped.
func pivot(
	car, driver string,
	cells []dataCell,
	headers HeaderMap,
	ltr bool,
	l *log.Logger,
) []model.SectionRow {
	rows := make([]model.SectionRow, 0)
	idx := map[rowKey]int{}
	for _, c := range cells {
		flag, ok := flagOf(c.Fill)
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(c.Data, 64)
		if err != nil {
			l.Debug("skipping value", log.String("data", c.Data), log.ErrorField(err))
			continue
		}
		lead := c.x0
		if !ltr {
			lead = c.x1
		}
		section, _ := headers.Nearest(lead)
		key := rowKey{lap: c.lap, section: section}
		i, ok := idx[key]
		if !ok {
			rows = append(rows, model.SectionRow{
				Car:     car,
				Driver:  driver,
				Lap:     c.lap,
				Section: section,
				Flag:    flag,
				Time:    math.NaN(),
				Speed:   math.NaN(),
			})
			i = len(rows) - 1
			idx[key] = i
		}
		var target *float64
		switch c.kind {
		case kindTime:
			target = &rows[i].Time
		case kindSpeed:
			target = &rows[i].Speed
		case kindNone:
			continue
		}
		if !math.IsNaN(*target) {
			l.Warn("duplicate cell dropped",
				log.String("car", car),
				log.Int("lap", c.lap),
				log.String("section", section),
				log.String("data", c.Data))
			continue
		}
		*target = value
	}
	return rows
}
