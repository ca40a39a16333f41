package section

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

type (
	// HeaderEntry is the column center of a section along the column axis.
	HeaderEntry struct {
		Name string
		Pos  float64
	}
	// HeaderMap keeps the entries in header order.
	HeaderMap []HeaderEntry

	// axisSpan is a span projected on the page orientation.
	axisSpan struct {
		model.Span
		x0, x1 float64 // column axis
		y0, y1 float64 // row axis
	}
)

var lapTSRe = regexp.MustCompile(`Lap\s+T/S`)

// namePattern matches any of the legend names, longest names first so that
// "Turn 1 to Turn 10" is not consumed as "Turn 1".
func namePattern(defs []model.SectionDefinition) *regexp.Regexp {
	names := lo.Uniq(lo.FilterMap(defs, func(d model.SectionDefinition, _ int) (string, bool) {
		return d.Name, d.Name != ""
	}))
	if len(names) == 0 {
		return nil
	}
	slices.SortStableFunc(names, func(a, b string) int {
		return len(b) - len(a)
	})
	quoted := lo.Map(names, func(s string, _ int) string { return regexp.QuoteMeta(s) })
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

// buildHeaderMap distributes the section names found in each header span
// evenly across the span. If the span starts with "Lap T/S" the leading
// edge is the leading edge of the data region.
func buildHeaderMap(
	header []axisSpan,
	defs []model.SectionDefinition,
	dataMin, dataMax float64,
	leftToRight bool,
) HeaderMap {
	re := namePattern(defs)
	ret := HeaderMap{}
	if re == nil {
		return ret
	}
	for _, h := range header {
		txt := lapTSRe.ReplaceAllString(h.Data, "")
		names := re.FindAllString(txt, -1)
		if len(names) == 0 {
			continue
		}
		hasTS := strings.Contains(h.Data, "T/S")
		var lead, trail float64
		if leftToRight {
			lead, trail = h.x0, h.x1
			if hasTS {
				lead = dataMin
			}
		} else {
			lead, trail = h.x1, h.x0
			if hasTS {
				lead = dataMax
			}
		}
		step := (trail - lead) / float64(len(names))
		for i, name := range names {
			ret = append(ret, HeaderEntry{Name: ret.unique(name), Pos: lead + float64(i)*step})
		}
	}
	return ret
}

// unique names repeated sections "<name> B", "<name> C" and so on.
func (h HeaderMap) unique(name string) string {
	ret := name
	for suffix := 'B'; h.has(ret); suffix++ {
		ret = fmt.Sprintf("%s %c", name, suffix)
	}
	return ret
}

func (h HeaderMap) has(name string) bool {
	return slices.ContainsFunc(h, func(e HeaderEntry) bool { return e.Name == name })
}

// Nearest returns the entry closest to pos. Ties go to the earlier entry.
func (h HeaderMap) Nearest(pos float64) (string, bool) {
	if len(h) == 0 {
		return "", false
	}
	best := 0
	bestDist := math.Abs(h[0].Pos - pos)
	for i := 1; i < len(h); i++ {
		if d := math.Abs(h[i].Pos - pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	return h[best].Name, true
}
