//nolint:funlen // ok for tests
package section

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/testsupport/sampledoc"
)

func sampleCars() []sampledoc.Car {
	return []sampledoc.Car{
		{
			Number: "10",
			Driver: "Alpha Driver",
			Laps: []sampledoc.Lap{
				sampledoc.SimpleLap(model.FlagGreen, 30.5, 31.25),
				sampledoc.SimpleLap(model.FlagYellow, 40.125, 41),
			},
		},
		{
			Number: "7",
			Driver: "Bravo Driver",
			Laps: []sampledoc.Lap{
				sampledoc.SimpleLap(model.FlagGreen, 30.75, 31.5),
			},
		},
	}
}

func expectedRows(cars []sampledoc.Car) []model.SectionRow {
	ret := make([]model.SectionRow, 0)
	for _, c := range cars {
		for i, lap := range c.Laps {
			for s, def := range sampledoc.Sections {
				ret = append(ret, model.SectionRow{
					Car:     c.Number,
					Driver:  c.Driver,
					Lap:     i + 1,
					Section: def.Name,
					Flag:    lap.Flags[s],
					Time:    lap.Times[s],
					Speed:   lap.Speeds[s],
				})
			}
		}
	}
	return ret
}

func TestParser_Parse(t *testing.T) {
	cars := sampleCars()
	tests := []struct {
		name  string
		spans []model.Span
	}{
		{name: "regular pages", spans: sampledoc.Document(cars...)},
		{name: "rotated pages", spans: sampledoc.Transpose(sampledoc.Document(cars...))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser().Parse(tt.spans)
			require.NoError(t, err)
			if diff := cmp.Diff(expectedRows(cars), got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_UniqueRows(t *testing.T) {
	cars := sampleCars()
	doc := sampledoc.Document(cars...)
	// the first car page appears twice
	doc = append(doc, sampledoc.CarPage(5, cars[0])...)
	got, err := NewParser().Parse(doc)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, r := range got {
		key := fmt.Sprintf("%s/%d/%s", r.Car, r.Lap, r.Section)
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
	assert.Len(t, got, 9)
}

func TestParser_NoLegend(t *testing.T) {
	doc := sampledoc.CarPage(0, sampleCars()[0])
	_, err := NewParser().Parse(doc)
	assert.True(t, errors.Is(err, ErrNoLegend))
}

func TestParser_SkipsOtherPages(t *testing.T) {
	doc := []model.Span{
		{Data: "Event Summary", Page: 0, BBox: model.BBox{10, 10, 100, 20}},
	}
	doc = append(doc, sampledoc.CarPage(1, sampleCars()[1])...)
	doc = append(doc, sampledoc.LegendPage(2)...)
	got, err := NewParser().Parse(doc)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestParser_DropsUnknownFills(t *testing.T) {
	car := sampleCars()[1]
	car.Laps[0].Flags = []model.Flag{model.FlagGreen, model.FlagRed, "none"}
	got, err := NewParser().Parse(sampledoc.Document(car))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SF to I1", got[0].Section)
}

func TestLegend(t *testing.T) {
	got, err := Legend(sampledoc.Document(sampleCars()...))
	require.NoError(t, err)
	assert.Equal(t, sampledoc.Sections, got)

	_, err = Legend(nil)
	assert.ErrorIs(t, err, ErrNoLegend)
}

func TestLegend_LastPageWins(t *testing.T) {
	spans := []model.Span{
		{Data: "Name", Page: 0},
		{Data: "Length", Page: 0},
		{Data: "Old", Page: 0},
		{Data: "9.99 miles", Page: 0},
		{Data: "Name", Page: 2},
		{Data: "Length", Page: 2},
		{Data: "Turn 1 to Turn 2", Page: 2},
		{Data: "0.25 miles", Page: 2},
	}
	got, err := Legend(spans)
	require.NoError(t, err)
	assert.Equal(t, []model.SectionDefinition{
		{Name: "Turn 1 to Turn 2", Length: "0.25 miles"},
	}, got)
}

func header(data string, x0, x1 float64) axisSpan {
	return axisSpan{Span: model.Span{Data: data}, x0: x0, x1: x1}
}

func TestBuildHeaderMap(t *testing.T) {
	defs := []model.SectionDefinition{
		{Name: "Turn 1"}, {Name: "Turn 1 to Turn 10"}, {Name: "BackStretch"}, {Name: "Lap"},
	}
	tests := []struct {
		name   string
		header []axisSpan
		ltr    bool
		want   HeaderMap
	}{
		{
			name:   "lap t/s uses data edge",
			header: []axisSpan{header("Lap T/S Turn 1 to Turn 10 Lap", 0, 300)},
			ltr:    true,
			want:   HeaderMap{{"Turn 1 to Turn 10", 100}, {"Lap", 200}},
		},
		{
			name:   "own edges without t/s",
			header: []axisSpan{header("Turn 1 Lap", 100, 200)},
			ltr:    true,
			want:   HeaderMap{{"Turn 1", 100}, {"Lap", 150}},
		},
		{
			name:   "right to left",
			header: []axisSpan{header("Lap T/S Turn 1 Lap", 0, 300)},
			ltr:    false,
			want:   HeaderMap{{"Turn 1", 400}, {"Lap", 200}},
		},
		{
			name: "duplicate names",
			header: []axisSpan{
				header("BackStretch", 100, 120),
				header("BackStretch", 200, 220),
			},
			ltr:  true,
			want: HeaderMap{{"BackStretch", 100}, {"BackStretch B", 200}},
		},
		{
			name: "repeated names get distinct suffixes",
			header: []axisSpan{
				header("BackStretch", 100, 120),
				header("BackStretch", 200, 220),
				header("BackStretch", 300, 320),
				header("Turn 1 BackStretch", 340, 400),
			},
			ltr: true,
			want: HeaderMap{
				{"BackStretch", 100},
				{"BackStretch B", 200},
				{"BackStretch C", 300},
				{"Turn 1", 340},
				{"BackStretch D", 370},
			},
		},
		{
			name:   "nothing recognizable",
			header: []axisSpan{header("Section Data", 0, 100)},
			ltr:    true,
			want:   HeaderMap{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildHeaderMap(tt.header, defs, 100, 400, tt.ltr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderMap_Nearest(t *testing.T) {
	h := HeaderMap{{"A", 80}, {"B", 160}, {"C", 240}}
	tests := []struct {
		pos  float64
		want string
	}{
		{0, "A"}, {119, "A"}, {120, "A"}, {121, "B"}, {1000, "C"},
	}
	for _, tt := range tests {
		got, ok := h.Nearest(tt.pos)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "pos %v", tt.pos)
	}
	_, ok := HeaderMap{}.Nearest(10)
	assert.False(t, ok)
}

func cell(data string, block, line int) axisSpan {
	return axisSpan{Span: model.Span{Data: data, Block: block, Line: line}}
}

func TestScanCells(t *testing.T) {
	spans := []axisSpan{
		cell("1", 2, 0),
		cell("T", 2, 1),
		cell("30.1", 2, 1),
		cell("S", 2, 2),
		cell("99.5", 2, 2),
		cell("12", 3, 0),
		cell("extra", 3, 0),
		cell("T", 3, 1),
		cell("31.2", 3, 1),
		cell("32.2", 3, 2),
	}
	got := scanCells(spans)
	type short struct {
		Data string
		Lap  int
		Kind cellKind
	}
	var gotShort []short
	for _, c := range got {
		gotShort = append(gotShort, short{c.Data, c.lap, c.kind})
	}
	assert.Equal(t, []short{
		{"30.1", 1, kindTime},
		{"99.5", 1, kindSpeed},
		{"31.2", 12, kindTime},
		{"32.2", 12, kindTime},
	}, gotShort)
}

func TestFlagOf(t *testing.T) {
	tests := []struct {
		fill   *model.RGB
		want   model.Flag
		wantOk bool
	}{
		{nil, "", false},
		{&model.RGB{144, 237, 144}, model.FlagGreen, true},
		{&model.RGB{145, 236, 143}, model.FlagGreen, true},
		{&model.RGB{210, 210, 210}, model.FlagGray, true},
		{&model.RGB{255, 255, 0}, model.FlagYellow, true},
		{&model.RGB{255, 0, 0}, "", false},
	}
	for _, tt := range tests {
		got, ok := flagOf(tt.fill)
		assert.Equal(t, tt.wantOk, ok)
		assert.Equal(t, tt.want, got)
	}
}
