// Package sampledoc builds synthetic span documents shaped like the
// section results report: one page per car followed by the legend page.
package sampledoc

import (
	"fmt"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

type (
	Lap struct {
		Times  []float64 // one per section, see Sections
		Speeds []float64
		Flags  []model.Flag
	}
	Car struct {
		Number string
		Driver string
		Laps   []Lap
	}
)

// Sections are the column names of the generated documents.
var Sections = []model.SectionDefinition{
	{Name: "SF to I1", Length: "0.55 miles"},
	{Name: "I1 to SF", Length: "0.65 miles"},
	{Name: "Lap", Length: "1.20 miles"},
}

// ColumnX is the leading x coordinate of the value cells per section.
var ColumnX = []float64{80, 160, 240}

var Fills = map[model.Flag]model.RGB{
	model.FlagGreen:  {144, 237, 144},
	model.FlagYellow: {255, 255, 0},
	model.FlagGray:   {210, 210, 210},
	model.FlagRed:    {255, 0, 0},
}

const cellWidth = 40

// SimpleLap creates a lap with the given section times. The lap time is
// appended as the last section. Speeds are derived from the time.
func SimpleLap(flag model.Flag, sectionTimes ...float64) Lap {
	total := 0.0
	for _, t := range sectionTimes {
		total += t
	}
	times := append(append([]float64{}, sectionTimes...), total)
	ret := Lap{Times: times}
	for _, t := range times {
		ret.Speeds = append(ret.Speeds, float64(int(3600*1000/t))/1000)
		ret.Flags = append(ret.Flags, flag)
	}
	return ret
}

// Document returns the spans of a report for the cars.
func Document(cars ...Car) []model.Span {
	ret := make([]model.Span, 0)
	for i, car := range cars {
		ret = append(ret, CarPage(i, car)...)
	}
	return append(ret, LegendPage(len(cars))...)
}

// CarPage lays out a section data page. Block 0 is the title, block 1 the
// header, each lap is a block with the lap number on line 0, the times
// on line 1 and the speeds on line 2.
func CarPage(page int, car Car) []model.Span {
	ret := []model.Span{
		{
			Data:  fmt.Sprintf("Section Data for Car %s - %s", car.Number, car.Driver),
			BBox:  model.BBox{20, 20, 300, 30},
			Page:  page,
			Block: 0,
		},
		{
			Data:  "Lap T/S SF to I1 I1 to SF Lap",
			BBox:  model.BBox{20, 40, 320, 50},
			Page:  page,
			Block: 1,
		},
	}
	for i, lap := range car.Laps {
		block := i + 2
		y := 60 + float64(i)*40
		ret = append(ret, model.Span{
			Data:  fmt.Sprintf("%d", i+1),
			BBox:  model.BBox{5, y, 15, y + 10},
			Page:  page,
			Block: block,
			Line:  0,
		})
		ret = append(ret, row(page, block, 1, y+10, "T", lap.Times, lap.Flags, "%.3f")...)
		ret = append(ret, row(page, block, 2, y+20, "S", lap.Speeds, lap.Flags, "%.3f")...)
	}
	return ret
}

func row(
	page, block, line int,
	y float64,
	marker string,
	values []float64,
	flags []model.Flag,
	format string,
) []model.Span {
	ret := []model.Span{{
		Data:  marker,
		BBox:  model.BBox{20, y, 25, y + 10},
		Page:  page,
		Block: block,
		Line:  line,
	}}
	for i, v := range values {
		var fill *model.RGB
		if i < len(flags) {
			if c, ok := Fills[flags[i]]; ok {
				fill = &c
			}
		}
		ret = append(ret, model.Span{
			Data:  fmt.Sprintf(format, v),
			Fill:  fill,
			BBox:  model.BBox{ColumnX[i], y, ColumnX[i] + cellWidth, y + 10},
			Page:  page,
			Block: block,
			Line:  line,
		})
	}
	return ret
}

// LegendPage lists the section names and lengths.
func LegendPage(page int) []model.Span {
	ret := []model.Span{
		{Data: "Name", BBox: model.BBox{20, 20, 60, 30}, Page: page, Block: 0},
		{Data: "Length", BBox: model.BBox{200, 20, 260, 30}, Page: page, Block: 0},
	}
	for i, s := range Sections {
		y := 40 + float64(i)*15
		ret = append(ret,
			model.Span{Data: s.Name, BBox: model.BBox{20, y, 80, y + 10}, Page: page, Block: 1, Line: i},
			model.Span{Data: s.Length, BBox: model.BBox{200, y, 260, y + 10}, Page: page, Block: 1, Line: i},
		)
	}
	return ret
}

// Transpose swaps the axes of all spans as found on rotated pages.
func Transpose(spans []model.Span) []model.Span {
	ret := make([]model.Span, len(spans))
	for i, s := range spans {
		s.BBox = model.BBox{s.BBox[1], s.BBox[0], s.BBox[3], s.BBox[2]}
		ret[i] = s
	}
	return ret
}
