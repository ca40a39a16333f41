// Package results extracts the official results table from detected grids.
package results

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

var ErrMalformedResults = errors.New("malformed results table")

const (
	ColPos         = "Pos"
	ColCar         = "Car"
	ColDriver      = "Driver"
	ColLaps        = "Laps"
	ColElapsedTime = "Elapsed Time"
	colCarDriver   = "Car Driver"
)

// Parse picks the first grid containing a "Pos" cell and returns its result rows.
func Parse(grids []model.Grid) ([]model.ResultsRow, error) {
	grid, ok := lo.Find(grids, func(g model.Grid) bool {
		return findRow(g, ColPos) >= 0
	})
	if !ok {
		return nil, fmt.Errorf("no table with %q column: %w", ColPos, ErrMalformedResults)
	}
	grid = normalize(grid)
	hdr := findRow(grid, ColPos)
	first := findCol(grid, ColPos)
	names := headerNames(grid, hdr)

	if hdr+1 >= len(grid) || grid[hdr+1][first] != "1" {
		return nil, fmt.Errorf("first position is not 1: %w", ErrMalformedResults)
	}
	end := hdr + 1
	for next := 1; end < len(grid) && grid[end][first] == strconv.Itoa(next); next++ {
		end++
	}
	cols := names[first:]
	ret := make([]model.ResultsRow, 0, end-hdr-1)
	for _, raw := range grid[hdr+1 : end] {
		row, err := toRow(cols, raw[first:])
		if err != nil {
			return nil, err
		}
		ret = append(ret, *row)
	}
	return ret, nil
}

// normalize pads all rows to the same width.
func normalize(g model.Grid) model.Grid {
	width := lo.Max(lo.Map(g, func(r []string, _ int) int { return len(r) }))
	ret := make(model.Grid, len(g))
	for i, r := range g {
		row := make([]string, width)
		copy(row, r)
		ret[i] = row
	}
	return ret
}

func findRow(g model.Grid, value string) int {
	return slices.IndexFunc(g, func(r []string) bool { return slices.Contains(r, value) })
}

func findCol(g model.Grid, value string) int {
	ret := -1
	for _, r := range g {
		if idx := slices.Index(r, value); idx >= 0 && (ret < 0 || idx < ret) {
			ret = idx
		}
	}
	return ret
}

// headerNames returns the column names of the header row. Headers wrapped
// onto two rows ("Laps"/"Time" above "Down") are joined. A "Car Driver"
// header followed by an empty header is split into "Car" and "Driver".
func headerNames(g model.Grid, hdr int) []string {
	names := slices.Clone(g[hdr])
	if hdr > 0 && slices.Contains(names, "Down") &&
		(slices.Contains(g[hdr-1], "Laps") || slices.Contains(g[hdr-1], "Time")) {
		for i := range names {
			names[i] = strings.TrimSpace(g[hdr-1][i] + " " + g[hdr][i])
		}
	}
	if idx := slices.Index(names, colCarDriver); idx >= 0 &&
		idx+1 < len(names) && names[idx+1] == "" {
		names[idx] = ColCar
		names[idx+1] = ColDriver
	}
	return names
}

func toRow(cols, values []string) (*model.ResultsRow, error) {
	byName := map[string]string{}
	ret := &model.ResultsRow{}
	for i, name := range cols {
		if name == "" {
			continue
		}
		byName[name] = values[i]
		switch name {
		case ColPos, ColCar, ColDriver, ColLaps, ColElapsedTime:
		default:
			ret.Extra = append(ret.Extra, model.ResultColumn{Name: name, Value: values[i]})
		}
	}
	if _, ok := byName[ColCar]; !ok {
		if cd, ok := byName[colCarDriver]; ok {
			car, driver, _ := strings.Cut(strings.TrimSpace(cd), " ")
			byName[ColCar] = car
			byName[ColDriver] = strings.TrimSpace(driver)
		}
	}
	for _, req := range []string{ColPos, ColCar, ColDriver, ColLaps, ColElapsedTime} {
		if _, ok := byName[req]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", req, ErrMalformedResults)
		}
	}
	var err error
	if ret.Pos, err = strconv.Atoi(byName[ColPos]); err != nil {
		return nil, fmt.Errorf("pos %q: %w", byName[ColPos], ErrMalformedResults)
	}
	if ret.Laps, err = strconv.Atoi(byName[ColLaps]); err != nil {
		return nil, fmt.Errorf("laps %q of car %s: %w",
			byName[ColLaps], byName[ColCar], ErrMalformedResults)
	}
	ret.Car = byName[ColCar]
	ret.Driver = byName[ColDriver]
	ret.ElapsedTime = byName[ColElapsedTime]
	return ret, nil
}
