// Package flag aggregates the section flags of a lap into one lap flag.
package flag

import (
	"cmp"
	"slices"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

// Aggregate reduces the flags of a lap. Green and yellow sections within
// one lap mean the yellow was thrown during the lap. Otherwise red wins
// over yellow, everything else is green.
func Aggregate(flags []model.Flag) model.Flag {
	has := func(f model.Flag) bool { return slices.Contains(flags, f) }
	switch {
	case has(model.FlagGreen) && has(model.FlagYellow):
		return model.FlagYellowThrown
	case has(model.FlagRed):
		return model.FlagRed
	case has(model.FlagYellow):
		return model.FlagYellow
	default:
		return model.FlagGreen
	}
}

type lapKey struct {
	raceID string
	car    string
	lap    int
}

// Build groups the section rows by race, car and lap. The section flags
// keep the order of the section rows.
func Build(sections []model.SectionRow) []model.FlagRow {
	idx := map[lapKey]int{}
	ret := make([]model.FlagRow, 0)
	for i := range sections {
		s := &sections[i]
		k := lapKey{s.RaceID, s.Car, s.Lap}
		pos, ok := idx[k]
		if !ok {
			pos = len(ret)
			idx[k] = pos
			ret = append(ret, model.FlagRow{RaceID: s.RaceID, Car: s.Car, Lap: s.Lap})
		}
		ret[pos].SectionFlags = append(ret[pos].SectionFlags, s.Flag)
	}
	for i := range ret {
		ret[i].Flag = Aggregate(ret[i].SectionFlags)
	}
	slices.SortStableFunc(ret, func(a, b model.FlagRow) int {
		return cmp.Or(
			cmp.Compare(a.RaceID, b.RaceID),
			cmp.Compare(a.Car, b.Car),
			cmp.Compare(a.Lap, b.Lap))
	})
	return ret
}
