// Package pitstop marks in and out laps and tracks the laps since the
// last pit stop.
package pitstop

import (
	"cmp"
	"slices"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

type lapKey struct {
	raceID string
	car    string
	lap    int
}

// Build extends the timing rows with pit information from the section rows.
// An in lap has a "SF to PI" section, an out lap a "PO to SF" section
// (the first lap never counts as out lap). The last pit lap starts at 1 and
// is set by each out lap. The rows keep the order of timing.
func Build(timing []model.LapTimingRow, sections []model.SectionRow) []model.PitStopRow {
	pitIn := map[lapKey]bool{}
	pitOut := map[lapKey]bool{}
	for i := range sections {
		s := &sections[i]
		k := lapKey{s.RaceID, s.Car, s.Lap}
		switch s.Section {
		case model.SectionPitIn:
			pitIn[k] = true
		case model.SectionPitExit:
			pitOut[k] = true
		}
	}

	ret := make([]model.PitStopRow, len(timing))
	for i := range timing {
		t := timing[i]
		k := lapKey{t.RaceID, t.Car, t.LapStarted}
		ret[i] = model.PitStopRow{LapTimingRow: t}
		if pitIn[k] {
			ret[i].InLap = 1
		}
		if pitOut[k] && t.LapStarted > 1 {
			ret[i].OutLap = 1
		}
	}

	order := make([]int, len(ret))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ra, rb := &ret[a], &ret[b]
		return cmp.Or(
			cmp.Compare(ra.RaceID, rb.RaceID),
			cmp.Compare(ra.Car, rb.Car),
			cmp.Compare(ra.LapStarted, rb.LapStarted))
	})
	type carKey struct{ raceID, car string }
	last := map[carKey]int{}
	for _, idx := range order {
		r := &ret[idx]
		ck := carKey{r.RaceID, r.Car}
		switch {
		case r.OutLap == 1:
			last[ck] = r.LapStarted
		case r.LapStarted == 1:
			last[ck] = 1
		}
		r.LastPitLap = last[ck]
		r.LapsSincePit = max(r.LapStarted-r.LastPitLap, 0)
	}
	return ret
}
