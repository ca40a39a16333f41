// Package laptiming derives per lap race times and gaps from the section
// rows and the official results of a race.
package laptiming

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

var ErrElapsedTime = errors.New("invalid elapsed time")

var elapsedRe = regexp.MustCompile(`^(\d+):([0-5]\d):([0-5]\d(?:\.\d+)?)$`)

// ParseElapsed converts H:MM:SS.sss into seconds.
func ParseElapsed(s string) (decimal.Decimal, error) {
	m := elapsedRe.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ErrElapsedTime)
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, err := decimal.NewFromString(m[3])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ErrElapsedTime)
	}
	return decimal.NewFromInt(int64(h*3600 + mins*60)).Add(secs), nil
}

type (
	Builder struct {
		l *log.Logger
	}
	Option func(*Builder)
)

func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		b.l = l
	}
}

func NewBuilder(opts ...Option) *Builder {
	ret := &Builder{l: log.Default().Named("laptiming")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

type entry struct {
	row      model.LapTimingRow
	lapTime  decimal.Decimal
	raceTime decimal.Decimal
}

// Build computes the lap timing of one race.
//
// Only "Lap" rows of cars found in the results are used, laps beyond the
// official lap count are dropped. Each car gets a lap 0 row holding the
// difference between the official elapsed time and the sum of its lap
// times. Race times are accumulated per car, the gap is the difference to
// the preceding row in race time order, whichever car that is.
func (b *Builder) Build(
	raceID string,
	sections []model.SectionRow,
	results []model.ResultsRow,
) []model.LapTimingRow {
	official := lo.SliceToMap(results, func(r model.ResultsRow) (string, model.ResultsRow) {
		return r.Car, r
	})
	laps := lo.Filter(sections, func(r model.SectionRow, _ int) bool {
		res, ok := official[r.Car]
		return ok && r.Section == model.SectionLap && r.Lap <= res.Laps
	})

	entries := make([]*entry, 0, len(laps)+len(official))
	for car, rows := range lo.GroupBy(laps, func(r model.SectionRow) string { return r.Car }) {
		elapsed, err := ParseElapsed(official[car].ElapsedTime)
		if err != nil {
			b.l.Warn("skipping car",
				log.String("raceId", raceID),
				log.String("car", car),
				log.ErrorField(err))
			continue
		}
		sum := decimal.Zero
		for _, r := range rows {
			t := seconds(r.Time)
			sum = sum.Add(t)
			entries = append(entries, &entry{
				row: model.LapTimingRow{
					RaceID: raceID, Car: car, Driver: r.Driver,
					LapCompleted: r.Lap, Flag: r.Flag,
				},
				lapTime: t,
			})
		}
		entries = append(entries, &entry{
			row: model.LapTimingRow{
				RaceID: raceID, Car: car, Driver: rows[0].Driver,
				LapCompleted: 0, Flag: model.FlagGreen,
			},
			lapTime: elapsed.Sub(sum),
		})
	}

	slices.SortStableFunc(entries, func(a, b *entry) int {
		return cmp.Or(
			cmp.Compare(a.row.LapCompleted, b.row.LapCompleted),
			cmp.Compare(a.row.Car, b.row.Car))
	})
	total := map[string]decimal.Decimal{}
	for _, e := range entries {
		e.raceTime = total[e.row.Car].Add(e.lapTime)
		total[e.row.Car] = e.raceTime
	}
	slices.SortStableFunc(entries, func(a, b *entry) int {
		return a.raceTime.Cmp(b.raceTime)
	})

	ret := make([]model.LapTimingRow, len(entries))
	for i, e := range entries {
		row := e.row
		row.LapStarted = row.LapCompleted + 1
		row.LapTime = e.lapTime.InexactFloat64()
		row.RaceTime = e.raceTime.InexactFloat64()
		if i > 0 {
			row.Gap = null.From(e.raceTime.Sub(entries[i-1].raceTime).InexactFloat64())
		}
		ret[i] = row
	}
	return ret
}

// seconds treats a missing time as 0.
func seconds(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
