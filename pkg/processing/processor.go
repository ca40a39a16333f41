// Package processing derives the analytics tables of a race from its
// cleaned section and results tables.
package processing

import (
	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing/flag"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing/laptiming"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing/pitstop"
)

// RaceData holds the cleaned tables of one race.
type RaceData struct {
	RaceID   string
	Date     string
	Sections []model.SectionRow
	Results  []model.ResultsRow
}

// AnalysisData holds the derived tables of one or more races.
type AnalysisData struct {
	Timing   []model.LapTimingRow
	PitStops []model.PitStopRow
	Flags    []model.FlagRow
}

type Processor struct {
	timing *laptiming.Builder
	l      *log.Logger
}
type ProcessorOption func(proc *Processor)

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.l = l
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{l: log.Default().Named("processing")}
	for _, opt := range opts {
		opt(ret)
	}
	ret.timing = laptiming.NewBuilder(laptiming.WithLogger(ret.l.Named("laptiming")))
	return ret
}

// Process computes timing, pit stops and flags of a single race.
func (p *Processor) Process(race *RaceData) *AnalysisData {
	sections := withRaceID(race.RaceID, race.Sections)
	timing := p.timing.Build(race.RaceID, sections, race.Results)
	ret := &AnalysisData{
		Timing:   timing,
		PitStops: pitstop.Build(timing, sections),
		Flags:    flag.Build(sections),
	}
	p.l.Debug("race processed",
		log.String("raceId", race.RaceID),
		log.Int("timing", len(ret.Timing)),
		log.Int("flags", len(ret.Flags)))
	return ret
}

// Merge concatenates the analysis data in the order of the race ids.
func Merge(data map[string]*AnalysisData, raceIDs []string) *AnalysisData {
	ret := &AnalysisData{}
	for _, d := range flattenByReference(data, raceIDs) {
		ret.Timing = append(ret.Timing, d.Timing...)
		ret.PitStops = append(ret.PitStops, d.PitStops...)
		ret.Flags = append(ret.Flags, d.Flags...)
	}
	return ret
}

// withRaceID makes sure all rows carry the race id of the race.
func withRaceID(raceID string, rows []model.SectionRow) []model.SectionRow {
	ret := make([]model.SectionRow, len(rows))
	copy(ret, rows)
	for i := range ret {
		ret[i].RaceID = raceID
	}
	return ret
}

func flattenByReference[E any](data map[string]E, sortReference []string) []E {
	arr := make([]E, 0, len(data))
	for _, k := range sortReference {
		if v, ok := data[k]; ok {
			arr = append(arr, v)
		}
	}
	return arr
}
