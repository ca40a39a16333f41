// Package racedata collects the cleaned tables of a set of races and
// provides the derived analytics over all of them.
package racedata

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing"
	"github.com/mpapenbr/racetiming-analytics/pkg/storage"
	"github.com/mpapenbr/racetiming-analytics/pkg/utils/cache"
	"github.com/mpapenbr/racetiming-analytics/pkg/utils/cache/loadercache"
)

// Race references the cleaned artifacts of a race.
type Race struct {
	storage.Info
	SectionFile string
	ResultsFile string
}

type (
	Aggregator struct {
		layout  storage.Layout
		proc    *processing.Processor
		tables  cache.Cache[string, processing.RaceData]
		races   []*Race
		derived map[string]*processing.AnalysisData
		initial []func(ctx context.Context) error
		ctx     context.Context
		l       *log.Logger
	}
	Option func(*Aggregator)
)

// WithRaces adds the races on creation.
func WithRaces(ids ...string) Option {
	return func(a *Aggregator) {
		a.initial = append(a.initial, func(ctx context.Context) error {
			for _, id := range ids {
				if err := a.AddRace(ctx, id); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

// WithYears adds all races of the seasons on creation.
func WithYears(from, to int) Option {
	return func(a *Aggregator) {
		a.initial = append(a.initial, func(ctx context.Context) error {
			return a.AddYears(ctx, from, to)
		})
	}
}

// WithContext is used for the races added on creation.
func WithContext(ctx context.Context) Option {
	return func(a *Aggregator) {
		a.ctx = ctx
	}
}

// WithLayout overrides the directory layout derived from the base dir.
func WithLayout(layout storage.Layout) Option {
	return func(a *Aggregator) {
		a.layout = layout
	}
}

func WithProcessor(p *processing.Processor) Option {
	return func(a *Aggregator) {
		a.proc = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		a.l = l
	}
}

// New creates an aggregator on the cleaned data below base.
func New(base string, opts ...Option) (*Aggregator, error) {
	ret := &Aggregator{
		ctx:     context.Background(),
		layout:  storage.NewLayout(base, "", "", ""),
		derived: make(map[string]*processing.AnalysisData),
		l:       log.Default().Named("racedata"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.proc == nil {
		ret.proc = processing.NewProcessor(processing.WithLogger(ret.l.Named("processing")))
	}
	ret.tables = loadercache.New(
		loadercache.WithLoader(ret.loadTables),
		loadercache.WithLogger[string, processing.RaceData](ret.l.Named("cache")))
	for _, add := range ret.initial {
		if err := add(ret.ctx); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// AddRace registers a race by id. Both cleaned artifacts must exist.
// Adding a known race is a no-op.
func (a *Aggregator) AddRace(ctx context.Context, raceID string) error {
	if a.race(raceID) != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sectionFile, err := storage.Find(
		a.layout.CleanDirOf(storage.SectionResults), storage.SectionResults, raceID)
	if err != nil {
		return err
	}
	resultsFile, err := storage.Find(
		a.layout.CleanDirOf(storage.Results), storage.Results, raceID)
	if err != nil {
		return err
	}
	info, ok := storage.ParseName(filepath.Base(sectionFile))
	if !ok {
		return fmt.Errorf("race %s: unexpected file name %s: %w",
			raceID, sectionFile, storage.ErrArtifactNotFound)
	}
	a.races = append(a.races, &Race{
		Info:        info,
		SectionFile: sectionFile,
		ResultsFile: resultsFile,
	})
	a.l.Debug("race added", log.String("raceId", raceID), log.String("date", info.Date))
	return nil
}

// AddYears registers every race of the seasons from..to (inclusive) that
// has both cleaned artifacts. Races are added by date.
func (a *Aggregator) AddYears(ctx context.Context, from, to int) error {
	sections, err := storage.List(a.layout.CleanDirOf(storage.SectionResults), storage.SectionResults)
	if err != nil {
		return err
	}
	results, err := storage.List(a.layout.CleanDirOf(storage.Results), storage.Results)
	if err != nil {
		return err
	}
	classified := lo.SliceToMap(results, func(i storage.Info) (string, bool) {
		return i.RaceID, true
	})
	inRange := lo.Filter(sections, func(i storage.Info, _ int) bool {
		y, err := strconv.Atoi(i.Year())
		return err == nil && y >= from && y <= to
	})
	slices.SortFunc(inRange, func(x, y storage.Info) int {
		return cmp.Or(cmp.Compare(x.Date, y.Date), cmp.Compare(x.RaceID, y.RaceID))
	})
	for _, info := range lo.UniqBy(inRange, func(i storage.Info) string { return i.RaceID }) {
		if !classified[info.RaceID] {
			a.l.Warn("no results for race, skipping",
				log.String("raceId", info.RaceID), log.String("race", info.Description))
			continue
		}
		if err := a.AddRace(ctx, info.RaceID); err != nil {
			return err
		}
	}
	return nil
}

// Races returns the registered races in the order they were added.
func (a *Aggregator) Races() []Race {
	return lo.Map(a.races, func(r *Race, _ int) Race { return *r })
}

// Tables returns the cleaned tables of a registered race.
func (a *Aggregator) Tables(ctx context.Context, raceID string) (*processing.RaceData, error) {
	if a.race(raceID) == nil {
		return nil, fmt.Errorf("race %s not added: %w", raceID, storage.ErrArtifactNotFound)
	}
	return a.tables.Get(ctx, raceID)
}

// Race returns the derived data of a single registered race.
func (a *Aggregator) Race(ctx context.Context, raceID string) (*processing.AnalysisData, error) {
	if d, ok := a.derived[raceID]; ok {
		return d, nil
	}
	data, err := a.Tables(ctx, raceID)
	if err != nil {
		return nil, err
	}
	d := a.proc.Process(data)
	a.derived[raceID] = d
	return d, nil
}

// Analysis returns the derived data of all registered races. Only races
// not computed before are processed.
func (a *Aggregator) Analysis(ctx context.Context) (*processing.AnalysisData, error) {
	ids := make([]string, 0, len(a.races))
	for _, r := range a.races {
		if _, err := a.Race(ctx, r.RaceID); err != nil {
			return nil, err
		}
		ids = append(ids, r.RaceID)
	}
	return processing.Merge(a.derived, ids), nil
}

func (a *Aggregator) Timing(ctx context.Context) ([]model.LapTimingRow, error) {
	d, err := a.Analysis(ctx)
	if err != nil {
		return nil, err
	}
	return d.Timing, nil
}

func (a *Aggregator) PitStops(ctx context.Context) ([]model.PitStopRow, error) {
	d, err := a.Analysis(ctx)
	if err != nil {
		return nil, err
	}
	return d.PitStops, nil
}

func (a *Aggregator) Flags(ctx context.Context) ([]model.FlagRow, error) {
	d, err := a.Analysis(ctx)
	if err != nil {
		return nil, err
	}
	return d.Flags, nil
}

func (a *Aggregator) race(raceID string) *Race {
	r, _ := lo.Find(a.races, func(r *Race) bool { return r.RaceID == raceID })
	return r
}

func (a *Aggregator) loadTables(_ context.Context, raceID string) (*processing.RaceData, error) {
	r := a.race(raceID)
	if r == nil {
		return nil, cache.ErrCacheMiss
	}
	sections, err := storage.ReadSectionRows(r.SectionFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.SectionFile, err)
	}
	results, err := storage.ReadResultsRows(r.ResultsFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.ResultsFile, err)
	}
	return &processing.RaceData{
		RaceID:   raceID,
		Date:     r.Date,
		Sections: sections,
		Results:  results,
	}, nil
}
