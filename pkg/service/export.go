package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing"
	"github.com/mpapenbr/racetiming-analytics/pkg/racedata"
	"github.com/mpapenbr/racetiming-analytics/pkg/repository/api"
)

// AnalysisSource provides the races and their derived tables.
// Implemented by racedata.Aggregator.
type AnalysisSource interface {
	Races() []racedata.Race
	Race(ctx context.Context, raceID string) (*processing.AnalysisData, error)
}

type (
	ExportService struct {
		repo api.AnalysisRepository
		tx   api.TransactionManager
		l    *log.Logger
	}
	ExportOption func(*ExportService)

	ExportResult struct {
		Batch uuid.UUID
		Races []string
	}
)

var _ AnalysisSource = (*racedata.Aggregator)(nil)

func WithLogger(l *log.Logger) ExportOption {
	return func(s *ExportService) {
		s.l = l
	}
}

func InitExportService(
	repo api.AnalysisRepository,
	tx api.TransactionManager,
	opts ...ExportOption,
) *ExportService {
	ret := &ExportService{
		repo: repo,
		tx:   tx,
		l:    log.Default().Named("export"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Export replaces every race of src in the database.
// Each race is written in its own transaction. The first failing race stops the export.
func (s *ExportService) Export(ctx context.Context, src AnalysisSource) (
	*ExportResult, error,
) {
	batch, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	ret := &ExportResult{Batch: batch}
	for _, r := range src.Races() {
		data, err := src.Race(ctx, r.RaceID)
		if err != nil {
			return ret, fmt.Errorf("race %s: %w", r.RaceID, err)
		}
		race, err := toRace(&r, batch)
		if err != nil {
			return ret, err
		}
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			return s.repo.ReplaceRace(ctx, race, data)
		})
		if err != nil {
			return ret, fmt.Errorf("export race %s: %w", r.RaceID, err)
		}
		s.l.Info("race exported",
			log.String("raceId", r.RaceID),
			log.Int("timing", len(data.Timing)),
			log.Int("pitStops", len(data.PitStops)),
			log.Int("flags", len(data.Flags)))
		ret.Races = append(ret.Races, r.RaceID)
	}
	return ret, nil
}

// Load reads an exported race back.
func (s *ExportService) Load(ctx context.Context, raceID string) (
	*api.Race, *processing.AnalysisData, error,
) {
	race, err := s.repo.LoadRace(ctx, raceID)
	if err != nil {
		return nil, nil, err
	}
	ret := &processing.AnalysisData{}
	if ret.Timing, err = s.repo.LoadTiming(ctx, raceID); err != nil {
		return nil, nil, err
	}
	if ret.PitStops, err = s.repo.LoadPitStops(ctx, raceID); err != nil {
		return nil, nil, err
	}
	if ret.Flags, err = s.repo.LoadFlags(ctx, raceID); err != nil {
		return nil, nil, err
	}
	return race, ret, nil
}

func (s *ExportService) Delete(ctx context.Context, raceID string) (int, error) {
	var num int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		num, err = s.repo.DeleteByRaceID(ctx, raceID)
		return err
	})
	return num, err
}

func toRace(r *racedata.Race, batch uuid.UUID) (*api.Race, error) {
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return nil, fmt.Errorf("race %s: date %q: %w", r.RaceID, r.Date, err)
	}
	return &api.Race{
		RaceID:      r.RaceID,
		Date:        date,
		Description: r.Description,
		ExportBatch: batch,
	}, nil
}
