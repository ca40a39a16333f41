package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing"
)

var ErrNoRows = errors.New("no rows in result set")

// Race is the exported race header.
type Race struct {
	RaceID      string
	Date        time.Time
	Description string
	ExportBatch uuid.UUID
	ExportedAt  time.Time
}

type AnalysisRepository interface {
	// ReplaceRace removes existing data of the race and stores the new one.
	ReplaceRace(ctx context.Context, race *Race, data *processing.AnalysisData) error
	LoadRace(ctx context.Context, raceID string) (*Race, error)
	LoadTiming(ctx context.Context, raceID string) ([]model.LapTimingRow, error)
	LoadPitStops(ctx context.Context, raceID string) ([]model.PitStopRow, error)
	LoadFlags(ctx context.Context, raceID string) ([]model.FlagRow, error)
	DeleteByRaceID(ctx context.Context, raceID string) (int, error)
}

type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
