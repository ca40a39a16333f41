//nolint:funlen,errcheck //ok for this test code
package analysis

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing"
	"github.com/mpapenbr/racetiming-analytics/pkg/repository/api"
	"github.com/mpapenbr/racetiming-analytics/testsupport/testdb"
)

func timing(car string, lap int, lapTime, raceTime float64, gap null.Val[float64]) model.LapTimingRow {
	return model.LapTimingRow{
		RaceID:       "1234",
		Car:          car,
		Driver:       "Driver " + car,
		LapStarted:   lap + 1,
		LapCompleted: lap,
		LapTime:      lapTime,
		RaceTime:     raceTime,
		Gap:          gap,
		Flag:         model.FlagGreen,
	}
}

func sampleData() *processing.AnalysisData {
	t := []model.LapTimingRow{
		timing("10", 0, 1.5, 1.5, null.Val[float64]{}),
		timing("5", 0, 2, 2, null.From(0.5)),
		timing("10", 1, 60, 61.5, null.From(59.5)),
		timing("5", 1, 61, 63, null.From(1.5)),
	}
	return &processing.AnalysisData{
		Timing: t,
		PitStops: []model.PitStopRow{
			{LapTimingRow: t[0], LastPitLap: 1},
			{LapTimingRow: t[2], LastPitLap: 1, LapsSincePit: 1},
			{LapTimingRow: t[1], LastPitLap: 1},
			{LapTimingRow: t[3], InLap: 1, LastPitLap: 1, LapsSincePit: 1},
		},
		Flags: []model.FlagRow{
			{
				RaceID: "1234", Car: "10", Lap: 1,
				SectionFlags: []model.Flag{model.FlagGreen, model.FlagYellow},
				Flag:         model.FlagYellowThrown,
			},
			{
				RaceID: "1234", Car: "5", Lap: 1,
				SectionFlags: []model.Flag{model.FlagGreen},
				Flag:         model.FlagGreen,
			},
		},
	}
}

var gapComparer = cmp.Comparer(func(a, b null.Val[float64]) bool {
	return a.GetOr(-1) == b.GetOr(-1) && a.IsValue() == b.IsValue()
})

func sampleRace() *api.Race {
	return &api.Race{
		RaceID:      "1234",
		Date:        time.Date(2017, 3, 12, 0, 0, 0, 0, time.UTC),
		Description: "St. Petersburg",
		ExportBatch: uuid.Must(uuid.NewV4()),
	}
}

func createSampleEntry(db bob.DB) *api.Race {
	ctx := context.Background()
	race := sampleRace()
	err := db.RunInTx(ctx, nil, func(ctx context.Context, ex bob.Executor) error {
		return NewAnalysisRepository(ex).ReplaceRace(ctx, race, sampleData())
	})
	if err != nil {
		log.Fatalf("createSampleEntry: %v\n", err)
	}
	return race
}

func TestReplaceRace(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewAnalysisRepository(db)
	race := createSampleEntry(db)
	ctx := context.Background()

	got, err := r.LoadRace(ctx, "1234")
	assert.NilError(t, err)
	assert.Equal(t, got.Description, race.Description)
	assert.Equal(t, got.ExportBatch, race.ExportBatch)
	assert.Equal(t, got.Date.Format(time.DateOnly), "2017-03-12")

	timingRows, err := r.LoadTiming(ctx, "1234")
	assert.NilError(t, err)
	assert.DeepEqual(t, timingRows, sampleData().Timing, gapComparer)

	pits, err := r.LoadPitStops(ctx, "1234")
	assert.NilError(t, err)
	assert.Equal(t, len(pits), 4)
	assert.Equal(t, pits[0].Car, "10")
	assert.Equal(t, pits[3].InLap, 1)
	assert.Equal(t, pits[3].LapsSincePit, 1)
	assert.Equal(t, pits[3].RaceTime, 63.0)

	flags, err := r.LoadFlags(ctx, "1234")
	assert.NilError(t, err)
	assert.DeepEqual(t, flags, sampleData().Flags)
}

func TestReplaceRaceTwice(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewAnalysisRepository(db)
	createSampleEntry(db)
	race := createSampleEntry(db)

	got, err := r.LoadRace(context.Background(), "1234")
	assert.NilError(t, err)
	assert.Equal(t, got.ExportBatch, race.ExportBatch)
	timingRows, err := r.LoadTiming(context.Background(), "1234")
	assert.NilError(t, err)
	assert.Equal(t, len(timingRows), 4)
}

func TestDeleteByRaceID(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewAnalysisRepository(db)
	createSampleEntry(db)
	ctx := context.Background()

	num, err := r.DeleteByRaceID(ctx, "1234")
	assert.NilError(t, err)
	assert.Equal(t, num, 1)

	num, err = r.DeleteByRaceID(ctx, "1234")
	assert.NilError(t, err)
	assert.Equal(t, num, 0)

	timingRows, err := r.LoadTiming(ctx, "1234")
	assert.NilError(t, err)
	assert.Equal(t, len(timingRows), 0)
}

func TestLoadRaceUnknown(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewAnalysisRepository(db)

	_, err := r.LoadRace(context.Background(), "9999")
	assert.ErrorIs(t, err, api.ErrNoRows)
}
