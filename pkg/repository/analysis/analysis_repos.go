package analysis

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/racetiming-analytics/pkg/db/mytypes"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing"
	"github.com/mpapenbr/racetiming-analytics/pkg/repository/api"
	bobCtx "github.com/mpapenbr/racetiming-analytics/pkg/repository/context"
)

// rows per insert statement
const chunkSize = 500

type (
	repo struct {
		conn bob.Executor
	}
	raceRow struct {
		RaceID      string    `db:"race_id"`
		RaceDate    time.Time `db:"race_date"`
		Description string    `db:"description"`
		ExportBatch uuid.UUID `db:"export_batch"`
		ExportedAt  time.Time `db:"exported_at"`
	}
	timingRow struct {
		RaceID       string   `db:"race_id"`
		Car          string   `db:"car"`
		Driver       string   `db:"driver"`
		LapStarted   int      `db:"lap_started"`
		LapCompleted int      `db:"lap_completed"`
		LapTime      float64  `db:"lap_time"`
		RaceTime     float64  `db:"race_time"`
		Gap          *float64 `db:"gap"`
		Flag         string   `db:"flag"`
	}
	pitRow struct {
		RaceID       string   `db:"race_id"`
		Car          string   `db:"car"`
		Driver       string   `db:"driver"`
		LapStarted   int      `db:"lap_started"`
		LapCompleted int      `db:"lap_completed"`
		LapTime      float64  `db:"lap_time"`
		RaceTime     float64  `db:"race_time"`
		Gap          *float64 `db:"gap"`
		Flag         string   `db:"flag"`
		InLap        int      `db:"in_lap"`
		OutLap       int      `db:"out_lap"`
		LastPitLap   int      `db:"last_pit_lap"`
		LapsSincePit int      `db:"laps_since_pit"`
	}
	flagRow struct {
		RaceID       string            `db:"race_id"`
		Car          string            `db:"car"`
		Lap          int               `db:"lap"`
		SectionFlags mytypes.FlagSlice `db:"section_flags"`
		Flag         string            `db:"flag"`
	}
)

var _ api.AnalysisRepository = (*repo)(nil)

var timingColumns = []string{
	"race_id", "car", "driver", "lap_started", "lap_completed",
	"lap_time", "race_time", "gap", "flag",
}

func NewAnalysisRepository(conn bob.Executor) api.AnalysisRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) ReplaceRace(
	ctx context.Context,
	race *api.Race,
	data *processing.AnalysisData,
) error {
	if _, err := r.DeleteByRaceID(ctx, race.RaceID); err != nil {
		return err
	}
	q := psql.Insert(
		im.Into("race", "race_id", "race_date", "description", "export_batch"),
		im.Values(psql.Arg(race.RaceID, race.Date, race.Description, race.ExportBatch)),
	)
	if _, err := bob.Exec(ctx, r.getExecutor(ctx), q); err != nil {
		return err
	}
	if err := r.insertTiming(ctx, data.Timing); err != nil {
		return err
	}
	if err := r.insertPitStops(ctx, data.PitStops); err != nil {
		return err
	}
	return r.insertFlags(ctx, data.Flags)
}

func (r *repo) insertTiming(ctx context.Context, rows []model.LapTimingRow) error {
	for _, chunk := range lo.Chunk(rows, chunkSize) {
		mods := []bob.Mod[*dialect.InsertQuery]{im.Into("lap_timing", timingColumns...)}
		for i := range chunk {
			t := &chunk[i]
			mods = append(mods, im.Values(psql.Arg(
				t.RaceID, t.Car, t.Driver, t.LapStarted, t.LapCompleted,
				t.LapTime, t.RaceTime, t.Gap.Ptr(), string(t.Flag))))
		}
		if _, err := bob.Exec(ctx, r.getExecutor(ctx), psql.Insert(mods...)); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) insertPitStops(ctx context.Context, rows []model.PitStopRow) error {
	for _, chunk := range lo.Chunk(rows, chunkSize) {
		mods := []bob.Mod[*dialect.InsertQuery]{im.Into("pit_stop",
			"race_id", "car", "lap_completed",
			"in_lap", "out_lap", "last_pit_lap", "laps_since_pit")}
		for i := range chunk {
			p := &chunk[i]
			mods = append(mods, im.Values(psql.Arg(
				p.RaceID, p.Car, p.LapCompleted,
				p.InLap, p.OutLap, p.LastPitLap, p.LapsSincePit)))
		}
		if _, err := bob.Exec(ctx, r.getExecutor(ctx), psql.Insert(mods...)); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) insertFlags(ctx context.Context, rows []model.FlagRow) error {
	for _, chunk := range lo.Chunk(rows, chunkSize) {
		mods := []bob.Mod[*dialect.InsertQuery]{im.Into("lap_flag",
			"race_id", "car", "lap", "section_flags", "flag")}
		for i := range chunk {
			f := &chunk[i]
			mods = append(mods, im.Values(psql.Arg(
				f.RaceID, f.Car, f.Lap,
				mytypes.FlagSlice(f.SectionFlags), string(f.Flag))))
		}
		if _, err := bob.Exec(ctx, r.getExecutor(ctx), psql.Insert(mods...)); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) LoadRace(ctx context.Context, raceID string) (*api.Race, error) {
	q := psql.Select(
		sm.Columns("race_id", "race_date", "description", "export_batch", "exported_at"),
		sm.From("race"),
		sm.Where(psql.Quote("race_id").EQ(psql.Arg(raceID))),
	)
	res, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[raceRow]())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrNoRows
		}
		return nil, err
	}
	return &api.Race{
		RaceID:      res.RaceID,
		Date:        res.RaceDate,
		Description: res.Description,
		ExportBatch: res.ExportBatch,
		ExportedAt:  res.ExportedAt,
	}, nil
}

// LoadTiming returns the timing rows in race time order.
func (r *repo) LoadTiming(ctx context.Context, raceID string) (
	[]model.LapTimingRow, error,
) {
	q := psql.Select(
		sm.Columns(lo.ToAnySlice(timingColumns)...),
		sm.From("lap_timing"),
		sm.Where(psql.Quote("race_id").EQ(psql.Arg(raceID))),
		sm.OrderBy("race_time").Asc(),
		sm.OrderBy("lap_completed").Asc(),
		sm.OrderBy("car").Asc(),
	)
	res, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[timingRow]())
	if err != nil {
		return nil, err
	}
	return lo.Map(res, func(item timingRow, _ int) model.LapTimingRow {
		return item.toModel()
	}), nil
}

// LoadPitStops returns the pit stop rows ordered by car and lap.
func (r *repo) LoadPitStops(ctx context.Context, raceID string) (
	[]model.PitStopRow, error,
) {
	cols := lo.Map(timingColumns, func(c string, _ int) string { return "t." + c })
	cols = append(cols, "p.in_lap", "p.out_lap", "p.last_pit_lap", "p.laps_since_pit")
	q := psql.RawQuery(`
	select `+strings.Join(cols, ", ")+`
	from pit_stop p
	join lap_timing t using (race_id, car, lap_completed)
	where p.race_id = ?
	order by t.car, t.lap_completed`, psql.Arg(raceID))
	res, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[pitRow]())
	if err != nil {
		return nil, err
	}
	return lo.Map(res, func(item pitRow, _ int) model.PitStopRow {
		t := timingRow{
			RaceID: item.RaceID, Car: item.Car, Driver: item.Driver,
			LapStarted: item.LapStarted, LapCompleted: item.LapCompleted,
			LapTime: item.LapTime, RaceTime: item.RaceTime, Gap: item.Gap, Flag: item.Flag,
		}
		return model.PitStopRow{
			LapTimingRow: t.toModel(),
			InLap:        item.InLap,
			OutLap:       item.OutLap,
			LastPitLap:   item.LastPitLap,
			LapsSincePit: item.LapsSincePit,
		}
	}), nil
}

// LoadFlags returns the flag rows ordered by car and lap.
func (r *repo) LoadFlags(ctx context.Context, raceID string) ([]model.FlagRow, error) {
	q := psql.Select(
		sm.Columns("race_id", "car", "lap", "section_flags", "flag"),
		sm.From("lap_flag"),
		sm.Where(psql.Quote("race_id").EQ(psql.Arg(raceID))),
		sm.OrderBy("car").Asc(),
		sm.OrderBy("lap").Asc(),
	)
	res, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[flagRow]())
	if err != nil {
		return nil, err
	}
	return lo.Map(res, func(item flagRow, _ int) model.FlagRow {
		return model.FlagRow{
			RaceID:       item.RaceID,
			Car:          item.Car,
			Lap:          item.Lap,
			SectionFlags: []model.Flag(item.SectionFlags),
			Flag:         model.Flag(item.Flag),
		}
	}), nil
}

// DeleteByRaceID removes the race and all of its rows.
// Returns the number of races deleted.
func (r *repo) DeleteByRaceID(ctx context.Context, raceID string) (int, error) {
	q := psql.Delete(
		dm.From("race"),
		dm.Where(psql.Quote("race_id").EQ(psql.Arg(raceID))),
	)
	res, err := bob.Exec(ctx, r.getExecutor(ctx), q)
	if err != nil {
		return 0, err
	}
	num, err := res.RowsAffected()
	return int(num), err
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	if executor := bobCtx.FromContext(ctx); executor != nil {
		return executor
	}
	return r.conn
}

func (t timingRow) toModel() model.LapTimingRow {
	return model.LapTimingRow{
		RaceID:       t.RaceID,
		Car:          t.Car,
		Driver:       t.Driver,
		LapStarted:   t.LapStarted,
		LapCompleted: t.LapCompleted,
		LapTime:      t.LapTime,
		RaceTime:     t.RaceTime,
		Gap:          null.FromPtr(t.Gap),
		Flag:         model.Flag(t.Flag),
	}
}
