package analyze

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/cmd/util"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/processing"
	"github.com/mpapenbr/racetiming-analytics/pkg/racedata"
)

var (
	selection util.RaceSelection
	details   bool
	format    string
)

type raceSummary struct {
	RaceID      string
	Date        string
	Description string
	Cars        int
	Laps        int
	PitStops    int
	YellowLaps  int
}

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "computes lap timing, pit stops and flags of cleaned races",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), os.Stdout)
		},
	}
	selection.AddFlags(cmd)
	cmd.Flags().BoolVar(&details, "details", false, "print the lap timing rows")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json, yaml)")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if telemetry := util.StartTelemetry(ctx); telemetry != nil {
		defer telemetry.Shutdown()
	}
	agg, err := selection.Aggregator(ctx)
	if err != nil {
		log.Error("could not load races", log.ErrorField(err))
		return err
	}
	summaries := make([]raceSummary, 0, len(agg.Races()))
	for _, r := range agg.Races() {
		data, err := agg.Race(ctx, r.RaceID)
		if err != nil {
			return err
		}
		summaries = append(summaries, summarize(&r, data))
	}
	var timing []model.LapTimingRow
	if details {
		if timing, err = agg.Timing(ctx); err != nil {
			return err
		}
	}
	return write(out, format, summaries, timing)
}

func write(out io.Writer, format string, summaries []raceSummary, timing []model.LapTimingRow) error {
	switch format {
	case "table":
		if err := writeSummaryTable(out, summaries); err != nil {
			return err
		}
		if timing == nil {
			return nil
		}
		return writeTimingTable(out, timing)
	case "json", "yaml":
		doc := map[string]any{"races": lo.Map(summaries, summaryMap)}
		if timing != nil {
			doc["timing"] = lo.Map(timing, timingMap)
		}
		var b []byte
		var err error
		if format == "json" {
			b, err = oj.Marshal(doc, &ojg.Options{Indent: 2, Sort: true})
		} else {
			b, err = yaml.Marshal(doc)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func summarize(r *racedata.Race, data *processing.AnalysisData) raceSummary {
	cars := lo.Uniq(lo.Map(data.Timing, func(t model.LapTimingRow, _ int) string {
		return t.Car
	}))
	laps := lo.Max(lo.Map(data.Timing, func(t model.LapTimingRow, _ int) int {
		return t.LapCompleted
	}))
	stops := lo.CountBy(data.PitStops, func(p model.PitStopRow) bool {
		return p.InLap == 1
	})
	yellow := lo.Uniq(lo.FilterMap(data.Flags, func(f model.FlagRow, _ int) (int, bool) {
		return f.Lap, f.Flag != model.FlagGreen
	}))
	return raceSummary{
		RaceID:      r.RaceID,
		Date:        r.Date,
		Description: r.Description,
		Cars:        len(cars),
		Laps:        laps,
		PitStops:    stops,
		YellowLaps:  len(yellow),
	}
}

func summaryMap(s raceSummary, _ int) map[string]any {
	return map[string]any{
		"raceId":      s.RaceID,
		"date":        s.Date,
		"description": s.Description,
		"cars":        s.Cars,
		"laps":        s.Laps,
		"pitStops":    s.PitStops,
		"yellowLaps":  s.YellowLaps,
	}
}

func timingMap(t model.LapTimingRow, _ int) map[string]any {
	ret := map[string]any{
		"raceId":       t.RaceID,
		"car":          t.Car,
		"driver":       t.Driver,
		"lapStarted":   t.LapStarted,
		"lapCompleted": t.LapCompleted,
		"lapTime":      t.LapTime,
		"raceTime":     t.RaceTime,
		"flag":         string(t.Flag),
	}
	if v, ok := t.Gap.Get(); ok {
		ret["gap"] = v
	}
	return ret
}

func writeSummaryTable(out io.Writer, summaries []raceSummary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Race\tDate\tDescription\tCars\tLaps\tPit stops\tYellow laps")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			s.RaceID, s.Date, s.Description, s.Cars, s.Laps, s.PitStops, s.YellowLaps)
	}
	return w.Flush()
}

func writeTimingTable(out io.Writer, rows []model.LapTimingRow) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Race\tCar\tDriver\tLap\tLap time\tRace time\tGap\tFlag\t")
	for i := range rows {
		t := &rows[i]
		gap := "-"
		if v, ok := t.Gap.Get(); ok {
			gap = fmt.Sprintf("%.3f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3f\t%.3f\t%s\t%s\t\n",
			t.RaceID, t.Car, t.Driver, t.LapCompleted, t.LapTime, t.RaceTime, gap, t.Flag)
	}
	return w.Flush()
}
