package export

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/cmd/util"
	"github.com/mpapenbr/racetiming-analytics/pkg/repository"
	"github.com/mpapenbr/racetiming-analytics/pkg/service"
)

var (
	selection util.RaceSelection
	verify    bool
)

func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "stores the analytics tables of cleaned races in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context())
		},
	}
	selection.AddFlags(cmd)
	cmd.Flags().BoolVar(&verify, "verify", true,
		"read the exported races back and compare the row counts")
	return cmd
}

//nolint:funlen // by design
func runExport(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry := util.StartTelemetry(ctx)
	if telemetry != nil {
		defer telemetry.Shutdown()
	}
	agg, err := selection.Aggregator(ctx)
	if err != nil {
		log.Error("could not load races", log.ErrorField(err))
		return err
	}
	pool, err := util.NewPool(ctx, telemetry)
	if err != nil {
		log.Error("could not connect to database", log.ErrorField(err))
		return err
	}
	defer pool.Close()

	repos := repository.NewRepositoriesFromPool(pool)
	svc := service.InitExportService(repos.Analysis, repos.Tx,
		service.WithLogger(log.Default().Named("export")))
	res, err := svc.Export(ctx, agg)
	if err != nil {
		log.Error("export failed", log.ErrorField(err))
		return err
	}
	log.Info("export finished",
		log.String("batch", res.Batch.String()),
		log.Strings("races", res.Races))
	if !verify {
		return nil
	}
	for _, raceID := range res.Races {
		want, err := agg.Race(ctx, raceID)
		if err != nil {
			return err
		}
		race, got, err := svc.Load(ctx, raceID)
		if err != nil {
			return err
		}
		fields := []log.Field{
			log.String("raceId", raceID),
			log.String("batch", race.ExportBatch.String()),
			log.Int("timing", len(got.Timing)),
			log.Int("pitStops", len(got.PitStops)),
			log.Int("flags", len(got.Flags)),
		}
		if len(got.Timing) != len(want.Timing) ||
			len(got.PitStops) != len(want.PitStops) ||
			len(got.Flags) != len(want.Flags) {
			log.Warn("exported race differs", fields...)
			continue
		}
		log.Debug("exported race verified", fields...)
	}
	return nil
}
