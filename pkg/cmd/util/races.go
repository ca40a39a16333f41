package util

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/config"
	"github.com/mpapenbr/racetiming-analytics/pkg/racedata"
)

// RaceSelection holds the race filter flags of analyze and export.
type RaceSelection struct {
	Races []string
	From  int
	To    int
}

var ErrNoSelection = errors.New("either --race or --from is required")

func (s *RaceSelection) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.Races, "race", nil, "race ids to include")
	cmd.Flags().IntVar(&s.From, "from", 0, "first season to include")
	cmd.Flags().IntVar(&s.To, "to", 0, "last season to include (default: from)")
}

// Aggregator creates an aggregator with the selected races.
func (s *RaceSelection) Aggregator(ctx context.Context) (*racedata.Aggregator, error) {
	opts := []racedata.Option{
		racedata.WithContext(ctx),
		racedata.WithLayout(Layout()),
		racedata.WithLogger(log.Default().Named("racedata")),
	}
	switch {
	case len(s.Races) > 0:
		opts = append(opts, racedata.WithRaces(s.Races...))
	case s.From > 0:
		to := s.To
		if to < s.From {
			to = s.From
		}
		opts = append(opts, racedata.WithYears(s.From, to))
	default:
		return nil, ErrNoSelection
	}
	return racedata.New(config.BaseDir, opts...)
}
