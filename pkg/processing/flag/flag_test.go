package flag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

func TestAggregate(t *testing.T) {
	const (
		g  = model.FlagGreen
		y  = model.FlagYellow
		r  = model.FlagRed
		gr = model.FlagGray
	)
	tests := []struct {
		name  string
		flags []model.Flag
		want  model.Flag
	}{
		{name: "thrown", flags: []model.Flag{g, y, g}, want: model.FlagYellowThrown},
		{name: "thrown wins over red", flags: []model.Flag{r, g, y}, want: model.FlagYellowThrown},
		{name: "red", flags: []model.Flag{r}, want: model.FlagRed},
		{name: "red over yellow", flags: []model.Flag{y, r, y}, want: model.FlagRed},
		{name: "red with green", flags: []model.Flag{g, r}, want: model.FlagRed},
		{name: "yellow", flags: []model.Flag{y, y}, want: model.FlagYellow},
		{name: "gray falls through", flags: []model.Flag{gr}, want: model.FlagGreen},
		{name: "gray and yellow", flags: []model.Flag{gr, y}, want: model.FlagYellow},
		{name: "green", flags: []model.Flag{g, g}, want: model.FlagGreen},
		{name: "empty", flags: nil, want: model.FlagGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.flags))
		})
	}
}

func TestBuild(t *testing.T) {
	sections := []model.SectionRow{
		{RaceID: "1", Car: "7", Lap: 1, Section: "SF to I1", Flag: model.FlagGreen},
		{RaceID: "1", Car: "10", Lap: 2, Section: "SF to I1", Flag: model.FlagGreen},
		{RaceID: "1", Car: "10", Lap: 1, Section: "SF to I1", Flag: model.FlagGreen},
		{RaceID: "1", Car: "10", Lap: 1, Section: "I1 to SF", Flag: model.FlagYellow},
		{RaceID: "1", Car: "10", Lap: 1, Section: "Lap", Flag: model.FlagGreen},
		{RaceID: "1", Car: "10", Lap: 2, Section: "I1 to SF", Flag: model.FlagYellow},
		{RaceID: "0", Car: "10", Lap: 1, Section: "Lap", Flag: model.FlagGray},
	}
	want := []model.FlagRow{
		{RaceID: "0", Car: "10", Lap: 1, SectionFlags: []model.Flag{model.FlagGray}, Flag: model.FlagGreen},
		{
			RaceID: "1", Car: "10", Lap: 1,
			SectionFlags: []model.Flag{model.FlagGreen, model.FlagYellow, model.FlagGreen},
			Flag:         model.FlagYellowThrown,
		},
		{
			RaceID: "1", Car: "10", Lap: 2,
			SectionFlags: []model.Flag{model.FlagGreen, model.FlagYellow},
			Flag:         model.FlagYellowThrown,
		},
		{RaceID: "1", Car: "7", Lap: 1, SectionFlags: []model.Flag{model.FlagGreen}, Flag: model.FlagGreen},
	}
	if diff := cmp.Diff(want, Build(sections)); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}
