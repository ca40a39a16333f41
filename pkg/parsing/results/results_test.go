package results

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		grids []model.Grid
		want  []model.ResultsRow
	}{
		{
			name: "plain table after other grid",
			grids: []model.Grid{
				{{"Event Results"}},
				{
					{"Race", "", "", "", "", ""},
					{"Pos", "Car", "Driver", "Laps", "Elapsed Time", "Status"},
					{"1", "10", "Alpha Driver", "3", "0:01:35.125", "Running"},
					{"2", "7", "Bravo Driver", "3", "0:01:36.500", "Running"},
					{"Fastest Lap", "", "", "", "", ""},
				},
			},
			want: []model.ResultsRow{
				{
					Pos: 1, Car: "10", Driver: "Alpha Driver", Laps: 3, ElapsedTime: "0:01:35.125",
					Extra: []model.ResultColumn{{Name: "Status", Value: "Running"}},
				},
				{
					Pos: 2, Car: "7", Driver: "Bravo Driver", Laps: 3, ElapsedTime: "0:01:36.500",
					Extra: []model.ResultColumn{{Name: "Status", Value: "Running"}},
				},
			},
		},
		{
			name: "wrapped header and leading column",
			grids: []model.Grid{{
				{"", "", "", "", "", "Laps", "Elapsed"},
				{"x", "Pos", "Car", "Driver", "Laps", "Down", "Time"},
				{"", "1", "10", "Alpha Driver", "85", "0", "1:32:07.455"},
				{"", "2", "7", "Bravo Driver", "84", "1", "1:32:09.000"},
				{"", "2", "5", "Charlie Driver", "84", "1", "1:32:10.000"},
			}},
			want: []model.ResultsRow{
				{
					Pos: 1, Car: "10", Driver: "Alpha Driver", Laps: 85, ElapsedTime: "1:32:07.455",
					Extra: []model.ResultColumn{{Name: "Laps Down", Value: "0"}},
				},
				{
					Pos: 2, Car: "7", Driver: "Bravo Driver", Laps: 84, ElapsedTime: "1:32:09.000",
					Extra: []model.ResultColumn{{Name: "Laps Down", Value: "1"}},
				},
			},
		},
		{
			name: "car driver split",
			grids: []model.Grid{{
				{"Pos", "Car Driver", "", "Laps", "Elapsed Time"},
				{"1", "10", "Alpha Driver", "85", "1:32:07.455"},
			}},
			want: []model.ResultsRow{
				{Pos: 1, Car: "10", Driver: "Alpha Driver", Laps: 85, ElapsedTime: "1:32:07.455"},
			},
		},
		{
			name: "car driver merged in one cell",
			grids: []model.Grid{{
				{"Pos", "Car Driver", "Laps", "Elapsed Time"},
				{"1", "10 Alpha Driver", "85", "1:32:07.455"},
			}},
			want: []model.ResultsRow{
				{
					Pos: 1, Car: "10", Driver: "Alpha Driver", Laps: 85, ElapsedTime: "1:32:07.455",
					Extra: []model.ResultColumn{{Name: "Car Driver", Value: "10 Alpha Driver"}},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.grids)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		grids []model.Grid
	}{
		{name: "no grids", grids: nil},
		{name: "no pos column", grids: []model.Grid{{{"Car", "Driver"}}}},
		{
			name:  "first position not 1",
			grids: []model.Grid{{{"Pos", "Car"}, {"2", "10"}}},
		},
		{
			name:  "header is last row",
			grids: []model.Grid{{{"Pos", "Car"}}},
		},
		{
			name: "missing elapsed time",
			grids: []model.Grid{{
				{"Pos", "Car", "Driver", "Laps"},
				{"1", "10", "Alpha Driver", "3"},
			}},
		},
		{
			name: "laps not a number",
			grids: []model.Grid{{
				{"Pos", "Car", "Driver", "Laps", "Elapsed Time"},
				{"1", "10", "Alpha Driver", "-", "0:01:35.125"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.grids)
			assert.ErrorIs(t, err, ErrMalformedResults)
		})
	}
}
