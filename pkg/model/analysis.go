package model

import "github.com/aarondl/opt/null"

// LapTimingRow is the cumulative race time of a car at a lap boundary.
// LapCompleted 0 carries the time to the leader at the start.
type LapTimingRow struct {
	RaceID       string
	Car          string
	Driver       string
	LapStarted   int
	LapCompleted int
	LapTime      float64
	RaceTime     float64
	Gap          null.Val[float64] // to the row ahead in race time order
	Flag         Flag
}

type PitStopRow struct {
	LapTimingRow
	InLap        int
	OutLap       int
	LastPitLap   int
	LapsSincePit int
}

type FlagRow struct {
	RaceID       string
	Car          string
	Lap          int
	SectionFlags []Flag
	Flag         Flag
}
