package model

type Flag string

const (
	FlagGreen        Flag = "Green"
	FlagYellow       Flag = "Yellow"
	FlagRed          Flag = "Red"
	FlagGray         Flag = "Gray"
	FlagYellowThrown Flag = "Yellow Thrown"
)

// well known section names
const (
	SectionLap     = "Lap"
	SectionPitIn   = "SF to PI"
	SectionPitExit = "PO to SF"
)

// SectionDefinition is one track section from the report legend.
type SectionDefinition struct {
	Name   string
	Length string
}

// SectionRow holds time and speed of one car in one section of one lap.
type SectionRow struct {
	RaceID  string  `parquet:"RaceID"`
	Car     string  `parquet:"Car"`
	Driver  string  `parquet:"Driver"`
	Lap     int     `parquet:"Lap"`
	Section string  `parquet:"Section"`
	Flag    Flag    `parquet:"Flag"`
	Time    float64 `parquet:"Time"`
	Speed   float64 `parquet:"Speed"`
}
