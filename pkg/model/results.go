package model

// ResultColumn keeps an official result column not mapped to a ResultsRow field.
type ResultColumn struct {
	Name  string `parquet:"Name"`
	Value string `parquet:"Value"`
}

// ResultsRow is one line of the official race results.
type ResultsRow struct {
	RaceID      string         `parquet:"RaceID"`
	Pos         int            `parquet:"Pos"`
	Car         string         `parquet:"Car"`
	Driver      string         `parquet:"Driver"`
	Laps        int            `parquet:"Laps"`
	ElapsedTime string         `parquet:"ElapsedTime"`
	Extra       []ResultColumn `parquet:"Extra"`
}

// Column returns the value of an additional result column.
func (r *ResultsRow) Column(name string) (string, bool) {
	for _, c := range r.Extra {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}
