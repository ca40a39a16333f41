package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

// WriteSpans stores the raw spans as a json array.
func WriteSpans(path string, spans []model.Span) error {
	if spans == nil {
		spans = []model.Span{}
	}
	return writeAtomic(path, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(spans)
	})
}

func ReadSpans(path string) ([]model.Span, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ret []model.Span
	if err := json.NewDecoder(f).Decode(&ret); err != nil {
		return nil, err
	}
	return ret, nil
}
