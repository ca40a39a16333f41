package storage

import (
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

// WriteTable stores rows as parquet file.
func WriteTable[T any](path string, rows []T) error {
	return writeAtomic(path, func(w io.Writer) error {
		return parquet.Write(w, rows, parquet.Compression(&parquet.Zstd))
	})
}

func ReadTable[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

func WriteSectionRows(path string, rows []model.SectionRow) error {
	return WriteTable(path, rows)
}

func ReadSectionRows(path string) ([]model.SectionRow, error) {
	return ReadTable[model.SectionRow](path)
}

func WriteResultsRows(path string, rows []model.ResultsRow) error {
	return WriteTable(path, rows)
}

func ReadResultsRows(path string) ([]model.ResultsRow, error) {
	return ReadTable[model.ResultsRow](path)
}
