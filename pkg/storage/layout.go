// Package storage handles the on-disk artifacts: downloaded pdfs,
// the raw span cache and the cleaned parquet files.
package storage

import (
	"os"
	"path/filepath"
	"strings"
)

type Kind struct {
	Report   string // report type as used in pdf file names
	CleanDir string // sub directory below raw and clean dirs
	Prefix   string // file name prefix of cleaned artifacts
}

var (
	SectionResults = Kind{
		Report:   "sectionresults",
		CleanDir: "section results",
		Prefix:   "sectionresults_",
	}
	Results = Kind{
		Report:   "results",
		CleanDir: "results",
		Prefix:   "results_",
	}
)

const (
	pdfExt     = ".pdf"
	rawExt     = ".json"
	parquetExt = ".pq"
)

// Layout resolves artifact locations.
type Layout struct {
	PDFDir   string
	RawDir   string
	CleanDir string
}

// NewLayout uses <base>/pdfs, <base>/parsedraw and <base>/cleandata
// for directories not given.
func NewLayout(base, pdfDir, rawDir, cleanDir string) Layout {
	def := func(v, sub string) string {
		if v != "" {
			return v
		}
		return filepath.Join(base, sub)
	}
	return Layout{
		PDFDir:   def(pdfDir, "pdfs"),
		RawDir:   def(rawDir, "parsedraw"),
		CleanDir: def(cleanDir, "cleandata"),
	}
}

func (l Layout) SourceDir(k Kind) string { return filepath.Join(l.PDFDir, k.Report) }
func (l Layout) RawDirOf(k Kind) string  { return filepath.Join(l.RawDir, k.CleanDir) }
func (l Layout) CleanDirOf(k Kind) string {
	return filepath.Join(l.CleanDir, k.CleanDir)
}

// DocName strips directory and a known artifact extension from a document
// file name. Race names may contain dots ("St. Petersburg").
func DocName(file string) string {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case pdfExt, rawExt, parquetExt:
		return strings.TrimSuffix(base, ext)
	default:
		return base
	}
}

// SourcePath keeps the extension of doc if it names a pdf.
func (l Layout) SourcePath(k Kind, doc string) string {
	base := filepath.Base(doc)
	if strings.EqualFold(filepath.Ext(base), pdfExt) {
		return filepath.Join(l.SourceDir(k), base)
	}
	return filepath.Join(l.SourceDir(k), base+pdfExt)
}

func (l Layout) RawPath(k Kind, doc string) string {
	return filepath.Join(l.RawDirOf(k), DocName(doc)+rawExt)
}

func (l Layout) CleanPath(k Kind, doc string) string {
	return filepath.Join(l.CleanDirOf(k), DocName(doc)+parquetExt)
}

// EnsureDirs creates the directories of kind k.
func (l Layout) EnsureDirs(k Kind) error {
	for _, d := range []string{l.SourceDir(k), l.RawDirOf(k), l.CleanDirOf(k)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// SourceFiles lists the pdf file names of kind k.
func (l Layout) SourceFiles(k Kind) ([]string, error) {
	entries, err := os.ReadDir(l.SourceDir(k))
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), pdfExt) {
			ret = append(ret, e.Name())
		}
	}
	return ret, nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
