package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racetiming-analytics/pkg/extract"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/notify"
	"github.com/mpapenbr/racetiming-analytics/pkg/parsing/results"
	"github.com/mpapenbr/racetiming-analytics/pkg/parsing/section"
	"github.com/mpapenbr/racetiming-analytics/pkg/storage"
	"github.com/mpapenbr/racetiming-analytics/testsupport/sampledoc"
)

const (
	sectionDoc = "sectionresults_2017-03-12_1234_St. Petersburg"
	resultsDoc = "results_2017-03-12_1234_St. Petersburg"
)

// fakeExtractor serves documents by file path. Fills of the spans are
// turned into filled rects below the spans, the spans itself carry no fill.
type fakeExtractor struct {
	docs   map[string][]model.Span
	errs   map[string]error
	panics map[string]bool
	calls  int
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]extract.Page, error) {
	f.calls++
	doc := storage.DocName(path)
	if err, ok := f.errs[doc]; ok {
		return nil, err
	}
	if f.panics[doc] {
		panic(fmt.Sprintf("corrupt xref table in %s", doc))
	}
	spans, ok := f.docs[doc]
	if !ok {
		return nil, errors.New("unknown document")
	}
	byPage := lo.GroupBy(spans, func(s model.Span) int { return s.Page })
	ret := make([]extract.Page, 0, len(byPage))
	for i := 0; i < len(byPage); i++ {
		pg := extract.Page{Number: i, Width: 612, Height: 792}
		for _, s := range byPage[i] {
			if s.Fill != nil {
				b := s.BBox
				pg.Rects = append(pg.Rects, model.FilledRect{
					Rect: model.BBox{b[0] + 1, b[1] + 1, b[2] - 1, b[3] - 1},
					Fill: *s.Fill,
				})
			}
			s.Fill = nil
			pg.Spans = append(pg.Spans, s)
		}
		ret = append(ret, pg)
	}
	return ret, nil
}

type fakeDetector struct {
	grids map[string][]model.Grid
	pages []int
}

func (f *fakeDetector) DetectTables(_ context.Context, path string, page int) (
	[]model.Grid, error,
) {
	f.pages = append(f.pages, page)
	return f.grids[storage.DocName(path)], nil
}

type notifications struct {
	msgs []*notify.Cleaned
}

func (n *notifications) Cleaned(_ context.Context, msg *notify.Cleaned) error {
	n.msgs = append(n.msgs, msg)
	return nil
}

func sampleCars() []sampledoc.Car {
	return []sampledoc.Car{
		{
			Number: "10", Driver: "Alpha Driver",
			Laps: []sampledoc.Lap{
				sampledoc.SimpleLap(model.FlagGreen, 30.5, 31.25),
				sampledoc.SimpleLap(model.FlagGreen, 29.75, 30.5),
				sampledoc.SimpleLap(model.FlagYellow, 40.125, 41.5),
			},
		},
		{
			Number: "7", Driver: "Bravo Driver",
			Laps: []sampledoc.Lap{
				sampledoc.SimpleLap(model.FlagGreen, 31.5, 31.25),
				sampledoc.SimpleLap(model.FlagGreen, 30.75, 30.5),
				sampledoc.SimpleLap(model.FlagYellow, 39.125, 42.5),
			},
		},
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
}

func newLayout(t *testing.T) storage.Layout {
	t.Helper()
	return storage.NewLayout(t.TempDir(), "", "", "")
}

func TestSections_Run(t *testing.T) {
	layout := newLayout(t)
	touch(t, layout.SourcePath(storage.SectionResults, sectionDoc))
	ex := &fakeExtractor{docs: map[string][]model.Span{
		sectionDoc: sampledoc.Document(sampleCars()...),
	}}
	n := &notifications{}
	p := NewSections(layout, WithExtractor(ex), WithNotifier(n))

	sum, err := p.Run(context.Background(), []string{sectionDoc + ".pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{sectionDoc}, sum.Processed)
	assert.Empty(t, sum.Failed)
	assert.NotEmpty(t, sum.RunID)

	assert.FileExists(t, layout.RawPath(storage.SectionResults, sectionDoc))
	rows, err := storage.ReadSectionRows(layout.CleanPath(storage.SectionResults, sectionDoc))
	require.NoError(t, err)
	assert.Len(t, rows, 2*3*len(sampledoc.Sections))
	for _, r := range rows {
		assert.Equal(t, "1234", r.RaceID)
	}
	keys := lo.Map(rows, func(r model.SectionRow, _ int) string {
		return fmt.Sprintf("%s/%d/%s", r.Car, r.Lap, r.Section)
	})
	assert.Len(t, lo.Uniq(keys), len(rows), "(Car, Lap, Section) must be unique")

	lap3 := lo.Filter(rows, func(r model.SectionRow, _ int) bool {
		return r.Car == "10" && r.Lap == 3 && r.Section == model.SectionLap
	})
	require.Len(t, lap3, 1)
	assert.Equal(t, model.FlagYellow, lap3[0].Flag)
	assert.InDelta(t, 81.625, lap3[0].Time, 1e-9)

	require.Len(t, n.msgs, 1)
	assert.Equal(t, "sectionresults", n.msgs[0].Kind)
	assert.Equal(t, "1234", n.msgs[0].RaceID)
	assert.Equal(t, len(rows), n.msgs[0].Rows)
	assert.Equal(t, sum.RunID, n.msgs[0].RunID)
}

func TestSections_Idempotent(t *testing.T) {
	layout := newLayout(t)
	touch(t, layout.SourcePath(storage.SectionResults, sectionDoc))
	ex := &fakeExtractor{docs: map[string][]model.Span{
		sectionDoc: sampledoc.Document(sampleCars()...),
	}}
	n := &notifications{}
	p := NewSections(layout, WithExtractor(ex), WithNotifier(n))

	_, err := p.Run(context.Background(), []string{sectionDoc})
	require.NoError(t, err)

	paths := []string{
		layout.RawPath(storage.SectionResults, sectionDoc),
		layout.CleanPath(storage.SectionResults, sectionDoc),
	}
	before := map[string][]byte{}
	stats := map[string]os.FileInfo{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		before[path] = data
		fi, err := os.Stat(path)
		require.NoError(t, err)
		stats[path] = fi
	}

	sum, err := p.Run(context.Background(), []string{sectionDoc})
	require.NoError(t, err)
	assert.Equal(t, []string{sectionDoc}, sum.Skipped)
	assert.Empty(t, sum.Processed)
	assert.Equal(t, 1, ex.calls)
	assert.Len(t, n.msgs, 1)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before[path], data)
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, stats[path].ModTime(), fi.ModTime())
	}
}

func TestSections_UsesRawCache(t *testing.T) {
	layout := newLayout(t)
	touch(t, layout.SourcePath(storage.SectionResults, sectionDoc))
	ex := &fakeExtractor{docs: map[string][]model.Span{
		sectionDoc: sampledoc.Document(sampleCars()...),
	}}
	p := NewSections(layout, WithExtractor(ex))
	_, err := p.Run(context.Background(), []string{sectionDoc})
	require.NoError(t, err)

	clean := layout.CleanPath(storage.SectionResults, sectionDoc)
	first, err := storage.ReadSectionRows(clean)
	require.NoError(t, err)
	require.NoError(t, os.Remove(clean))
	// the source is no longer needed once the raw cache exists
	require.NoError(t, os.Remove(layout.SourcePath(storage.SectionResults, sectionDoc)))

	sum, err := p.Run(context.Background(), []string{sectionDoc})
	require.NoError(t, err)
	assert.Equal(t, []string{sectionDoc}, sum.Processed)
	assert.Equal(t, 1, ex.calls)
	second, err := storage.ReadSectionRows(clean)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSections_FailureIsolation(t *testing.T) {
	layout := newLayout(t)
	broken := "sectionresults_2017-04-09_1235_Long Beach"
	noLegend := "sectionresults_2017-04-23_1236_Barber"
	missing := "sectionresults_2017-05-13_1237_Indianapolis GP"
	for _, doc := range []string{sectionDoc, broken, noLegend} {
		touch(t, layout.SourcePath(storage.SectionResults, doc))
	}
	boom := errors.New("boom")
	ex := &fakeExtractor{
		docs: map[string][]model.Span{
			sectionDoc: sampledoc.Document(sampleCars()...),
			noLegend:   sampledoc.CarPage(0, sampleCars()[0]),
		},
		errs: map[string]error{broken: boom},
	}
	p := NewSections(layout, WithExtractor(ex))

	sum, err := p.Run(context.Background(), []string{missing, broken, sectionDoc, noLegend})
	require.NoError(t, err)
	assert.Equal(t, []string{sectionDoc}, sum.Processed)
	require.Len(t, sum.Failed, 3)

	byDoc := lo.SliceToMap(sum.Failed, func(f Failure) (string, error) {
		return f.Document, f.Err
	})
	assert.ErrorIs(t, byDoc[missing], ErrSourceMissing)
	assert.ErrorIs(t, byDoc[broken], boom)
	assert.ErrorIs(t, byDoc[noLegend], section.ErrNoLegend)
	assert.NoFileExists(t, layout.CleanPath(storage.SectionResults, broken))
	assert.NoFileExists(t, layout.CleanPath(storage.SectionResults, noLegend))
	// extraction succeeded, so the raw cache is kept
	assert.FileExists(t, layout.RawPath(storage.SectionResults, noLegend))
}

func TestSections_PanicIsolation(t *testing.T) {
	layout := newLayout(t)
	crashing := "sectionresults_2017-04-09_1235_Long Beach"
	for _, doc := range []string{crashing, sectionDoc} {
		touch(t, layout.SourcePath(storage.SectionResults, doc))
	}
	ex := &fakeExtractor{
		docs:   map[string][]model.Span{sectionDoc: sampledoc.Document(sampleCars()...)},
		panics: map[string]bool{crashing: true},
	}
	n := &notifications{}
	p := NewSections(layout, WithExtractor(ex), WithNotifier(n))

	sum, err := p.Run(context.Background(), []string{crashing, sectionDoc})
	require.NoError(t, err)
	assert.Equal(t, []string{sectionDoc}, sum.Processed)
	require.Len(t, sum.Failed, 1)
	assert.Equal(t, crashing, sum.Failed[0].Document)
	assert.ErrorIs(t, sum.Failed[0].Err, ErrPanic)
	assert.Contains(t, sum.Failed[0].Err.Error(), "corrupt xref table")
	assert.NoFileExists(t, layout.CleanPath(storage.SectionResults, crashing))
	assert.FileExists(t, layout.CleanPath(storage.SectionResults, sectionDoc))
	require.Len(t, n.msgs, 1)
	assert.Equal(t, 2, ex.calls)
}

func TestSections_NoExtractor(t *testing.T) {
	layout := newLayout(t)
	touch(t, layout.SourcePath(storage.SectionResults, sectionDoc))
	sum, err := NewSections(layout).Run(context.Background(), []string{sectionDoc})
	require.NoError(t, err)
	require.Len(t, sum.Failed, 1)
	assert.ErrorIs(t, sum.Failed[0].Err, ErrNoCollaborator)
}

func TestRun_Canceled(t *testing.T) {
	layout := newLayout(t)
	ex := &fakeExtractor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := NewSections(layout, WithExtractor(ex)).Run(ctx, []string{sectionDoc})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sum.Processed)
	assert.Empty(t, sum.Failed)
	assert.Equal(t, 0, ex.calls)
}

func TestSelect(t *testing.T) {
	layout := newLayout(t)
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		touch(t, filepath.Join(layout.SourceDir(storage.SectionResults), name))
	}
	p := NewSections(layout)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "all", args: []string{"ALL"}, want: []string{"a.PDF", "b.pdf"}},
		{name: "all lower case", args: []string{"all"}, want: []string{"a.PDF", "b.pdf"}},
		{name: "explicit", args: []string{"x.pdf", "y"}, want: []string{"x.pdf", "y"}},
		{name: "all among others", args: []string{"ALL", "x"}, want: []string{"ALL", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Select(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResults_Run(t *testing.T) {
	layout := newLayout(t)
	malformed := "results_2017-04-09_1235_Long Beach"
	for _, doc := range []string{resultsDoc, malformed} {
		touch(t, layout.SourcePath(storage.Results, doc))
	}
	det := &fakeDetector{grids: map[string][]model.Grid{
		resultsDoc: {{
			{"Pos", "Car", "Driver", "Laps", "Elapsed Time", "Status"},
			{"1", "10", "Alpha Driver", "3", "0:04:45.125", "Running"},
			{"2", "7", "Bravo Driver", "3", "0:04:46.500", "Running"},
		}},
		malformed: {{
			{"Pos", "Car", "Driver", "Laps", "Elapsed Time"},
			{"2", "7", "Bravo Driver", "3", "0:04:46.500"},
		}},
	}}
	n := &notifications{}
	p := NewResults(layout, WithTableDetector(det), WithNotifier(n))

	sum, err := p.Run(context.Background(), []string{resultsDoc, malformed})
	require.NoError(t, err)
	assert.Equal(t, []string{resultsDoc}, sum.Processed)
	require.Len(t, sum.Failed, 1)
	assert.ErrorIs(t, sum.Failed[0].Err, results.ErrMalformedResults)
	assert.Equal(t, []int{0, 0}, det.pages)

	rows, err := storage.ReadResultsRows(layout.CleanPath(storage.Results, resultsDoc))
	require.NoError(t, err)
	want := []model.ResultsRow{
		{
			RaceID: "1234", Pos: 1, Car: "10", Driver: "Alpha Driver", Laps: 3,
			ElapsedTime: "0:04:45.125",
			Extra:       []model.ResultColumn{{Name: "Status", Value: "Running"}},
		},
		{
			RaceID: "1234", Pos: 2, Car: "7", Driver: "Bravo Driver", Laps: 3,
			ElapsedTime: "0:04:46.500",
			Extra:       []model.ResultColumn{{Name: "Status", Value: "Running"}},
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "results", n.msgs[0].Kind)

	sum, err = p.Run(context.Background(), []string{resultsDoc})
	require.NoError(t, err)
	assert.Equal(t, []string{resultsDoc}, sum.Skipped)
	assert.Len(t, det.pages, 2)
}
