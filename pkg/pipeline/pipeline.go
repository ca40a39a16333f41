// Package pipeline turns downloaded report pdfs into cleaned parquet tables.
//
// Section results documents pass two stages: raw extraction into a json span
// cache and parsing into the cleaned table. Results documents are parsed from
// the table grids of their first page. A stage is skipped when its artifact
// already exists. Failures are isolated per document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/extract"
	"github.com/mpapenbr/racetiming-analytics/pkg/geometry"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
	"github.com/mpapenbr/racetiming-analytics/pkg/notify"
	"github.com/mpapenbr/racetiming-analytics/pkg/parsing/results"
	"github.com/mpapenbr/racetiming-analytics/pkg/parsing/section"
	"github.com/mpapenbr/racetiming-analytics/pkg/storage"
)

// SelectAll selects every pdf of the source directory.
const SelectAll = "ALL"

var (
	ErrSourceMissing  = errors.New("source document not found")
	ErrNoCollaborator = errors.New("no extraction collaborator configured")
	ErrPanic          = errors.New("panic while processing")
)

type outcome int

const (
	outcomeCleaned outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeCleaned:
		return "cleaned"
	case outcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

type (
	Failure struct {
		Document string
		Err      error
	}
	// Summary collects the outcome of one batch run.
	Summary struct {
		RunID     string
		Processed []string
		Skipped   []string
		Failed    []Failure
	}
)

func (s *Summary) String() string {
	return fmt.Sprintf("run %s: %d processed, %d skipped, %d failed",
		s.RunID, len(s.Processed), len(s.Skipped), len(s.Failed))
}

type (
	Pipeline struct {
		kind      storage.Kind
		layout    storage.Layout
		extractor extract.Extractor
		detector  extract.TableDetector
		parser    *section.Parser
		notifier  notify.Notifier
		preflight func(path string) error
		l         *log.Logger
		rec       *recorder
	}
	Option func(*Pipeline)
)

func WithExtractor(e extract.Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

func WithTableDetector(d extract.TableDetector) Option {
	return func(p *Pipeline) {
		p.detector = d
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithPreflight checks each source pdf before extraction.
// strict enables the strict pdf validation.
func WithPreflight(strict bool) Option {
	return func(p *Pipeline) {
		p.preflight = func(path string) error {
			_, err := extract.Preflight(path, strict)
			return err
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.l = l
	}
}

// NewSections creates the pipeline for section results documents.
func NewSections(layout storage.Layout, opts ...Option) *Pipeline {
	return newPipeline(storage.SectionResults, layout, opts...)
}

// NewResults creates the pipeline for official results documents.
func NewResults(layout storage.Layout, opts ...Option) *Pipeline {
	return newPipeline(storage.Results, layout, opts...)
}

func newPipeline(kind storage.Kind, layout storage.Layout, opts ...Option) *Pipeline {
	ret := &Pipeline{
		kind:     kind,
		layout:   layout,
		notifier: notify.Noop{},
		l:        log.Default().Named("pipeline"),
		rec:      newRecorder(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.parser == nil {
		ret.parser = section.NewParser(section.WithLogger(ret.l.Named("section")))
	}
	return ret
}

func (p *Pipeline) Kind() storage.Kind {
	return p.kind
}

// Select resolves the documents to process. A single "ALL" (any case)
// selects every pdf of the source directory.
func (p *Pipeline) Select(args []string) ([]string, error) {
	if len(args) == 1 && strings.EqualFold(args[0], SelectAll) {
		return p.layout.SourceFiles(p.kind)
	}
	return args, nil
}

// Run processes the documents one after another. A failing document is
// recorded in the summary and the run continues. Only a canceled context
// stops the run early.
func (p *Pipeline) Run(ctx context.Context, docs []string) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	l := p.l.With(log.String("runId", sum.RunID), log.String("kind", p.kind.Report))
	if err := p.layout.EnsureDirs(p.kind); err != nil {
		return sum, err
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			l.Warn("run canceled", log.ErrorField(err))
			return sum, err
		}
		name := storage.DocName(doc)
		start := time.Now()
		o, err := p.process(log.AddToContext(ctx, l), sum.RunID, doc)
		p.rec.document(ctx, p.kind.Report, o, start)
		switch o {
		case outcomeCleaned:
			sum.Processed = append(sum.Processed, name)
		case outcomeSkipped:
			sum.Skipped = append(sum.Skipped, name)
		case outcomeFailed:
			l.Warn("document failed", log.String("document", name), log.ErrorField(err))
			sum.Failed = append(sum.Failed, Failure{Document: name, Err: err})
		}
	}
	l.Info("run done",
		log.Int("processed", len(sum.Processed)),
		log.Int("skipped", len(sum.Skipped)),
		log.Int("failed", len(sum.Failed)))
	return sum, nil
}

// process runs the stages of one document. A panic in a collaborator or
// parser fails this document only.
func (p *Pipeline) process(ctx context.Context, runID, file string) (o outcome, err error) {
	doc := storage.DocName(file)
	ctx, span := tracer.Start(ctx, "process document",
		trace.WithAttributes(
			attribute.String("kind", p.kind.Report),
			attribute.String("document", doc)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			o, err = outcomeFailed, fmt.Errorf("document %s: %w: %v", doc, ErrPanic, r)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	l := log.GetFromContext(ctx).With(log.String("document", doc))
	clean := p.layout.CleanPath(p.kind, doc)
	if storage.Exists(clean) {
		l.Debug("cleaned artifact exists", log.String("artifact", clean))
		return outcomeSkipped, nil
	}

	var n int
	if p.kind == storage.SectionResults {
		n, err = p.cleanSections(ctx, l, file, clean)
	} else {
		n, err = p.cleanResults(ctx, l, file, clean)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return outcomeFailed, err
	}
	p.rec.cleaned(ctx, p.kind.Report, n)

	msg := &notify.Cleaned{
		RunID:    runID,
		Kind:     p.kind.Report,
		Document: doc,
		RaceID:   raceIDOf(doc),
		Rows:     n,
		Artifact: clean,
		Time:     time.Now(),
	}
	if err := p.notifier.Cleaned(ctx, msg); err != nil {
		l.Warn("notification failed", log.ErrorField(err))
	}
	return outcomeCleaned, nil
}

func (p *Pipeline) cleanSections(
	ctx context.Context, l *log.Logger, file, clean string,
) (int, error) {
	spans, err := p.rawSpans(ctx, l, file)
	if err != nil {
		return 0, err
	}
	l.Info("parsing section results")
	rows, err := p.parser.Parse(spans)
	if err != nil {
		return 0, err
	}
	raceID := raceIDOf(file)
	for i := range rows {
		rows[i].RaceID = raceID
	}
	if err := storage.WriteSectionRows(clean, rows); err != nil {
		return 0, err
	}
	l.Info("section results cleaned", log.Int("rows", len(rows)))
	return len(rows), nil
}

// rawSpans returns the cached spans or extracts them from the pdf.
func (p *Pipeline) rawSpans(ctx context.Context, l *log.Logger, file string) (
	[]model.Span, error,
) {
	raw := p.layout.RawPath(p.kind, file)
	if storage.Exists(raw) {
		l.Debug("using raw cache", log.String("artifact", raw))
		return storage.ReadSpans(raw)
	}
	if p.extractor == nil {
		return nil, ErrNoCollaborator
	}
	src, err := p.source(file)
	if err != nil {
		return nil, err
	}
	l.Info("extracting spans")
	pages, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", src, err)
	}
	var spans []model.Span
	rects := make(map[int][]model.FilledRect, len(pages))
	for i := range pages {
		spans = append(spans, pages[i].Spans...)
		rects[pages[i].Number] = pages[i].Rects
	}
	geometry.ResolveSpans(spans, rects)
	if err := storage.WriteSpans(raw, spans); err != nil {
		return nil, err
	}
	return spans, nil
}

func (p *Pipeline) cleanResults(
	ctx context.Context, l *log.Logger, file, clean string,
) (int, error) {
	if p.detector == nil {
		return 0, ErrNoCollaborator
	}
	src, err := p.source(file)
	if err != nil {
		return 0, err
	}
	l.Info("parsing results")
	grids, err := p.detector.DetectTables(ctx, src, 0)
	if err != nil {
		return 0, fmt.Errorf("detect tables %s: %w", src, err)
	}
	rows, err := results.Parse(grids)
	if err != nil {
		return 0, err
	}
	raceID := raceIDOf(file)
	for i := range rows {
		rows[i].RaceID = raceID
	}
	if err := storage.WriteResultsRows(clean, rows); err != nil {
		return 0, err
	}
	l.Info("results cleaned", log.Int("rows", len(rows)))
	return len(rows), nil
}

func (p *Pipeline) source(file string) (string, error) {
	src := p.layout.SourcePath(p.kind, file)
	if !storage.Exists(src) {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, src)
	}
	if p.preflight != nil {
		if err := p.preflight(src); err != nil {
			return "", err
		}
	}
	return src, nil
}

func raceIDOf(file string) string {
	info, _ := storage.ParseName(storage.DocName(file))
	return info.RaceID
}
