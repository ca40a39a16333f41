// Package download collects the report pdfs of the race result pages.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/storage"
)

// ReportTypes are the report pdfs looked up for each race.
var ReportTypes = []string{
	"eventsummary",
	"leaderlapsummary",
	"pitstopsummary",
	"boxscore",
	"lapchart",
	"results",
	"sectionresults",
	"topsectiontimes",
}

var (
	ErrReportURL = errors.New("unexpected report url")
)

// Browser navigates the season result pages.
type Browser interface {
	// Races returns the names of the races of a season.
	Races(ctx context.Context, year int) ([]string, error)
	// ReportLinks returns the pdf urls by report type for the race at idx.
	// Report types without a pdf are not contained.
	ReportLinks(ctx context.Context, year, idx int, reportTypes []string) (
		map[string]string, error)
	Close()
}

// Fetcher retrieves the content of a url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

type (
	Downloader struct {
		browser     Browser
		fetcher     Fetcher
		pdfDir      string
		reportTypes []string
		l           *log.Logger
	}
	Option func(*Downloader)

	Summary struct {
		Downloaded int
		Existing   int
		Missing    int
		Failed     int
	}
)

func WithFetcher(f Fetcher) Option {
	return func(d *Downloader) {
		d.fetcher = f
	}
}

func WithReportTypes(types ...string) Option {
	return func(d *Downloader) {
		d.reportTypes = types
	}
}

func WithLogger(l *log.Logger) Option {
	return func(d *Downloader) {
		d.l = l
	}
}

func NewDownloader(browser Browser, pdfDir string, opts ...Option) *Downloader {
	ret := &Downloader{
		browser:     browser,
		fetcher:     &HTTPFetcher{Client: http.DefaultClient},
		pdfDir:      pdfDir,
		reportTypes: ReportTypes,
		l:           log.Default().Named("download"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run downloads the reports of all races in the seasons from..to.
// Files already present are not fetched again.
// Failures of single reports are logged and counted.
func (d *Downloader) Run(ctx context.Context, from, to int) (*Summary, error) {
	ret := &Summary{}
	for year := from; year <= to; year++ {
		races, err := d.browser.Races(ctx, year)
		if err != nil {
			return ret, fmt.Errorf("season %d: %w", year, err)
		}
		d.l.Info("season", log.Int("year", year), log.Int("races", len(races)))
		for idx, race := range races {
			if err := ctx.Err(); err != nil {
				return ret, err
			}
			links, err := d.browser.ReportLinks(ctx, year, idx, d.reportTypes)
			if err != nil {
				return ret, fmt.Errorf("season %d race %s: %w", year, race, err)
			}
			for _, reportType := range d.reportTypes {
				d.report(ctx, ret, year, race, reportType, links[reportType])
			}
		}
	}
	return ret, nil
}

func (d *Downloader) report(
	ctx context.Context,
	sum *Summary,
	year int,
	race, reportType, link string,
) {
	l := d.l.With(log.Int("year", year), log.String("race", race),
		log.String("report", reportType))
	if link == "" {
		l.Info("no report pdf")
		sum.Missing++
		return
	}
	raceID, date, err := ParseReportURL(link, year)
	if err != nil {
		l.Warn("skip report", log.ErrorField(err))
		sum.Failed++
		return
	}
	path := filepath.Join(d.pdfDir, reportType,
		storage.FileName(reportType, date, raceID, race, ".pdf"))
	if storage.Exists(path) {
		l.Debug("already downloaded", log.String("file", path))
		sum.Existing++
		return
	}
	if err := d.fetch(ctx, link, path); err != nil {
		l.Warn("download failed", log.String("url", link), log.ErrorField(err))
		sum.Failed++
		return
	}
	l.Info("downloaded", log.String("file", path))
	sum.Downloaded++
}

func (d *Downloader) fetch(ctx context.Context, link, path string) error {
	body, err := d.fetcher.Fetch(ctx, link)
	if err != nil {
		return err
	}
	defer body.Close()
	return storage.WriteStream(path, body)
}

var (
	fullDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthDayRe  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
	numericIDRe = regexp.MustCompile(`^\d+$`)
)

// ParseReportURL extracts race id and date from a report url.
// They are the third and second last path segments.
// A date without year (MM-DD) is completed with year.
func ParseReportURL(link string, year int) (raceID, date string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", link, err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 3 {
		return "", "", fmt.Errorf("%s: %w", link, ErrReportURL)
	}
	raceID, date = segs[len(segs)-3], segs[len(segs)-2]
	if !numericIDRe.MatchString(raceID) {
		return "", "", fmt.Errorf("%s: race id %q: %w", link, raceID, ErrReportURL)
	}
	switch {
	case fullDateRe.MatchString(date):
	case monthDayRe.MatchString(date):
		m := monthDayRe.FindStringSubmatch(date)
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		date = fmt.Sprintf("%d-%02d-%02d", year, month, day)
	default:
		return "", "", fmt.Errorf("%s: date %q: %w", link, date, ErrReportURL)
	}
	return raceID, date, nil
}

// HTTPFetcher fetches via plain http GET.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, link string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %s", link, resp.Status)
	}
	return resp.Body, nil
}
