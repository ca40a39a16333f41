package download

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/mpapenbr/racetiming-analytics/log"
)

const (
	seasonButton = "#season-select-button-race"
	raceButton   = "#race-select-button"
	menuOptions  = "//div[contains(@class, 'custom-select-menu') and " +
		"contains(@class, 'show')]//a"
	raceNamesJS = `Array.from(document.querySelectorAll("div.custom-select-menu.show a"))` +
		`.map(a => a.textContent.trim())`
)

// Session is a browser session on the season results page.
// It must be closed after use.
type Session struct {
	resultsURL  string
	headless    bool
	timeout     time.Duration
	settle      time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	year        int
	l           *log.Logger
}

type SessionOption func(*Session)

func WithHeadless(headless bool) SessionOption {
	return func(s *Session) {
		s.headless = headless
	}
}

// WithTimeout limits each browser interaction.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithSettleDelay is the pause after menu selections until the page has updated.
func WithSettleDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		s.settle = d
	}
}

func WithSessionLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		s.l = l
	}
}

var _ Browser = (*Session)(nil)

// NewSession starts the browser.
func NewSession(ctx context.Context, resultsURL string, opts ...SessionOption) (
	*Session, error,
) {
	s := &Session{
		resultsURL: resultsURL,
		headless:   true,
		timeout:    30 * time.Second,
		settle:     2 * time.Second,
		l:          log.Default().Named("browser"),
	}
	for _, opt := range opts {
		opt(s)
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	bCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			s.l.Debug(fmt.Sprintf(format, args...))
		}))
	if err := chromedp.Run(bCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	s.ctx, s.cancel, s.allocCancel = bCtx, cancel, allocCancel
	return s, nil
}

// Close stops the browser.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

func (s *Session) Races(ctx context.Context, year int) ([]string, error) {
	if err := s.selectYear(ctx, year); err != nil {
		return nil, err
	}
	var names []string
	err := s.run(ctx,
		chromedp.Click(raceButton, chromedp.ByID),
		chromedp.Sleep(s.settle),
		chromedp.Evaluate(raceNamesJS, &names),
		chromedp.Click(raceButton, chromedp.ByID),
	)
	return names, err
}

func (s *Session) ReportLinks(
	ctx context.Context,
	year, idx int,
	reportTypes []string,
) (map[string]string, error) {
	if s.year != year {
		if err := s.selectYear(ctx, year); err != nil {
			return nil, err
		}
	}
	err := s.run(ctx,
		chromedp.Click(raceButton, chromedp.ByID),
		chromedp.Sleep(s.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var nodes []*cdp.Node
			if err := chromedp.Nodes(menuOptions, &nodes, chromedp.BySearch).
				Do(ctx); err != nil {
				return err
			}
			if idx >= len(nodes) {
				return fmt.Errorf("race %d not in menu (%d entries)", idx, len(nodes))
			}
			return chromedp.MouseClickNode(nodes[idx]).Do(ctx)
		}),
		chromedp.Sleep(s.settle),
	)
	if err != nil {
		return nil, err
	}
	ret := map[string]string{}
	for _, reportType := range reportTypes {
		var href string
		js := fmt.Sprintf(
			`(document.querySelector("a[href*='%s'][href$='.pdf']") || {}).href || ""`,
			reportType)
		if err := s.run(ctx, chromedp.Evaluate(js, &href)); err != nil {
			return nil, err
		}
		if href != "" {
			ret[reportType] = href
		}
	}
	return ret, nil
}

func (s *Session) selectYear(ctx context.Context, year int) error {
	yearOption := fmt.Sprintf(
		"//div[@class='custom-select-menu show']//a[text()='%d']", year)
	err := s.run(ctx,
		chromedp.Navigate(s.resultsURL),
		chromedp.Click(seasonButton, chromedp.ByID),
		chromedp.WaitVisible(yearOption, chromedp.BySearch),
		chromedp.ScrollIntoView(yearOption, chromedp.BySearch),
		chromedp.Click(yearOption, chromedp.BySearch),
		chromedp.Sleep(s.settle),
	)
	if err != nil {
		return fmt.Errorf("select season %d: %w", year, err)
	}
	s.year = year
	return nil
}

// run executes actions in the browser, bounded by the session timeout and ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	tCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tCtx, actions...)
}
