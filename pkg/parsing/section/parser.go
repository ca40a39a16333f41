// Package section reconstructs section timing tables from positioned spans.
package section

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

type (
	Parser struct {
		l *log.Logger
	}
	ParserOption func(p *Parser)
)

func WithLogger(l *log.Logger) ParserOption {
	return func(p *Parser) {
		p.l = l
	}
}

func NewParser(opts ...ParserOption) *Parser {
	ret := &Parser{l: log.Default().Named("section")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Parse returns the section rows of all section data pages of a document.
// The legend is harvested once per document. Missing legend is an error,
// pages without section data are skipped.
func (p *Parser) Parse(spans []model.Span) ([]model.SectionRow, error) {
	defs, err := Legend(spans)
	if err != nil {
		return nil, err
	}
	p.l.Debug("legend", log.Int("sections", len(defs)))

	byPage := lo.GroupBy(spans, func(s model.Span) int { return s.Page })
	pages := lo.Keys(byPage)
	slices.Sort(pages)
	ret := make([]model.SectionRow, 0)
	seen := map[string]struct{}{}
	for _, page := range pages {
		for _, row := range parsePage(byPage[page], defs, p.l) {
			key := fmt.Sprintf("%s/%d/%s", row.Car, row.Lap, row.Section)
			if _, ok := seen[key]; ok {
				p.l.Warn("duplicate section row dropped",
					log.Int("page", page), log.String("key", key))
				continue
			}
			seen[key] = struct{}{}
			ret = append(ret, row)
		}
	}
	return ret, nil
}
