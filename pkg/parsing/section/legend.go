package section

import (
	"errors"
	"regexp"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

var ErrNoLegend = errors.New("no section legend found")

var lengthRe = regexp.MustCompile(`^\d.\d+ miles`)

// Legend collects the section definitions of a document.
// The legend starts on the last page having both a "Name" and a "Length" span.
// Each span matching "<d>.<dd> miles" from there on defines a section whose
// name is the text of the span before it.
func Legend(spans []model.Span) ([]model.SectionDefinition, error) {
	page, ok := legendPage(spans)
	if !ok {
		return nil, ErrNoLegend
	}
	ret := make([]model.SectionDefinition, 0)
	for i := range spans {
		if spans[i].Page < page || i == 0 {
			continue
		}
		if lengthRe.MatchString(spans[i].Data) {
			ret = append(ret, model.SectionDefinition{
				Name:   spans[i-1].Data,
				Length: spans[i].Data,
			})
		}
	}
	return ret, nil
}

func legendPage(spans []model.Span) (int, bool) {
	type marks struct{ name, length bool }
	pages := map[int]*marks{}
	maxPage := -1
	for i := range spans {
		p := spans[i].Page
		if p > maxPage {
			maxPage = p
		}
		m, ok := pages[p]
		if !ok {
			m = &marks{}
			pages[p] = m
		}
		switch spans[i].Data {
		case "Name":
			m.name = true
		case "Length":
			m.length = true
		}
	}
	for p := maxPage; p >= 0; p-- {
		if m, ok := pages[p]; ok && m.name && m.length {
			return p, true
		}
	}
	return 0, false
}
