package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// Info is what a report file name tells about the race.
type Info struct {
	Report      string
	Date        string // YYYY-MM-DD
	RaceID      string
	Description string
}

var nameRe = regexp.MustCompile(`^([a-z]+)_(\d{4}-\d{2}-\d{2})_(\d+)_(.*?)(\.[A-Za-z]+)?$`)

// FileName composes <report>_<date>_<raceid>_<description><ext>.
// Path separators in the description are replaced.
func FileName(report, date, raceID, description, ext string) string {
	desc := strings.NewReplacer("/", "-", "\\", "-").Replace(strings.TrimSpace(description))
	return fmt.Sprintf("%s_%s_%s_%s%s", report, date, raceID, desc, ext)
}

// ParseName splits a report file name into its parts.
func ParseName(file string) (Info, bool) {
	m := nameRe.FindStringSubmatch(file)
	if m == nil {
		return Info{}, false
	}
	return Info{Report: m[1], Date: m[2], RaceID: m[3], Description: m[4]}, true
}

// Year returns the season of the race.
func (i Info) Year() string {
	return i.Date[:4]
}
