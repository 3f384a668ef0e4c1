// Package league decides which matches a run cares about. Matching is a
// plain, case-sensitive substring test on the provider's league title.
package league

import (
	"strings"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// Filter is an ordered whitelist of league/tournament substrings.
type Filter struct {
	keywords []string
}

// NewFilter creates a Filter from the given keywords. Order matters only for
// which keyword Match reports. Empty keywords are ignored.
func NewFilter(keywords []string) *Filter {
	kept := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k != "" {
			kept = append(kept, k)
		}
	}
	return &Filter{keywords: kept}
}

// Match returns the first whitelist keyword contained in title.
func (f *Filter) Match(title string) (string, bool) {
	for _, k := range f.keywords {
		if strings.Contains(title, k) {
			return k, true
		}
	}
	return "", false
}

// Apply returns the matches whose league title passes the whitelist,
// preserving provider order.
func (f *Filter) Apply(matches []domain.Match) []domain.Match {
	out := make([]domain.Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := f.Match(m.League); ok {
			out = append(out, m)
		}
	}
	return out
}

// PriorityFirst is a stable partition: matches whose league contains one of
// the priority keywords come first, everything else follows, each group in
// its original order. With no priority keywords the input is returned as is.
func PriorityFirst(matches []domain.Match, priority []string) []domain.Match {
	if len(priority) == 0 {
		return matches
	}
	pf := NewFilter(priority)
	head := make([]domain.Match, 0, len(matches))
	var tail []domain.Match
	for _, m := range matches {
		if _, ok := pf.Match(m.League); ok {
			head = append(head, m)
		} else {
			tail = append(tail, m)
		}
	}
	return append(head, tail...)
}

// Cap truncates matches to at most n entries.
func Cap(matches []domain.Match, n int) []domain.Match {
	if n >= 0 && len(matches) > n {
		return matches[:n]
	}
	return matches
}
