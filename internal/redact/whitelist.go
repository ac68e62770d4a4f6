package redact

import (
	"strings"

	"golang.org/x/text/cases"
)

// Whitelist is a set of case-insensitive substring keywords. A keyword
// that is a common substring ("TFL" in "NETFLIX") matches more than intended.
type Whitelist struct {
	keywords []string
}

// NewWhitelist trims the keywords and drops empty ones, which would
// otherwise match every fragment.
func NewWhitelist(keywords []string) Whitelist {
	fold := cases.Fold()
	w := Whitelist{}
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		w.keywords = append(w.keywords, fold.String(k))
	}
	return w
}

// ParseKeywords splits comma-separated keyword lists, as typed into the
// upload form or passed on the command line.
func ParseKeywords(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// Len returns the number of usable keywords
func (w Whitelist) Len() int { return len(w.keywords) }

// Matches reports whether text contains any keyword
func (w Whitelist) Matches(text string) bool {
	if len(w.keywords) == 0 {
		return false
	}
	folded := cases.Fold().String(text)
	for _, k := range w.keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}
