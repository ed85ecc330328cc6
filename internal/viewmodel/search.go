package viewmodel

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FilterPrograms returns the programs whose name contains query, ignoring case and accents.
// An empty or blank query returns every program. Order is preserved.
func FilterPrograms(programs []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return programs
	}

	// Transformers keep state and cannot be shared between goroutines.
	f := newFolder()
	needle := f.fold(query)

	matches := make([]string, 0, len(programs))
	for _, p := range programs {
		if strings.Contains(f.fold(p), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}

type folder struct {
	strip transform.Transformer
	caser cases.Caser
}

func newFolder() folder {
	return folder{
		strip: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		caser: cases.Fold(),
	}
}

// fold removes combining marks and case from s: "Código" becomes "codigo".
func (f folder) fold(s string) string {
	stripped, _, err := transform.String(f.strip, s)
	if err != nil {
		stripped = s
	}
	return f.caser.String(stripped)
}
