package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Search filters techniques by category and free-text query. An empty query
// matches everything; category "" or "all" disables the category filter.
// Matching is a case-insensitive substring test over the name, description,
// short description and principles.
func (c *Catalog) Search(query, category string) []Technique {
	query = strings.TrimSpace(query)
	filterCategory := category != "" && category != CategoryAll

	if query == "" && !filterCategory {
		return c.Techniques()
	}

	fold := cases.Fold()
	needle := normalize(fold, query)

	out := []Technique{}
	for _, t := range c.techniques {
		if filterCategory && t.CategoryID != category {
			continue
		}
		if needle == "" || matches(fold, t, needle) {
			out = append(out, t)
		}
	}
	return out
}

func matches(fold cases.Caser, t Technique, needle string) bool {
	if strings.Contains(normalize(fold, t.Name), needle) ||
		strings.Contains(normalize(fold, t.Description), needle) ||
		strings.Contains(normalize(fold, t.ShortDescription), needle) {
		return true
	}
	for _, p := range t.Principles {
		if strings.Contains(normalize(fold, p), needle) {
			return true
		}
	}
	return false
}

// normalize maps compatibility forms (full-width latin, half-width kana) to
// their canonical form before case folding.
func normalize(fold cases.Caser, s string) string {
	return fold.String(norm.NFKC.String(s))
}
