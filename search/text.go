package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stop words to filter out when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "near": true, "best": true,
}

// tokenize splits text into lowercased words with punctuation trimmed and
// stop words removed.
func tokenize(text string) []string {
	lower := cases.Lower(language.Und)
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := lower.String(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			out = append(out, cleaned)
		}
	}
	return out
}

// containsAll reports whether every query word appears in the document.
func containsAll(document string, queryWords []string) bool {
	if len(queryWords) == 0 {
		return false
	}
	docWords := make(map[string]bool)
	for _, w := range tokenize(document) {
		docWords[w] = true
	}
	for _, q := range queryWords {
		if !docWords[q] {
			return false
		}
	}
	return true
}

// namesCategory reports whether a query word names one of categories.
// A trailing plural "s" is ignored, so "hotels" matches "hotel".
func namesCategory(categories, queryWords []string) bool {
	for _, q := range queryWords {
		singular := strings.TrimSuffix(q, "s")
		for _, c := range categories {
			if c == q || c == singular {
				return true
			}
		}
	}
	return false
}
