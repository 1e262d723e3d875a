package search

import (
	"strings"

	"github.com/poiesic/journalit/core"
)

// Stop words dropped when turning a query into keyword tags
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "i": true, "me": true, "my": true, "when": true,
	"what": true, "did": true, "about": true, "felt": true, "feel": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// keywordFilter builds a tags-only filter from the words of query.
func keywordFilter(query string) core.AttributeFilter {
	return core.AttributeFilter{Tags: tokenizeAndFilter(query)}.Normalized()
}
