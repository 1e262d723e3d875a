package openai

import (
	"strings"

	"github.com/poiesic/journalit/core"
)

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// cleanDate returns date when it is a valid YYYY-MM-DD value and "" for
// anything else, including the literal "null" some models emit.
func cleanDate(date *string) string {
	if date == nil {
		return ""
	}
	d := strings.TrimSpace(*date)
	if core.ValidateDate(d) != nil {
		return ""
	}
	return d
}

// cleanStressLevel folds level to a known StressLevel or "".
func cleanStressLevel(level string) core.StressLevel {
	l := core.StressLevel(core.NormalizeAttribute(level))
	if l == "" || core.ValidateStressLevel(l) != nil {
		return ""
	}
	return l
}

// cleanList trims values and drops blanks.
func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
