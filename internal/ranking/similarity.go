package ranking

import (
	"strings"
	"unicode"
)

// TrigramSimilarity computes pg_trgm-compatible trigram similarity between
// two strings: the size of the trigram intersection divided by the size of
// the union, in [0, 1]. Each word is padded with two leading and one
// trailing space before trigram extraction, matching PostgreSQL.
func TrigramSimilarity(a, b string) float64 {
	ta := trigramSet(a)
	tb := trigramSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		if len(ta) == 0 && len(tb) == 0 {
			return 0
		}
		return 0
	}

	common := 0
	for t := range ta {
		if tb[t] {
			common++
		}
	}
	union := len(ta) + len(tb) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

func trigramSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range splitAlnum(s) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			set[string(runes[i:i+3])] = true
		}
	}
	return set
}

func splitAlnum(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
