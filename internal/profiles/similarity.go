package profiles

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// similarity is 1 minus the Levenshtein distance over the longer length.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	denom := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if denom == 0 {
		return 1
	}
	return math.Max(0, 1-float64(levenshtein.ComputeDistance(a, b))/float64(denom))
}
