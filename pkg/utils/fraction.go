package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// noDataSentinels are lab-report placeholders meaning "nothing measured".
var noDataSentinels = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"null": {},
	"nd":   {},
	"n/a":  {},
	"<loq": {},
}

// ParseFraction turns a raw lab value into a 0-1 fraction. Values above 1
// are read as percentages and divided by 100. Sentinels, unparsable input
// and non-positive numbers yield ok == false; it never panics.
func ParseFraction(raw any) (float64, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
		return 0, false
	case string:
		s = v
	case float64:
		return toFraction(v)
	case float32:
		return toFraction(float64(v))
	case int:
		return toFraction(float64(v))
	case int64:
		return toFraction(float64(v))
	default:
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(s)
	if _, ok := noDataSentinels[strings.ToLower(s)]; ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return toFraction(f)
}

func toFraction(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	if f > 1 {
		return f / 100, true
	}
	return f, true
}
