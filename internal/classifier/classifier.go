// Package classifier assigns a terpene profile to one of the six
// dominance categories and maps categories to traditional labels.
package classifier

import "terptracker/pkg/models"

// Decision thresholds on normalized proportions.
const (
	orangeMin           = 0.35
	greenMin            = 0.35
	blueMin             = 0.35
	purpleCaryMin       = 0.30
	purplePineneMax     = 0.15
	yellowMin           = 0.30
	redEachMin          = 0.20
	redPineneMax        = 0.15
	redHumuleneMax      = 0.15
	dominanceMargin     = 0.10
	balancedTolerance   = 0.15
	unknownCategoryDesc = "a unique terpene profile"
)

var descriptions = map[models.Category]string{
	models.CategoryBlue:   "myrcene-forward with an earthy, relaxing profile",
	models.CategoryYellow: "limonene-forward with bright, citrus-leaning aroma and an upbeat profile",
	models.CategoryPurple: "caryophyllene-forward with spicy, peppery notes and a balanced profile",
	models.CategoryGreen:  "pinene-forward with sharp, pine-like aroma and an alert profile",
	models.CategoryOrange: "terpinolene-forward with complex, floral, and citrus notes",
	models.CategoryRed:    "balanced myrcene-limonene-caryophyllene with a versatile, hybrid profile",
}

// Description returns the one-clause description used in summaries.
func Description(c models.Category) string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return unknownCategoryDesc
}

// NormalizeProfile canonicalizes keys, drops non-positive values and
// scales the remainder so it sums to 1. An empty result means there is
// nothing to classify.
func NormalizeProfile(terpenes models.TerpeneMap) models.TerpeneMap {
	out := make(models.TerpeneMap, len(terpenes))
	for k, v := range terpenes {
		if v > 0 {
			// two raw spellings of one terpene add up
			out[models.CanonicalTerpeneKey(k)] += v
		}
	}
	total := out.Total()
	if total <= 0 {
		return models.TerpeneMap{}
	}
	for k, v := range out {
		out[k] = v / total
	}
	return out
}

// Classify returns the category for a terpene map given on any scale.
// A map with no positive values classifies as BLUE.
func Classify(terpenes models.TerpeneMap) models.Category {
	t := NormalizeProfile(terpenes)
	if len(t) == 0 {
		return models.CategoryBlue
	}

	myrcene := t.Get(models.Myrcene)
	limonene := t.Get(models.Limonene)
	caryophyllene := t.Get(models.Caryophyllene)
	terpinolene := t.Get(models.Terpinolene)
	humulene := t.Get(models.Humulene)
	pinene := combinedPinene(t)

	top := t.Ranked()[0]

	// The second clause compares the top value with itself when the
	// terpene is on top, so it can never add a match.
	if terpinolene >= orangeMin || (top.Key == models.Terpinolene && top.Value-terpinolene >= dominanceMargin) {
		return models.CategoryOrange
	}

	if pinene >= greenMin || (isPinene(top.Key) && top.Value >= dominanceMargin) {
		return models.CategoryGreen
	}

	if myrcene >= blueMin || (top.Key == models.Myrcene && top.Value-myrcene >= dominanceMargin) {
		return models.CategoryBlue
	}

	// RED before PURPLE: the balanced triple is the narrower rule.
	if myrcene >= redEachMin && limonene >= redEachMin && caryophyllene >= redEachMin &&
		isWithinRange([]float64{myrcene, limonene, caryophyllene}, balancedTolerance) &&
		pinene <= redPineneMax && humulene <= redHumuleneMax {
		return models.CategoryRed
	}

	if caryophyllene >= purpleCaryMin && pinene <= purplePineneMax {
		return models.CategoryPurple
	}

	if limonene >= yellowMin {
		return models.CategoryYellow
	}

	return byTopTerpene(top.Key)
}

func byTopTerpene(key string) models.Category {
	switch key {
	case models.Myrcene:
		return models.CategoryBlue
	case models.Limonene:
		return models.CategoryYellow
	case models.Caryophyllene:
		return models.CategoryPurple
	case models.AlphaPinene, models.BetaPinene:
		return models.CategoryGreen
	case models.Terpinolene:
		return models.CategoryOrange
	default:
		return models.CategoryBlue
	}
}

// TraditionalLabel maps a category to the Sativa/Indica/Hybrid vocabulary.
func TraditionalLabel(c models.Category) string {
	switch c {
	case models.CategoryOrange:
		return "Sativa"
	case models.CategoryYellow, models.CategoryPurple:
		return "Modern Indica"
	case models.CategoryGreen, models.CategoryBlue:
		return "Classic Indica"
	default:
		return "Hybrid"
	}
}

func combinedPinene(t models.TerpeneMap) float64 {
	return t.Get(models.AlphaPinene) + t.Get(models.BetaPinene)
}

func isPinene(key string) bool {
	return key == models.AlphaPinene || key == models.BetaPinene
}

// isWithinRange reports whether every value lies within tolerance of the
// mean, relative to the mean.
func isWithinRange(values []float64, tolerance float64) bool {
	if len(values) == 0 {
		return false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	if avg == 0 {
		return false
	}
	for _, v := range values {
		d := v - avg
		if d < 0 {
			d = -d
		}
		if d/avg > tolerance {
			return false
		}
	}
	return true
}
