// Package insights turns merged lab data into short human-readable text.
package insights

import (
	"fmt"
	"strings"

	"terptracker/internal/classifier"
	"terptracker/pkg/models"
)

// Potency tiers on effective THC, 0-1 fraction scale.
const (
	potencyVeryHigh     = 0.25
	potencyHigh         = 0.20
	potencyModerateHigh = 0.15
	potencyModerate     = 0.10
)

// Minor cannabinoid flags, 0-1 fraction scale.
const (
	cbnFlag  = 0.005
	cbgFlag  = 0.01
	thcvFlag = 0.005
	cbdvFlag = 0.005
)

// GenerateSummary composes the one-sentence category summary for a strain.
func GenerateSummary(strainName string, category models.Category, terpenes models.TerpeneMap) string {
	var featuring string
	if ranked := terpenes.Ranked(); len(ranked) >= 2 {
		featuring = fmt.Sprintf(" featuring %s and %s", hyphenate(ranked[0].Key), hyphenate(ranked[1].Key))
	}

	return fmt.Sprintf(
		"%s's composition puts it in the %s category — expect %s%s. In traditional terms, this aligns with a %s experience.",
		strainName,
		category,
		classifier.Description(category),
		featuring,
		strings.ToLower(classifier.TraditionalLabel(category)),
	)
}

// CannabinoidOnlySummary is used when cannabinoids exist but terpenes do not.
func CannabinoidOnlySummary(strainName string) string {
	return strainName + " - Cannabinoid data available"
}

// LimitedDataSummary is used when neither a category nor cannabinoids exist.
func LimitedDataSummary(strainName string) string {
	return strainName + " - Limited data available"
}

// GenerateCannabinoidInsights returns, in order: the THC:CBD ratio or
// dominance line, the potency tier, then CBN, CBG, THCV and CBDV flags.
func GenerateCannabinoidInsights(totals models.CannabinoidTotals) []string {
	out := []string{}

	thc := totals.EffectiveTHC()
	cbd := totals.EffectiveCBD()

	switch {
	case thc > 0 && cbd > 0:
		out = append(out, ratioInsight(thc/cbd))
	case thc > 0:
		out = append(out, "THC-dominant, minimal CBD")
	case cbd > 0:
		out = append(out, "CBD-dominant, minimal THC")
	}

	switch {
	case thc > potencyVeryHigh:
		out = append(out, "Very high potency")
	case thc > potencyHigh:
		out = append(out, "High potency")
	case thc > potencyModerateHigh:
		out = append(out, "Moderate-high potency")
	case thc > potencyModerate:
		out = append(out, "Moderate potency")
	}

	if totals.Get(models.CBN) > cbnFlag {
		out = append(out, "Elevated CBN may promote sleepiness")
	}
	if totals.Get(models.CBG) > cbgFlag {
		out = append(out, "Notable CBG presence")
	}
	if totals.Get(models.THCV) > thcvFlag {
		out = append(out, "Contains THCV")
	}
	if totals.Get(models.CBDV) > cbdvFlag {
		out = append(out, "Contains CBDV")
	}

	return out
}

func ratioInsight(ratio float64) string {
	switch {
	case ratio > 20:
		return fmt.Sprintf("THC-dominant (%.0f:1 ratio)", ratio)
	case ratio > 5:
		return fmt.Sprintf("High THC (%.0f:1 ratio)", ratio)
	case ratio > 2:
		return fmt.Sprintf("THC-leaning (%.1f:1 ratio)", ratio)
	case ratio > 0.5:
		return fmt.Sprintf("Balanced THC:CBD (%.1f:1 ratio)", ratio)
	default:
		return fmt.Sprintf("CBD-rich (1:%.1f ratio)", 1/ratio)
	}
}

func hyphenate(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
