// Package effects predicts the subjective experience of a profile from
// its terpene proportions and cannabinoid totals. Everything here is pure.
package effects

import (
	"fmt"
	"math"
	"strings"

	"terptracker/pkg/models"
)

// Cannabinoid cutoffs on the 0-1 fraction scale.
const (
	thcLongDuration  = 0.25
	thcMidDuration   = 0.20
	cbdBuffer        = 0.05
	thcAnxietyWarn   = 0.25
	thcLowDoseWarn   = 0.30
	cbdBufferFactor  = 0.8
	contextMinShare  = 0.05
	negativeMinShare = 0.10
	timelineMinShare = 0.05
	maxContexts      = 6
)

var intensityTiers = []struct {
	min   float64
	level models.Intensity
}{
	{0.28, models.IntensityVeryHigh},
	{0.22, models.IntensityHigh},
	{0.15, models.IntensityModerateHigh},
	{0.10, models.IntensityModerate},
	{0, models.IntensityLowModerate},
}

// Generate builds an EffectsProfile. It returns nil when terpenes is
// empty or sums to zero. category is accepted for callers that have one
// but does not change the output.
func Generate(terpenes models.TerpeneMap, totals models.CannabinoidTotals, category models.Category) *models.EffectsProfile {
	if len(terpenes) == 0 {
		return nil
	}
	total := terpenes.Total()
	if total <= 0 {
		return nil
	}
	norm := make(models.TerpeneMap, len(terpenes))
	for k, v := range terpenes {
		norm[k] = v / total
	}
	if totals == nil {
		totals = models.CannabinoidTotals{}
	}

	balance := bodyMindBalance(norm)
	daytime := daytimeScore(norm, balance)
	onset, peak, duration := timeline(norm, totals)

	return &models.EffectsProfile{
		OverallCharacter:    describeCharacter(balance, daytime),
		Onset:               onset,
		Peak:                peak,
		Duration:            duration,
		BestContexts:        bestContexts(norm),
		PotentialNegatives:  negatives(norm, totals),
		TerpeneInteractions: findInteractions(norm),
		ExperienceSummary:   experienceSummary(norm, totals, balance),
		IntensityEstimate:   intensity(totals),
		DaytimeScore:        round2(daytime),
		BodyMindBalance:     round2(balance),
	}
}

// bodyMindBalance is 0 for pure body and 1 for pure mind.
func bodyMindBalance(t models.TerpeneMap) float64 {
	var weight, value float64
	for name, frac := range t {
		eff, ok := terpeneEffects[name]
		if !ok || frac <= 0 {
			continue
		}
		value += (1 - eff.BodyWeight) * frac
		weight += frac
	}
	if weight == 0 {
		return 0.5
	}
	return value / weight
}

func daytimeScore(t models.TerpeneMap, balance float64) float64 {
	score := balance*0.6 + sumOf(t, daytimeTerpenes)*0.8 - sumOf(t, nighttimeTerpenes)*0.4
	return math.Max(0, math.Min(1, score))
}

func timeline(t models.TerpeneMap, totals models.CannabinoidTotals) (onset, peak, duration string) {
	const (
		baseOnset    = 10.0
		basePeak     = 30.0
		baseDuration = 120.0
	)

	var onsetMod, durationMod float64
	for name, frac := range t {
		eff, ok := terpeneEffects[name]
		if !ok || frac <= timelineMinShare {
			continue
		}
		onsetMod += eff.OnsetModifier * frac * 10
		durationMod += eff.DurationModifier * frac * 10
	}

	thc := totals.EffectiveTHC()
	switch {
	case thc > thcLongDuration:
		durationMod += 30
	case thc > thcMidDuration:
		durationMod += 15
	}
	if totals.EffectiveCBD() > cbdBuffer {
		onsetMod += 5
	}

	onset = minuteRange(baseOnset+onsetMod, 10, 5, 10)
	peak = minuteRange(basePeak+onsetMod, 20, 15, 30)
	duration = minuteRange(baseDuration+durationMod, 60, 60, 90)
	return onset, peak, duration
}

// minuteRange renders "lo-hi min" with truncated minutes and floors.
func minuteRange(start, width float64, loFloor, hiFloor int) string {
	lo := max(loFloor, int(start))
	hi := max(hiFloor, int(start+width))
	return fmt.Sprintf("%d-%d min", lo, hi)
}

func intensity(totals models.CannabinoidTotals) models.Intensity {
	thc := totals.EffectiveTHC()
	if totals.EffectiveCBD() > cbdBuffer && thc > 0 {
		thc *= cbdBufferFactor
	}
	for _, tier := range intensityTiers {
		if thc > tier.min {
			return tier.level
		}
	}
	return models.IntensityUnknown
}

// bestContexts walks terpenes from largest share down, so the first time
// a context is seen is also its heaviest weight.
func bestContexts(t models.TerpeneMap) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, share := range t.Ranked() {
		eff, ok := terpeneEffects[share.Key]
		if !ok || share.Value <= contextMinShare {
			continue
		}
		for _, ctx := range eff.BestFor {
			if seen[ctx] {
				continue
			}
			seen[ctx] = true
			out = append(out, ctx)
		}
	}
	if len(out) > maxContexts {
		out = out[:maxContexts]
	}
	return out
}

func negatives(t models.TerpeneMap, totals models.CannabinoidTotals) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, share := range t.Ranked() {
		eff, ok := terpeneEffects[share.Key]
		if !ok || share.Value <= negativeMinShare {
			continue
		}
		for _, n := range eff.Negatives {
			add(n)
		}
	}

	thc := totals.EffectiveTHC()
	if thc > thcAnxietyWarn {
		add("High THC may cause anxiety or paranoia in sensitive users")
	}
	if thc > thcLowDoseWarn {
		add("Very high THC — start with a low dose")
	}
	return out
}

func findInteractions(t models.TerpeneMap) []string {
	out := []string{}
	for _, rule := range interactions {
		if rule.cond(t) {
			out = append(out, rule.text)
		}
	}
	return out
}

func describeCharacter(balance, daytime float64) string {
	var character string
	switch {
	case balance < 0.3:
		character = "deeply body-focused"
	case balance < 0.45:
		character = "body-leaning"
	case balance < 0.55:
		character = "balanced body and mind"
	case balance < 0.7:
		character = "mind-leaning"
	default:
		character = "cerebral and heady"
	}

	var timing string
	switch {
	case daytime > 0.7:
		timing = "best suited for daytime use"
	case daytime > 0.4:
		timing = "versatile for any time of day"
	default:
		timing = "best suited for evening or nighttime"
	}

	return fmt.Sprintf("A %s experience, %s", character, timing)
}

func experienceSummary(t models.TerpeneMap, totals models.CannabinoidTotals, balance float64) string {
	ranked := t.Ranked()
	lead := "Dominated by unknown"
	if len(ranked) > 0 {
		lead = "Dominated by " + spaced(ranked[0].Key)
	}
	if len(ranked) >= 2 {
		lead += " with supporting " + spaced(ranked[1].Key)
	}
	parts := []string{lead}

	switch {
	case balance < 0.35:
		parts = append(parts, "expect a heavy, body-centered sensation that builds into deep physical relaxation")
	case balance < 0.5:
		parts = append(parts, "expect a warm body buzz with gentle mental calm")
	case balance > 0.65:
		parts = append(parts, "expect an uplifting, cerebral experience with creative energy")
	default:
		parts = append(parts, "expect a well-rounded experience balancing mind and body")
	}

	thc := totals.EffectiveTHC()
	switch {
	case totals.EffectiveCBD() > cbdBuffer && thc > 0:
		parts = append(parts, "CBD presence may buffer intensity and reduce anxiety")
	case thc > thcAnxietyWarn:
		parts = append(parts, "high THC suggests a potent experience — pace yourself")
	}

	return strings.Join(parts, ". ") + "."
}

func sumOf(t models.TerpeneMap, keys []string) float64 {
	var s float64
	for _, k := range keys {
		s += t.Get(k)
	}
	return s
}

func spaced(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
