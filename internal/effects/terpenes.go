package effects

import "terptracker/pkg/models"

// terpeneEffect is the static effect profile of one terpene. BodyWeight
// runs from 0 (cerebral) to 1 (body). The modifiers are scaled by the
// terpene's proportion and by 10 before they shift the timeline.
type terpeneEffect struct {
	BodyWeight       float64
	PrimaryEffects   []string
	BestFor          []string
	AvoidFor         []string
	Negatives        []string
	OnsetModifier    float64
	DurationModifier float64
}

var terpeneEffects = map[string]terpeneEffect{
	models.Myrcene: {
		BodyWeight:       0.85,
		PrimaryEffects:   []string{"Relaxing", "Sedating", "Muscle relaxant", "Pain relief"},
		BestFor:          []string{"Nighttime", "Sleep", "Pain relief", "Relaxation"},
		AvoidFor:         []string{"Daytime productivity", "Social events"},
		Negatives:        []string{"Drowsiness", "Couch-lock at high levels"},
		DurationModifier: 0.1,
	},
	models.Limonene: {
		BodyWeight:       0.2,
		PrimaryEffects:   []string{"Uplifting", "Mood enhancement", "Stress relief", "Anti-anxiety"},
		BestFor:          []string{"Daytime", "Social events", "Creative work", "Mood boost"},
		AvoidFor:         []string{"Bedtime (may be too stimulating)"},
		Negatives:        []string{"Heartburn in sensitive individuals"},
		OnsetModifier:    -0.05,
		DurationModifier: -0.05,
	},
	models.Caryophyllene: {
		BodyWeight:       0.6,
		PrimaryEffects:   []string{"Anti-inflammatory", "Pain relief", "Stress reduction", "Calming"},
		BestFor:          []string{"Pain management", "Stress relief", "Evening wind-down"},
		Negatives:        []string{"Dry mouth"},
		DurationModifier: 0.05,
	},
	models.AlphaPinene: {
		BodyWeight:       0.15,
		PrimaryEffects:   []string{"Alertness", "Focus", "Memory retention", "Bronchodilator"},
		BestFor:          []string{"Daytime", "Studying", "Hiking", "Creative focus"},
		AvoidFor:         []string{"Sleep"},
		Negatives:        []string{"May increase anxiety in sensitive users"},
		OnsetModifier:    -0.05,
		DurationModifier: -0.1,
	},
	models.BetaPinene: {
		BodyWeight:       0.15,
		PrimaryEffects:   []string{"Alertness", "Focus", "Memory retention"},
		BestFor:          []string{"Daytime", "Studying", "Focus work"},
		AvoidFor:         []string{"Sleep"},
		OnsetModifier:    -0.05,
		DurationModifier: -0.1,
	},
	models.Terpinolene: {
		BodyWeight:       0.3,
		PrimaryEffects:   []string{"Uplifting", "Creative", "Energizing", "Antioxidant"},
		BestFor:          []string{"Daytime", "Creative work", "Social events", "Exercise"},
		AvoidFor:         []string{"Anxiety-prone individuals", "Sleep"},
		Negatives:        []string{"Overstimulation if sensitive"},
		OnsetModifier:    -0.1,
		DurationModifier: -0.15,
	},
	models.Humulene: {
		BodyWeight:     0.5,
		PrimaryEffects: []string{"Anti-inflammatory", "Appetite suppressant", "Pain relief"},
		BestFor:        []string{"Weight management", "Pain relief", "Evening"},
	},
	models.Linalool: {
		BodyWeight:       0.75,
		PrimaryEffects:   []string{"Calming", "Sedative", "Anti-anxiety", "Anti-convulsant"},
		BestFor:          []string{"Nighttime", "Anxiety relief", "Sleep", "Relaxation"},
		AvoidFor:         []string{"Needing to stay alert"},
		Negatives:        []string{"Drowsiness"},
		OnsetModifier:    0.05,
		DurationModifier: 0.1,
	},
	models.Ocimene: {
		BodyWeight:       0.25,
		PrimaryEffects:   []string{"Uplifting", "Anti-inflammatory", "Antifungal"},
		BestFor:          []string{"Daytime", "Light activity"},
		DurationModifier: -0.05,
	},
}

var (
	daytimeTerpenes   = []string{models.Terpinolene, models.AlphaPinene, models.BetaPinene, models.Limonene, models.Ocimene}
	nighttimeTerpenes = []string{models.Myrcene, models.Linalool}
)

// interaction fires its narrative when cond holds on normalized proportions.
type interaction struct {
	cond func(t models.TerpeneMap) bool
	text string
}

var interactions = []interaction{
	{
		cond: func(t models.TerpeneMap) bool { return t.Get(models.Limonene) > 0.15 && t.Get(models.Myrcene) > 0.20 },
		text: "Limonene tempers myrcene's heavy sedation, creating a more balanced relaxation with uplifted mood",
	},
	{
		cond: func(t models.TerpeneMap) bool { return t.Get(models.Myrcene) > 0.25 && t.Get(models.Caryophyllene) > 0.15 },
		text: "Myrcene and caryophyllene synergize for deep body relaxation and potent pain relief",
	},
	{
		cond: func(t models.TerpeneMap) bool {
			return t.Get(models.AlphaPinene)+t.Get(models.BetaPinene) > 0.15 && t.Get(models.Myrcene) > 0.20
		},
		text: "Pinene may counteract some of myrcene's memory-clouding effects while preserving relaxation",
	},
	{
		cond: func(t models.TerpeneMap) bool { return t.Get(models.Linalool) > 0.05 && t.Get(models.Myrcene) > 0.20 },
		text: "Linalool and myrcene together amplify sedative effects — strong candidate for sleep aid",
	},
	{
		cond: func(t models.TerpeneMap) bool { return t.Get(models.Limonene) > 0.15 && t.Get(models.Caryophyllene) > 0.15 },
		text: "Limonene and caryophyllene together create a spicy-citrus stress relief combo",
	},
	{
		cond: func(t models.TerpeneMap) bool { return t.Get(models.Terpinolene) > 0.15 && t.Get(models.Ocimene) > 0.05 },
		text: "Terpinolene and ocimene create a distinctly uplifting, energetic experience characteristic of classic sativas",
	},
	{
		cond: func(t models.TerpeneMap) bool { return t.Get(models.Caryophyllene) > 0.15 && t.Get(models.Humulene) > 0.05 },
		text: "Caryophyllene and humulene (both found in hops) work together for enhanced anti-inflammatory effects",
	},
}
