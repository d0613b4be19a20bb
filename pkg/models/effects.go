package models

// Intensity is the coarse potency tier of an EffectsProfile.
type Intensity string

const (
	IntensityVeryHigh     Intensity = "Very High"
	IntensityHigh         Intensity = "High"
	IntensityModerateHigh Intensity = "Moderate-High"
	IntensityModerate     Intensity = "Moderate"
	IntensityLowModerate  Intensity = "Low-Moderate"
	IntensityUnknown      Intensity = "Unknown"
)

// EffectsProfile is the predicted experience for a terpene/cannabinoid
// profile. It is derived on every request and never stored.
type EffectsProfile struct {
	OverallCharacter    string    `json:"overall_character"`
	Onset               string    `json:"onset"`
	Peak                string    `json:"peak"`
	Duration            string    `json:"duration"`
	BestContexts        []string  `json:"best_contexts"`
	PotentialNegatives  []string  `json:"potential_negatives"`
	TerpeneInteractions []string  `json:"terpene_interactions"`
	ExperienceSummary   string    `json:"experience_summary"`
	IntensityEstimate   Intensity `json:"intensity_estimate"`
	DaytimeScore        float64   `json:"daytime_score"`
	BodyMindBalance     float64   `json:"body_mind_balance"`
}
