package models

// Detection methods reported in Evidence.
const (
	DetectionCOA      = "coa_parse"
	DetectionPage     = "page_scrape"
	DetectionDatabase = "database_cache"
	DetectionAPI      = "api_fallback"
)

// Evidence explains which source produced the answer.
type Evidence struct {
	DetectionMethod string  `json:"detection_method"`
	URL             string  `json:"url,omitempty"`
	COAURL          string  `json:"coa_url,omitempty"`
	COALab          string  `json:"coa_lab,omitempty"`
	COADate         string  `json:"coa_date,omitempty"`
	APISource       string  `json:"api_source,omitempty"`
	MatchScore      float64 `json:"match_score,omitempty"`
	CachedAt        string  `json:"cached_at,omitempty"`
}

type DataAvailability struct {
	HasTerpenes      bool `json:"has_terpenes"`
	HasCannabinoids  bool `json:"has_cannabinoids"`
	HasCOA           bool `json:"has_coa"`
	TerpeneCount     int  `json:"terpene_count"`
	CannabinoidCount int  `json:"cannabinoid_count"`
}

// AnalysisResult is the response for one analysis request.
type AnalysisResult struct {
	Sources             []Source          `json:"sources"`
	Terpenes            TerpeneMap        `json:"terpenes"`
	Totals              CannabinoidTotals `json:"totals"`
	Category            Category          `json:"category,omitempty"`
	TraditionalLabel    string            `json:"traditional_label,omitempty"`
	Summary             string            `json:"summary"`
	StrainGuess         string            `json:"strain_guess"`
	Evidence            Evidence          `json:"evidence"`
	DataAvailable       DataAvailability  `json:"data_available"`
	CannabinoidInsights []string          `json:"cannabinoid_insights"`
	Effects             *EffectsProfile   `json:"effects,omitempty"`
}
