package models

import "time"

// Category is one of the six terpene-dominance classes.
type Category string

const (
	CategoryBlue   Category = "BLUE"
	CategoryYellow Category = "YELLOW"
	CategoryPurple Category = "PURPLE"
	CategoryGreen  Category = "GREEN"
	CategoryOrange Category = "ORANGE"
	CategoryRed    Category = "RED"
)

var Categories = []Category{
	CategoryBlue, CategoryYellow, CategoryPurple, CategoryGreen, CategoryOrange, CategoryRed,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// StrainProfile is the persisted, merged view of a strain.
type StrainProfile struct {
	ID             int64             `json:"id,omitempty"`
	NormalizedName string            `json:"strain_normalized"`
	Terpenes       TerpeneMap        `json:"terpenes"`
	Totals         CannabinoidTotals `json:"totals"`
	Category       Category          `json:"category"`
	Provenance     Provenance        `json:"provenance"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Provenance records where a stored profile came from.
type Provenance struct {
	Source       string     `json:"source"`
	OriginalName string     `json:"original_name,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	SampleCount  int        `json:"sample_count,omitempty"`
}

// StrainMatch is a search or autocomplete hit.
type StrainMatch struct {
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	MatchScore float64  `json:"match_score,omitempty"`
	MatchType  string   `json:"match_type,omitempty"`
}
