package models

import "time"

// Source tags where a piece of data came from.
type Source string

const (
	SourceCOA      Source = "coa"
	SourcePage     Source = "page"
	SourceDatabase Source = "database"
	SourceAPI      Source = "api"

	// SourceDataset tags profiles loaded from a bulk lab dataset. It only
	// appears in stored provenance, never in a merge.
	SourceDataset Source = "dataset_import"
)

// SourcePriority is both the merge priority and the display order.
var SourcePriority = []Source{SourceCOA, SourcePage, SourceDatabase, SourceAPI}

// SourcedResult is one source's opinion about a strain. It lives for a
// single analysis and is never persisted on its own.
type SourcedResult struct {
	Origin     Source            `json:"origin"`
	StrainName string            `json:"strain_name,omitempty"`
	Terpenes   TerpeneMap        `json:"terpenes"`
	Totals     CannabinoidTotals `json:"totals"`

	LabName      string     `json:"lab_name,omitempty"`
	TestDate     string     `json:"test_date,omitempty"`
	BatchID      string     `json:"batch_id,omitempty"`
	DetectionURL string     `json:"detection_url,omitempty"`
	APISource    string     `json:"api_source,omitempty"`
	MatchScore   float64    `json:"match_score,omitempty"`
	CachedAt     *time.Time `json:"cached_at,omitempty"`
}

// Empty reports whether the result carries no terpene and no cannabinoid data.
func (r *SourcedResult) Empty() bool {
	return r == nil || (len(r.Terpenes) == 0 && !r.Totals.HasAny() && !r.Totals.Has(TotalTerpenes))
}

// ScrapedPage is what the page scraper hands back for one URL.
type ScrapedPage struct {
	StrainName  string
	Terpenes    TerpeneMap
	Totals      CannabinoidTotals
	COALinks    []string
	Fingerprint string
}

// COAResult is a parsed certificate of analysis.
type COAResult struct {
	StrainName string
	Terpenes   TerpeneMap
	Totals     CannabinoidTotals
	LabName    string
	TestDate   string
	BatchID    string
}

// StrainAPIResult is a hit from an external strain database.
type StrainAPIResult struct {
	StrainName string
	Terpenes   TerpeneMap
	Totals     CannabinoidTotals
	Source     string
	MatchScore float64
}
