// Package analyzer runs the strain analysis pipeline: scrape the page,
// try its certificates, consult the profile cache, fall back to external
// strain APIs when the data is incomplete, then merge, classify and
// describe the result.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"terptracker/internal/apierr"
	"terptracker/internal/classifier"
	"terptracker/internal/effects"
	"terptracker/internal/extractions"
	"terptracker/internal/insights"
	"terptracker/internal/merge"
	"terptracker/internal/profiles"
	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

// ErrNoData means no source produced a terpene or cannabinoid value.
var ErrNoData = errors.New("could not extract terpene or cannabinoid data from any source")

// UnknownStrain is the provisional name when neither the page nor a
// certificate names the strain.
const UnknownStrain = "Unknown Strain"

// minTerpenesForComplete is the terpene count at which the external API
// chain is skipped, provided a major cannabinoid is also known.
const minTerpenesForComplete = 5

// pipelineTimeout bounds one shared URL analysis.
const pipelineTimeout = 2 * time.Minute

type PageScraper interface {
	Scrape(ctx context.Context, url string) (*models.ScrapedPage, error)
}

type COAParser interface {
	ParseCOA(ctx context.Context, url string) (*models.COAResult, error)
}

// StrainLookup is one external strain database in the fallback chain.
type StrainLookup interface {
	Name() string
	LookupStrain(ctx context.Context, name string) (*models.StrainAPIResult, error)
}

type ProfileStore interface {
	GetWithAliases(ctx context.Context, name string) (*models.StrainProfile, error)
	Save(ctx context.Context, in profiles.SaveParams) bool
}

type ExtractionRecorder interface {
	Record(ctx context.Context, rec extractions.Record) string
}

// Deps are the collaborators of a Service. Scraper and Profiles are
// required; the rest may be nil.
type Deps struct {
	Scraper     PageScraper
	COA         COAParser
	Lookups     []StrainLookup
	Profiles    ProfileStore
	Extractions ExtractionRecorder
	Metrics     *Metrics
	Log         *logger.Logger
}

type Service struct {
	scraper     PageScraper
	coa         COAParser
	lookups     []StrainLookup
	profiles    ProfileStore
	extractions ExtractionRecorder
	metrics     *Metrics
	log         *logger.Logger

	inflight singleflight.Group
}

func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		scraper:     d.Scraper,
		coa:         d.COA,
		lookups:     d.Lookups,
		profiles:    d.Profiles,
		extractions: d.Extractions,
		metrics:     d.Metrics,
		log:         log.With("service", "analyzer"),
	}
}

// AnalyzeURL runs the full pipeline for a product page. Concurrent calls
// for the same URL share one run.
func (s *Service) AnalyzeURL(ctx context.Context, pageURL string) (*models.AnalysisResult, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, apierr.BadRequest("invalid_url", errors.New("url is required"))
	}

	// The shared run outlives any single caller; each caller only stops
	// waiting when its own context ends.
	ch := s.inflight.DoChan("url:"+pageURL, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pipelineTimeout)
		defer cancel()

		start := time.Now()
		res, err := s.analyzeURL(runCtx, pageURL)
		s.metrics.recordAnalysis("url", outcome(err), time.Since(start).Seconds())
		return res, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.log.Debug("joined in-flight analysis", "url", pageURL)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.AnalysisResult), nil
	}
}

func (s *Service) analyzeURL(ctx context.Context, pageURL string) (*models.AnalysisResult, error) {
	var (
		page        models.SourcedResult
		coa         models.SourcedResult
		db          models.SourcedResult
		api         models.SourcedResult
		fingerprint string
		scrapeErr   error
	)
	page.Origin = models.SourcePage
	coa.Origin = models.SourceCOA
	db.Origin = models.SourceDatabase
	api.Origin = models.SourceAPI

	// 1. page
	strainName := UnknownStrain
	scraped, err := s.scraper.Scrape(ctx, pageURL)
	if err != nil {
		scrapeErr = err
		s.log.Warn("page scrape failed", "url", pageURL, "error", err)
		s.metrics.recordSourceError("page")
	}
	if scraped != nil {
		page.StrainName = scraped.StrainName
		page.Terpenes = scraped.Terpenes
		page.Totals = scraped.Totals
		fingerprint = scraped.Fingerprint
		if scraped.StrainName != "" {
			strainName = scraped.StrainName
		}
	}

	// 2. certificates, first success wins
	if scraped != nil && s.coa != nil {
		for _, link := range scraped.COALinks {
			parsed, err := s.coa.ParseCOA(ctx, link)
			if err != nil {
				s.log.Warn("coa parse failed", "coa_url", link, "error", err)
				s.metrics.recordSourceError("coa")
				continue
			}
			if parsed == nil || len(parsed.Terpenes) == 0 {
				continue
			}
			coa.StrainName = parsed.StrainName
			coa.Terpenes = parsed.Terpenes
			coa.Totals = parsed.Totals
			coa.LabName = parsed.LabName
			coa.TestDate = parsed.TestDate
			coa.BatchID = parsed.BatchID
			coa.DetectionURL = link
			if parsed.StrainName != "" {
				strainName = parsed.StrainName
			}
			s.log.Debug("coa parsed", "coa_url", link, "terpenes", len(parsed.Terpenes))
			break
		}
	}

	// 3. profile cache, always consulted
	if profile := s.lookupProfile(ctx, strainName); profile != nil {
		db.StrainName = profile.NormalizedName
		db.Terpenes = profile.Terpenes
		db.Totals = profile.Totals
		db.CachedAt = cachedAt(profile)
	}

	// 4. completeness gate over everything but the APIs
	prelimTerps, _ := merge.Terpenes(coa.Terpenes, page.Terpenes, db.Terpenes, nil)
	prelimTotals, _ := merge.Cannabinoids(coa.Totals, page.Totals, db.Totals, nil)

	// 5. external API chain
	if isComplete(prelimTerps, prelimTotals) {
		s.log.Debug("data complete, skipping strain APIs", "terpenes", len(prelimTerps))
		s.metrics.recordFallback("skipped")
	} else if hit := s.lookupAPIs(ctx, strainName); hit != nil {
		api.StrainName = hit.StrainName
		api.Terpenes = hit.Terpenes
		api.Totals = hit.Totals
		api.APISource = hit.Source
		api.MatchScore = hit.MatchScore
		if hit.StrainName != "" {
			strainName = hit.StrainName
		}
		s.metrics.recordFallback("hit")
	} else {
		s.metrics.recordFallback("miss")
	}

	// 6. final merge
	terps, terpSources := merge.Terpenes(coa.Terpenes, page.Terpenes, db.Terpenes, api.Terpenes)
	totals, totalSources := merge.Cannabinoids(coa.Totals, page.Totals, db.Totals, api.Totals)
	used := merge.Union(terpSources, totalSources)
	sources := used.Ordered()
	if len(sources) == 0 {
		sources = []models.Source{models.SourcePage}
	}

	// 7. nothing to report
	if len(terps) == 0 && !totals.HasAny() {
		s.record(ctx, extractions.Record{
			URL:         pageURL,
			Fingerprint: fingerprint,
			Status:      extractions.StatusFailed,
			Error:       noDataMessage(scrapeErr),
		})
		return nil, ErrNoData
	}

	// 8. classification
	var category models.Category
	if len(terps) > 0 {
		category = classifier.Classify(terps)
	}

	// 9. persist what we learned first-hand
	if s.profiles != nil && (used.Has(models.SourcePage) || used.Has(models.SourceCOA)) && len(terps) > 0 && category != "" && strainName != UnknownStrain {
		primary := models.SourcePage
		if used.Has(models.SourceCOA) {
			primary = models.SourceCOA
		}
		s.profiles.Save(ctx, profiles.SaveParams{
			StrainName: strainName,
			Terpenes:   terps,
			Totals:     totals,
			Category:   category,
			Source:     primary,
		})
	}

	evidence := buildEvidence(sources, pageURL, coa, db, api)
	res := s.describe(strainName, terps, totals, category, sources, evidence)
	s.metrics.recordSources(sources)

	s.record(ctx, extractions.Record{
		URL:         pageURL,
		Fingerprint: fingerprint,
		SourceUsed:  string(sources[0]),
		Status:      extractions.StatusCompleted,
		Evidence:    &res.Evidence,
	})
	return res, nil
}

// AnalyzeStrain answers from the profile cache only.
func (s *Service) AnalyzeStrain(ctx context.Context, name string) (*models.AnalysisResult, error) {
	start := time.Now()
	res, err := s.analyzeStrain(ctx, name)
	s.metrics.recordAnalysis("strain", outcome(err), time.Since(start).Seconds())
	return res, err
}

func (s *Service) analyzeStrain(ctx context.Context, name string) (*models.AnalysisResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNoData
	}

	profile, err := s.profiles.GetWithAliases(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("analyze strain %q: %w", name, err)
	}
	if profile == nil {
		return nil, ErrNoData
	}
	if len(profile.Terpenes) == 0 && !profile.Totals.HasAny() {
		return nil, ErrNoData
	}

	category := profile.Category
	if !category.Valid() {
		category = ""
		if len(profile.Terpenes) > 0 {
			category = classifier.Classify(profile.Terpenes)
		}
	}

	display := profile.Provenance.OriginalName
	if display == "" {
		display = name
	}

	sources := []models.Source{models.SourceDatabase}
	evidence := models.Evidence{DetectionMethod: models.DetectionDatabase}
	if ts := cachedAt(profile); ts != nil {
		evidence.CachedAt = ts.Format(time.RFC3339)
	}

	res := s.describe(display, profile.Terpenes, profile.Totals, category, sources, evidence)
	s.metrics.recordSources(sources)
	return res, nil
}

// describe assembles the response: label, summary, insights, effects and
// the availability counts.
func (s *Service) describe(
	name string,
	terps models.TerpeneMap,
	totals models.CannabinoidTotals,
	category models.Category,
	sources []models.Source,
	evidence models.Evidence,
) *models.AnalysisResult {
	if terps == nil {
		terps = models.TerpeneMap{}
	}
	if totals == nil {
		totals = models.CannabinoidTotals{}
	}
	hasCannabinoids := totals.HasAny()

	res := &models.AnalysisResult{
		Sources:             sources,
		Terpenes:            terps,
		Totals:              totals,
		Category:            category,
		StrainGuess:         name,
		Evidence:            evidence,
		CannabinoidInsights: []string{},
		DataAvailable: models.DataAvailability{
			HasTerpenes:      len(terps) > 0,
			HasCannabinoids:  hasCannabinoids,
			HasCOA:           containsSource(sources, models.SourceCOA),
			TerpeneCount:     len(terps),
			CannabinoidCount: totals.Count(),
		},
	}

	switch {
	case category != "":
		res.TraditionalLabel = classifier.TraditionalLabel(category)
		res.Summary = insights.GenerateSummary(name, category, terps)
	case hasCannabinoids:
		res.Summary = insights.CannabinoidOnlySummary(name)
	default:
		res.Summary = insights.LimitedDataSummary(name)
	}
	if hasCannabinoids {
		res.CannabinoidInsights = insights.GenerateCannabinoidInsights(totals)
	}
	res.Effects = effects.Generate(terps, totals, category)
	return res
}

func (s *Service) lookupProfile(ctx context.Context, name string) *models.StrainProfile {
	if s.profiles == nil || name == "" {
		return nil
	}
	profile, err := s.profiles.GetWithAliases(ctx, name)
	if err != nil {
		s.log.Warn("profile lookup failed", "strain", name, "error", err)
		s.metrics.recordSourceError("database")
		return nil
	}
	return profile
}

// lookupAPIs walks the fallback chain: each API with the name as given,
// then with the normalized title-case name. The first hit with any data
// wins.
func (s *Service) lookupAPIs(ctx context.Context, name string) *models.StrainAPIResult {
	candidates := []string{name}
	if normalized := utils.NormalizeStrainName(name, true); normalized != "" && normalized != name {
		candidates = append(candidates, normalized)
	}
	for _, l := range s.lookups {
		for _, candidate := range candidates {
			hit, err := l.LookupStrain(ctx, candidate)
			if err != nil {
				s.log.Warn("strain api failed", "api", l.Name(), "strain", candidate, "error", err)
				s.metrics.recordSourceError(l.Name())
				continue
			}
			if hit != nil && (len(hit.Terpenes) > 0 || hit.Totals.HasAny()) {
				s.log.Debug("strain api hit", "api", l.Name(), "strain", candidate)
				return hit
			}
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, rec extractions.Record) {
	if s.extractions == nil {
		return
	}
	s.extractions.Record(ctx, rec)
}

func isComplete(terps models.TerpeneMap, totals models.CannabinoidTotals) bool {
	return len(terps) >= minTerpenesForComplete && totals.HasMajor()
}

// buildEvidence names the highest-priority contributing source and attaches
// whatever provenance the lower steps collected.
func buildEvidence(sources []models.Source, pageURL string, coa, db, api models.SourcedResult) models.Evidence {
	ev := models.Evidence{URL: pageURL}
	switch {
	case containsSource(sources, models.SourceCOA):
		ev.DetectionMethod = models.DetectionCOA
	case containsSource(sources, models.SourcePage):
		ev.DetectionMethod = models.DetectionPage
	case containsSource(sources, models.SourceDatabase):
		ev.DetectionMethod = models.DetectionDatabase
	default:
		ev.DetectionMethod = models.DetectionAPI
	}
	if coa.DetectionURL != "" {
		ev.COAURL = coa.DetectionURL
		ev.COALab = coa.LabName
		ev.COADate = coa.TestDate
	}
	if api.APISource != "" {
		ev.APISource = api.APISource
		ev.MatchScore = api.MatchScore
	}
	if db.CachedAt != nil {
		ev.CachedAt = db.CachedAt.Format(time.RFC3339)
	}
	return ev
}

func cachedAt(p *models.StrainProfile) *time.Time {
	if p.Provenance.UpdatedAt != nil {
		return p.Provenance.UpdatedAt
	}
	if p.Provenance.CreatedAt != nil {
		return p.Provenance.CreatedAt
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		return &t
	}
	return nil
}

func containsSource(sources []models.Source, want models.Source) bool {
	for _, s := range sources {
		if s == want {
			return true
		}
	}
	return false
}

func noDataMessage(scrapeErr error) string {
	if scrapeErr != nil {
		return ErrNoData.Error() + ": " + scrapeErr.Error()
	}
	return ErrNoData.Error()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
