package analyzer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terptracker/internal/apierr"
	"terptracker/internal/extractions"
	"terptracker/internal/profiles"
	"terptracker/pkg/models"
)

const pageURL = "https://shop.example/products/blue-dream"

type harness struct {
	scraper    *fakeScraper
	coa        *fakeCOA
	cannlytics *fakeLookup
	kushy      *fakeLookup
	profiles   *fakeProfiles
	recorder   *fakeRecorder
	svc        *Service
}

func newHarness(page *models.ScrapedPage) *harness {
	h := &harness{
		scraper:    &fakeScraper{page: page},
		coa:        &fakeCOA{results: map[string]*models.COAResult{}, errs: map[string]error{}},
		cannlytics: &fakeLookup{name: "cannlytics", hits: map[string]*models.StrainAPIResult{}},
		kushy:      &fakeLookup{name: "kushy", hits: map[string]*models.StrainAPIResult{}},
		profiles:   &fakeProfiles{byName: map[string]*models.StrainProfile{}},
		recorder:   &fakeRecorder{},
	}
	h.svc = New(Deps{
		Scraper:     h.scraper,
		COA:         h.coa,
		Lookups:     []StrainLookup{h.cannlytics, h.kushy},
		Profiles:    h.profiles,
		Extractions: h.recorder,
	})
	return h
}

func TestAnalyzeURL_COAOverridesPage(t *testing.T) {
	h := newHarness(&models.ScrapedPage{
		StrainName:  "Blue Dream Flower",
		Terpenes:    models.TerpeneMap{models.Myrcene: 0.3, models.Limonene: 0.2},
		Totals:      models.CannabinoidTotals{},
		COALinks:    []string{"https://lab.example/broken.pdf", "https://lab.example/good.pdf", "https://lab.example/late.pdf"},
		Fingerprint: "abc123",
	})
	h.coa.errs["https://lab.example/broken.pdf"] = errors.New("timeout")
	h.coa.results["https://lab.example/good.pdf"] = &models.COAResult{
		StrainName: "Blue Dream",
		Terpenes:   models.TerpeneMap{models.Myrcene: 0.5},
		Totals:     models.CannabinoidTotals{},
		LabName:    "SC Labs",
		TestDate:   "2024-03-01",
	}

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://lab.example/broken.pdf", "https://lab.example/good.pdf"}, h.coa.calls,
		"stops at the first certificate with terpenes")
	assert.Equal(t, models.TerpeneMap{models.Myrcene: 0.5, models.Limonene: 0.2}, res.Terpenes)
	assert.Equal(t, []models.Source{models.SourceCOA, models.SourcePage}, res.Sources)
	assert.Equal(t, "Blue Dream", res.StrainGuess)
	assert.Equal(t, models.CategoryBlue, res.Category)
	assert.Equal(t, "Classic Indica", res.TraditionalLabel)
	assert.Contains(t, res.Summary, "Blue Dream's composition puts it in the BLUE category")
	assert.Empty(t, res.CannabinoidInsights)
	assert.NotNil(t, res.CannabinoidInsights)
	require.NotNil(t, res.Effects)

	assert.Equal(t, models.Evidence{
		DetectionMethod: models.DetectionCOA,
		URL:             pageURL,
		COAURL:          "https://lab.example/good.pdf",
		COALab:          "SC Labs",
		COADate:         "2024-03-01",
	}, res.Evidence)
	assert.Equal(t, models.DataAvailability{
		HasTerpenes:  true,
		HasCOA:       true,
		TerpeneCount: 2,
	}, res.DataAvailable)

	// two terpenes is incomplete, so each API is asked once; the
	// normalized name equals the original here
	assert.Equal(t, []string{"Blue Dream"}, h.cannlytics.calls)
	assert.Equal(t, []string{"Blue Dream"}, h.kushy.calls)

	require.Len(t, h.profiles.saved, 1)
	assert.Equal(t, profiles.SaveParams{
		StrainName: "Blue Dream",
		Terpenes:   res.Terpenes,
		Totals:     res.Totals,
		Category:   models.CategoryBlue,
		Source:     models.SourceCOA,
	}, h.profiles.saved[0])

	require.Len(t, h.recorder.recs, 1)
	rec := h.recorder.recs[0]
	assert.Equal(t, extractions.StatusCompleted, rec.Status)
	assert.Equal(t, "coa", rec.SourceUsed)
	assert.Equal(t, "abc123", rec.Fingerprint)
	assert.Equal(t, models.DetectionCOA, rec.Evidence.DetectionMethod)
}

func TestAnalyzeURL_CompleteDataSkipsAPIs(t *testing.T) {
	h := newHarness(&models.ScrapedPage{
		StrainName: "Granddaddy Purple",
		Terpenes: models.TerpeneMap{
			models.Myrcene:       0.4,
			models.Limonene:      0.2,
			models.Caryophyllene: 0.15,
			models.AlphaPinene:   0.1,
			models.Linalool:      0.05,
		},
		Totals: models.CannabinoidTotals{models.THC: 0.22},
	})

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)

	assert.Empty(t, h.cannlytics.calls)
	assert.Empty(t, h.kushy.calls)
	assert.Equal(t, []models.Source{models.SourcePage}, res.Sources)
	assert.Equal(t, models.DetectionPage, res.Evidence.DetectionMethod)
	assert.Equal(t, models.CategoryBlue, res.Category)
	assert.Equal(t, []string{"THC-dominant, minimal CBD", "High potency"}, res.CannabinoidInsights)
	assert.Equal(t, 1, res.DataAvailable.CannabinoidCount)

	require.Len(t, h.profiles.saved, 1)
	assert.Equal(t, models.SourcePage, h.profiles.saved[0].Source)
}

func TestAnalyzeURL_APIChainUsesNormalizedName(t *testing.T) {
	h := newHarness(&models.ScrapedPage{StrainName: "OG Kush #18"})
	h.kushy.hits["Og Kush 18"] = &models.StrainAPIResult{
		StrainName: "OG Kush 18",
		Totals:     models.CannabinoidTotals{models.THC: 0.2},
		Source:     "kushy",
		MatchScore: 0.9,
	}

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)

	assert.Equal(t, []string{"OG Kush #18", "Og Kush 18"}, h.cannlytics.calls)
	assert.Equal(t, []string{"OG Kush #18", "Og Kush 18"}, h.kushy.calls)

	assert.Equal(t, []models.Source{models.SourceAPI}, res.Sources)
	assert.Equal(t, "OG Kush 18", res.StrainGuess, "an API hit supplies the display name")
	assert.Equal(t, models.DetectionAPI, res.Evidence.DetectionMethod)
	assert.Equal(t, "kushy", res.Evidence.APISource)
	assert.Equal(t, 0.9, res.Evidence.MatchScore)

	assert.Empty(t, res.Category)
	assert.Empty(t, res.TraditionalLabel)
	assert.Equal(t, "OG Kush 18 - Cannabinoid data available", res.Summary)
	assert.NotEmpty(t, res.CannabinoidInsights)
	assert.Nil(t, res.Effects)
	assert.Empty(t, h.profiles.saved, "api-only data is not persisted")
}

func TestAnalyzeURL_APIErrorsFallThrough(t *testing.T) {
	h := newHarness(&models.ScrapedPage{StrainName: "Gelato"})
	h.cannlytics.err = errors.New("status 503")
	h.kushy.hits["Gelato"] = &models.StrainAPIResult{
		StrainName: "Gelato",
		Terpenes:   models.TerpeneMap{models.Limonene: 0.4},
		Source:     "kushy",
		MatchScore: 0.9,
	}

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gelato"}, h.kushy.calls)
	assert.Equal(t, models.CategoryYellow, res.Category)
}

func TestAnalyzeURL_DatabaseSupplementsPage(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(&models.ScrapedPage{
		StrainName: "Gelato",
		Terpenes:   models.TerpeneMap{models.Limonene: 0.4},
	})
	h.profiles.byName["gelato"] = &models.StrainProfile{
		NormalizedName: "gelato",
		Terpenes: models.TerpeneMap{
			models.Limonene:      0.3,
			models.Caryophyllene: 0.3,
			models.Myrcene:       0.1,
		},
		Totals:     models.CannabinoidTotals{models.THC: 0.24},
		Category:   models.CategoryPurple,
		Provenance: models.Provenance{Source: "page", UpdatedAt: &updated},
	}

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)

	assert.Equal(t, []models.Source{models.SourcePage, models.SourceDatabase}, res.Sources)
	assert.InDelta(t, 0.4, res.Terpenes[models.Limonene], 1e-12, "page beats database")
	assert.InDelta(t, 0.3, res.Terpenes[models.Caryophyllene], 1e-12)
	assert.InDelta(t, 0.24, res.Totals.Get(models.THC), 1e-12)
	assert.Equal(t, models.DetectionPage, res.Evidence.DetectionMethod)
	assert.Equal(t, "2024-05-01T12:00:00Z", res.Evidence.CachedAt)
	assert.Len(t, h.cannlytics.calls, 1, "three terpenes is still incomplete")
}

func TestAnalyzeURL_NoData(t *testing.T) {
	h := newHarness(&models.ScrapedPage{StrainName: "Ghost"})

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoData)

	assert.Empty(t, h.profiles.saved)
	require.Len(t, h.recorder.recs, 1)
	assert.Equal(t, extractions.StatusFailed, h.recorder.recs[0].Status)
}

func TestAnalyzeURL_ScrapeFailureIsNoData(t *testing.T) {
	h := newHarness(nil)
	h.scraper.err = errors.New("page: status 403: denied")

	_, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	assert.ErrorIs(t, err, ErrNoData)

	// "strain" is a stripped product word, so the normalized retry is "Unknown".
	assert.Equal(t, []string{UnknownStrain, "Unknown"}, h.cannlytics.calls)
	require.Len(t, h.recorder.recs, 1)
	assert.Contains(t, h.recorder.recs[0].Error, "status 403")
}

func TestAnalyzeURL_SharedRunSurvivesFirstCallerCancel(t *testing.T) {
	scraper := newBlockingScraper(&models.ScrapedPage{
		StrainName: "Blue Dream",
		Terpenes:   models.TerpeneMap{models.Myrcene: 0.6, models.Limonene: 0.2},
		Totals:     models.CannabinoidTotals{models.THC: 0.2},
	})
	prof := &fakeProfiles{byName: map[string]*models.StrainProfile{}}
	svc := New(Deps{Scraper: scraper, Profiles: prof})

	type result struct {
		res *models.AnalysisResult
		err error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	go func() {
		res, err := svc.AnalyzeURL(ctxA, pageURL)
		first <- result{res, err}
	}()
	select {
	case <-scraper.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("scraper never called")
	}

	go func() {
		res, err := svc.AnalyzeURL(context.Background(), pageURL)
		second <- result{res, err}
	}()
	// let the second caller join the in-flight run
	time.Sleep(50 * time.Millisecond)

	cancelA()
	a := <-first
	assert.Nil(t, a.res)
	assert.ErrorIs(t, a.err, context.Canceled)

	close(scraper.release)
	var b result
	select {
	case b = <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never returned")
	}
	require.NoError(t, b.err)
	assert.Equal(t, "Blue Dream", b.res.StrainGuess)
	assert.Equal(t, models.CategoryBlue, b.res.Category)
	assert.Equal(t, 1, scraper.callCount())

	prof.mu.Lock()
	defer prof.mu.Unlock()
	require.Len(t, prof.saved, 1, "the save runs on the shared context")
}

func TestAnalyzeURL_UnknownStrainIsNotSaved(t *testing.T) {
	h := newHarness(&models.ScrapedPage{
		Terpenes: models.TerpeneMap{models.Terpinolene: 0.5, models.Myrcene: 0.3, models.Ocimene: 0.2},
	})

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, UnknownStrain, res.StrainGuess)
	assert.Equal(t, models.CategoryOrange, res.Category)
	assert.Equal(t, "Sativa", res.TraditionalLabel)
	assert.Empty(t, h.profiles.saved)
}

func TestAnalyzeURL_DatabaseErrorIsIgnored(t *testing.T) {
	h := newHarness(&models.ScrapedPage{
		StrainName: "Jack Herer",
		Terpenes:   models.TerpeneMap{models.Terpinolene: 0.6},
	})
	h.profiles.err = errors.New("database is locked")

	res, err := h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, []models.Source{models.SourcePage}, res.Sources)
}

func TestAnalyzeURL_EmptyURL(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.AnalyzeURL(context.Background(), "   ")
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Zero(t, h.scraper.calls)
}

func TestAnalyzeStrain(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h := newHarness(nil)
	h.profiles.byName["blue dream"] = &models.StrainProfile{
		NormalizedName: "blue dream",
		Terpenes:       models.TerpeneMap{models.Myrcene: 0.6, models.Limonene: 0.2, models.Caryophyllene: 0.2},
		Totals:         models.CannabinoidTotals{models.THC: 0.18},
		Category:       models.CategoryBlue,
		Provenance:     models.Provenance{Source: "coa", OriginalName: "Blue Dream", CreatedAt: &created},
	}
	h.profiles.byName["mystery"] = &models.StrainProfile{
		NormalizedName: "mystery",
		Terpenes:       models.TerpeneMap{models.Limonene: 0.5, models.Myrcene: 0.1},
	}

	res, err := h.svc.AnalyzeStrain(context.Background(), "blue dream")
	require.NoError(t, err)
	assert.Equal(t, []models.Source{models.SourceDatabase}, res.Sources)
	assert.Equal(t, "Blue Dream", res.StrainGuess)
	assert.Equal(t, models.CategoryBlue, res.Category)
	assert.Equal(t, "Classic Indica", res.TraditionalLabel)
	assert.Equal(t, models.DetectionDatabase, res.Evidence.DetectionMethod)
	assert.Equal(t, "2024-01-02T03:04:05Z", res.Evidence.CachedAt)
	assert.Equal(t, []string{"THC-dominant, minimal CBD", "Moderate-high potency"}, res.CannabinoidInsights)
	require.NotNil(t, res.Effects)
	assert.Zero(t, h.scraper.calls)

	res, err = h.svc.AnalyzeStrain(context.Background(), "Mystery")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryYellow, res.Category, "missing stored category is classified")
	assert.Equal(t, "Mystery", res.StrainGuess)

	_, err = h.svc.AnalyzeStrain(context.Background(), "Nothing Here")
	assert.ErrorIs(t, err, ErrNoData)

	h.profiles.err = errors.New("disk I/O error")
	_, err = h.svc.AnalyzeStrain(context.Background(), "blue dream")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	h := newHarness(&models.ScrapedPage{
		StrainName: "Jack Herer",
		Terpenes:   models.TerpeneMap{models.Terpinolene: 0.6},
	})
	h.svc.metrics = m

	_, err = h.svc.AnalyzeURL(context.Background(), pageURL)
	require.NoError(t, err)
	_, err = h.svc.AnalyzeStrain(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNoData)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysesTotal.WithLabelValues("url", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysesTotal.WithLabelValues("strain", "no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceHitsTotal.WithLabelValues("page")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiFallbackTotal.WithLabelValues("miss")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "double registration")
}
