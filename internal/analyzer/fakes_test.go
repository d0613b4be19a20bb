package analyzer

import (
	"context"
	"sync"

	"terptracker/internal/extractions"
	"terptracker/internal/profiles"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

type fakeScraper struct {
	page  *models.ScrapedPage
	err   error
	calls int
}

func (f *fakeScraper) Scrape(_ context.Context, _ string) (*models.ScrapedPage, error) {
	f.calls++
	return f.page, f.err
}

type fakeCOA struct {
	results map[string]*models.COAResult
	errs    map[string]error
	calls   []string
}

func (f *fakeCOA) ParseCOA(_ context.Context, url string) (*models.COAResult, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.results[url], nil
}

type fakeLookup struct {
	name  string
	hits  map[string]*models.StrainAPIResult
	err   error
	calls []string
}

func (f *fakeLookup) Name() string { return f.name }

func (f *fakeLookup) LookupStrain(_ context.Context, name string) (*models.StrainAPIResult, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[name], nil
}

type fakeProfiles struct {
	mu     sync.Mutex
	byName map[string]*models.StrainProfile
	err    error
	saved  []profiles.SaveParams
}

func (f *fakeProfiles) GetWithAliases(_ context.Context, name string) (*models.StrainProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byName[utils.NormalizeStrainName(name, false)], nil
}

func (f *fakeProfiles) Save(_ context.Context, in profiles.SaveParams) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, in)
	return true
}

type fakeRecorder struct {
	recs []extractions.Record
}

func (f *fakeRecorder) Record(_ context.Context, rec extractions.Record) string {
	f.recs = append(f.recs, rec)
	return "id"
}

// blockingScraper holds every call until release is closed or the call's
// context ends.
type blockingScraper struct {
	page    *models.ScrapedPage
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingScraper(page *models.ScrapedPage) *blockingScraper {
	return &blockingScraper{page: page, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (f *blockingScraper) Scrape(ctx context.Context, _ string) (*models.ScrapedPage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	select {
	case f.entered <- struct{}{}:
	default:
	}
	select {
	case <-f.release:
		return f.page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *blockingScraper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
