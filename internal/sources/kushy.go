package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

const kushyRowsKey = "rows"

// Kushy looks strains up in the public Kushy strains table. The table has
// no name filter, so the whole row list is fetched once and memoized.
// Kushy only reports terpenes qualitatively; just cannabinoids are used.
type Kushy struct {
	BaseURL string
	Client  *http.Client
	Log     *logger.Logger

	memo *gocache.Cache
}

func NewKushy(baseURL string, ttl time.Duration, log *logger.Logger) *Kushy {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Kushy{
		BaseURL: baseURL,
		Client:  newHTTPClient(15 * time.Second),
		Log:     log.With("source", "kushy"),
		memo:    gocache.New(ttl, 2*ttl),
	}
}

func (k *Kushy) Name() string { return "kushy" }

type kushyRow map[string]any

// LookupStrain returns the first row whose name contains name,
// case-insensitively, or nil when nothing matches or the row has no
// cannabinoid values.
func (k *Kushy) LookupStrain(ctx context.Context, name string) (*models.StrainAPIResult, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	rows, err := k.rows(ctx)
	if err != nil {
		return nil, err
	}

	var match kushyRow
	for _, row := range rows {
		rowName, _ := row["name"].(string)
		if rowName != "" && strings.Contains(strings.ToLower(rowName), needle) {
			match = row
			break
		}
	}
	if match == nil {
		k.Log.Debug("no kushy strain", "strain", name)
		return nil, nil
	}

	totals := models.CannabinoidTotals{}
	for _, c := range []models.Cannabinoid{models.THC, models.CBD, models.CBG, models.CBN} {
		if v, ok := utils.ParseFraction(match[string(c)]); ok {
			totals.Set(c, v)
		}
	}
	if !totals.HasAny() {
		return nil, nil
	}

	display, _ := match["name"].(string)
	return &models.StrainAPIResult{
		StrainName: display,
		Terpenes:   models.TerpeneMap{},
		Totals:     totals,
		Source:     k.Name(),
		MatchScore: 0.9,
	}, nil
}

func (k *Kushy) rows(ctx context.Context) ([]kushyRow, error) {
	if cached, ok := k.memo.Get(kushyRowsKey); ok {
		return cached.([]kushyRow), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kushy: build request: %w", err)
	}
	resp, err := k.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kushy: request: %w", err)
	}
	body, err := readBody("kushy", resp)
	if err != nil {
		return nil, err
	}

	rows, err := decodeKushyRows(body)
	if err != nil {
		return nil, err
	}
	k.memo.Set(kushyRowsKey, rows, gocache.DefaultExpiration)
	return rows, nil
}

// decodeKushyRows accepts a bare array or an object wrapping it in "data".
func decodeKushyRows(body []byte) ([]kushyRow, error) {
	var rows []kushyRow
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var wrapped struct {
		Data []kushyRow `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("kushy: decode rows: %w", err)
	}
	return wrapped.Data, nil
}
