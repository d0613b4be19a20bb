package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

// Cannlytics talks to the Cannlytics COA extraction and strain data APIs.
// Both calls are disabled when no API key is configured.
type Cannlytics struct {
	BaseURL   string
	APIKey    string
	COAClient *http.Client
	Client    *http.Client
	Log       *logger.Logger
}

func NewCannlytics(baseURL, apiKey string, log *logger.Logger) *Cannlytics {
	if log == nil {
		log = logger.Nop()
	}
	return &Cannlytics{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		COAClient: newHTTPClient(30 * time.Second),
		Client:    newHTTPClient(15 * time.Second),
		Log:       log.With("source", "cannlytics"),
	}
}

func (c *Cannlytics) Name() string { return "cannlytics" }

func (c *Cannlytics) Enabled() bool { return c.APIKey != "" }

type coaResponse struct {
	Results []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"results"`
	ProductName string `json:"product_name"`
	StrainName  string `json:"strain_name"`
	Lab         struct {
		Name string `json:"name"`
	} `json:"lab"`
	DateTested string `json:"date_tested"`
	BatchID    string `json:"batch_id"`
}

// ParseCOA asks Cannlytics to extract a certificate. A certificate with no
// terpene results is reported as nil.
func (c *Cannlytics) ParseCOA(ctx context.Context, coaURL string) (*models.COAResult, error) {
	if !c.Enabled() {
		return nil, nil
	}

	payload, _ := json.Marshal(map[string]string{"url": coaURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/coa/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cannlytics: build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.COAClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannlytics: coa request: %w", err)
	}
	body, err := readBody("cannlytics", resp)
	if err != nil {
		return nil, err
	}

	var raw coaResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("cannlytics: decode coa: %w", err)
	}

	out := &models.COAResult{
		Terpenes: models.TerpeneMap{},
		Totals:   models.CannabinoidTotals{},
		LabName:  raw.Lab.Name,
		TestDate: raw.DateTested,
		BatchID:  raw.BatchID,
	}
	out.StrainName = raw.ProductName
	if out.StrainName == "" {
		out.StrainName = raw.StrainName
	}

	for _, r := range raw.Results {
		v, ok := utils.ParseFraction(r.Value)
		if !ok {
			continue
		}
		analyte := strings.ToLower(strings.TrimSpace(r.Name))
		if key, ok := coaTerpeneKey(analyte); ok {
			out.Terpenes.Set(key, v)
			continue
		}
		if strings.Contains(analyte, "total") && strings.Contains(analyte, "terpene") {
			out.Totals.Set(models.TotalTerpenes, v)
			continue
		}
		if cb, ok := models.CanonicalCannabinoidKey(analyte); ok {
			out.Totals.Set(cb, v)
		}
	}

	if len(out.Terpenes) == 0 {
		c.Log.Debug("coa had no terpene results", "url", coaURL)
		return nil, nil
	}
	return out, nil
}

// coaTerpeneKey maps a lab analyte label such as "beta-Myrcene" or
// "α-Pinene" onto a terpene key.
func coaTerpeneKey(analyte string) (string, bool) {
	switch {
	case strings.Contains(analyte, "oxide"):
		return "", false
	case strings.Contains(analyte, "myrcene"):
		return models.Myrcene, true
	case strings.Contains(analyte, "limonene"):
		return models.Limonene, true
	case strings.Contains(analyte, "caryophyllene"):
		return models.Caryophyllene, true
	case strings.Contains(analyte, "pinene"):
		switch {
		case strings.Contains(analyte, "alpha") || strings.Contains(analyte, "α"):
			return models.AlphaPinene, true
		case strings.Contains(analyte, "beta") || strings.Contains(analyte, "β"):
			return models.BetaPinene, true
		}
		return "", false
	case strings.Contains(analyte, "terpinolene"):
		return models.Terpinolene, true
	case strings.Contains(analyte, "humulene"):
		return models.Humulene, true
	case strings.Contains(analyte, "linalool"):
		return models.Linalool, true
	case strings.Contains(analyte, "ocimene"):
		return models.Ocimene, true
	}
	return "", false
}

type strainsResponse struct {
	Strains []struct {
		Name     string         `json:"name"`
		Terpenes map[string]any `json:"terpenes"`
	} `json:"strains"`
}

// LookupStrain returns the average terpene profile Cannlytics has for name.
func (c *Cannlytics) LookupStrain(ctx context.Context, name string) (*models.StrainAPIResult, error) {
	if !c.Enabled() || strings.TrimSpace(name) == "" {
		return nil, nil
	}

	u := c.BaseURL + "/strains?" + url.Values{"name": {name}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("cannlytics: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannlytics: strain request: %w", err)
	}
	body, err := readBody("cannlytics", resp)
	if err != nil {
		return nil, err
	}

	var raw strainsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("cannlytics: decode strains: %w", err)
	}
	if len(raw.Strains) == 0 {
		return nil, nil
	}

	strain := raw.Strains[0]
	terps := models.TerpeneMap{}
	for k, v := range strain.Terpenes {
		if f, ok := utils.ParseFraction(v); ok {
			terps.Set(k, f)
		}
	}
	if len(terps) == 0 {
		return nil, nil
	}

	display := strain.Name
	if display == "" {
		display = name
	}
	return &models.StrainAPIResult{
		StrainName: display,
		Terpenes:   terps,
		Totals:     models.CannabinoidTotals{},
		Source:     c.Name(),
		MatchScore: 1.0,
	}, nil
}

func (c *Cannlytics) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
}
