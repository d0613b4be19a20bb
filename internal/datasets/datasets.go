// Package datasets loads public lab-result tables into the profile store.
package datasets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"terptracker/internal/classifier"
	"terptracker/internal/profiles"
	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

// TerpeneParserURL is the published results table of the Terpene Profile
// Parser project.
const TerpeneParserURL = "https://raw.githubusercontent.com/MaxValue/Terpene-Profile-Parser-for-Cannabis-Strains/master/results.csv"

const nameColumn = "sample name"

// Header keys are matched lowercased.
var terpeneColumns = map[string]string{
	"beta-myrcene":       models.Myrcene,
	"delta-limonene":     models.Limonene,
	"beta-caryophyllene": models.Caryophyllene,
	"alpha-pinene":       models.AlphaPinene,
	"beta-pinene":        models.BetaPinene,
	"terpinolene":        models.Terpinolene,
	"alpha-humulene":     models.Humulene,
	"linalool":           models.Linalool,
	"ocimene":            models.Ocimene,
}

var cannabinoidColumns = map[string]models.Cannabinoid{
	"delta-9 thc":   models.THC,
	"delta-9 thc-a": models.THCA,
	"thc-a":         models.THCA,
	"cbd":           models.CBD,
	"cbd-a":         models.CBDA,
	"cbn":           models.CBN,
	"delta-9 cbg":   models.CBG,
}

// Strain is one usable dataset row.
type Strain struct {
	Name     string
	Terpenes models.TerpeneMap
	Totals   models.CannabinoidTotals
}

// ParseTerpeneParserCSV reads the Terpene Profile Parser results table.
// Rows without a sample name or without any terpene value are dropped.
// Values above 1 are percentages.
func ParseTerpeneParserCSV(in io.Reader) ([]Strain, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if _, ok := header[nameColumn]; !ok {
		return nil, errors.New("missing Sample Name column")
	}

	var out []Strain
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		name := valueAt(header, row, nameColumn)
		if name == "" {
			continue
		}

		terps := models.TerpeneMap{}
		for col, key := range terpeneColumns {
			if v, ok := utils.ParseFraction(valueAt(header, row, col)); ok {
				terps.Set(key, v)
			}
		}
		if len(terps) == 0 {
			continue
		}

		totals := models.CannabinoidTotals{}
		for col, c := range cannabinoidColumns {
			if v, ok := utils.ParseFraction(valueAt(header, row, col)); ok {
				totals.Set(c, v)
			}
		}

		out = append(out, Strain{Name: name, Terpenes: terps, Totals: totals})
	}
	return out, nil
}

// Store is the slice of the profile repo an import needs.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, in profiles.SaveParams) bool
}

// Result counts what an import did.
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// Import classifies and saves every strain whose normalized name is not
// stored yet. Existing profiles are never overwritten.
func Import(ctx context.Context, store Store, strains []Strain, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Nop()
	}

	var res Result
	for _, s := range strains {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		exists, err := store.Exists(ctx, s.Name)
		if err != nil {
			return res, fmt.Errorf("check %q: %w", s.Name, err)
		}
		if exists {
			res.Skipped++
			continue
		}

		ok := store.Save(ctx, profiles.SaveParams{
			StrainName: s.Name,
			Terpenes:   s.Terpenes,
			Totals:     s.Totals,
			Category:   classifier.Classify(s.Terpenes),
			Source:     models.SourceDataset,
		})
		if !ok {
			res.Failed++
			continue
		}
		res.Imported++
	}

	log.Info("dataset import finished", "imported", res.Imported, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(strings.TrimPrefix(name, "\ufeff")))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
