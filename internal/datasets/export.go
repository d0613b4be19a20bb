package datasets

import (
	"encoding/csv"
	"io"
	"strconv"

	"terptracker/pkg/models"
)

// exportTerpenes and exportCannabinoids fix the column order of WriteCSV.
// The headers are the ones ParseTerpeneParserCSV reads, so an export can
// be imported again.
var exportTerpenes = []struct {
	Header string
	Key    string
}{
	{"beta-Myrcene", models.Myrcene},
	{"delta-Limonene", models.Limonene},
	{"beta-Caryophyllene", models.Caryophyllene},
	{"alpha-Pinene", models.AlphaPinene},
	{"beta-Pinene", models.BetaPinene},
	{"Terpinolene", models.Terpinolene},
	{"alpha-Humulene", models.Humulene},
	{"Linalool", models.Linalool},
	{"Ocimene", models.Ocimene},
}

var exportCannabinoids = []struct {
	Header string
	Key    models.Cannabinoid
}{
	{"delta-9 THC", models.THC},
	{"delta-9 THC-A", models.THCA},
	{"CBD", models.CBD},
	{"CBD-A", models.CBDA},
	{"CBN", models.CBN},
	{"delta-9 CBG", models.CBG},
}

// WriteCSV writes profiles as fractions, one row per profile, followed
// by the category. Missing values are empty cells.
func WriteCSV(w io.Writer, profiles []models.StrainProfile) error {
	cw := csv.NewWriter(w)

	header := []string{"Sample Name"}
	for _, c := range exportTerpenes {
		header = append(header, c.Header)
	}
	for _, c := range exportCannabinoids {
		header = append(header, c.Header)
	}
	header = append(header, "Category")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range profiles {
		name := p.Provenance.OriginalName
		if name == "" {
			name = p.NormalizedName
		}
		row := []string{name}
		for _, c := range exportTerpenes {
			row = append(row, formatFraction(p.Terpenes.Get(c.Key)))
		}
		for _, c := range exportCannabinoids {
			row = append(row, formatFraction(p.Totals.Get(c.Key)))
		}
		row = append(row, string(p.Category))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFraction(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
