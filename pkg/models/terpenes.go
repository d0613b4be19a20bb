package models

import (
	"sort"
	"strings"
)

// Well-known terpene keys. Anything else a source reports is kept in the
// same map but treated as an extra (see TerpeneMap.Extras).
const (
	Myrcene       = "myrcene"
	Limonene      = "limonene"
	Caryophyllene = "caryophyllene"
	AlphaPinene   = "alpha_pinene"
	BetaPinene    = "beta_pinene"
	Terpinolene   = "terpinolene"
	Humulene      = "humulene"
	Linalool      = "linalool"
	Ocimene       = "ocimene"
)

// KnownTerpenes lists the closed set of terpenes the classifier and the
// effects engine reason about, in display order.
var KnownTerpenes = []string{
	Myrcene, Limonene, Caryophyllene, AlphaPinene, BetaPinene,
	Terpinolene, Humulene, Linalool, Ocimene,
}

// terpeneAliases maps source field names (lab CSV headers, API keys, COA
// analyte names) onto internal keys.
var terpeneAliases = map[string]string{
	"beta_myrcene":        Myrcene,
	"β_myrcene":           Myrcene,
	"myrcene":             Myrcene,
	"d_limonene":          Limonene,
	"delta_limonene":      Limonene,
	"limonene":            Limonene,
	"beta_caryophyllene":  Caryophyllene,
	"β_caryophyllene":     Caryophyllene,
	"caryophyllene":       Caryophyllene,
	"alpha_pinene":        AlphaPinene,
	"α_pinene":            AlphaPinene,
	"beta_pinene":         BetaPinene,
	"β_pinene":            BetaPinene,
	"terpinolene":         Terpinolene,
	"humulene":            Humulene,
	"alpha_humulene":      Humulene,
	"α_humulene":          Humulene,
	"linalool":            Linalool,
	"ocimene":             Ocimene,
	"beta_ocimene":        Ocimene,
	"β_ocimene":           Ocimene,
	"alpha_bisabolol":     "bisabolol",
	"bisabolol":           "bisabolol",
	"camphene":            "camphene",
	"geraniol":            "geraniol",
	"nerolidol":           "nerolidol",
	"alpha_terpinene":     "alpha_terpinene",
	"gamma_terpinene":     "gamma_terpinene",
	"caryophyllene_oxide": "caryophyllene_oxide",
}

// CanonicalTerpeneKey lowercases a raw field name, folds '-' and spaces to
// '_' and resolves known aliases. Unknown names come back folded but
// otherwise untouched.
func CanonicalTerpeneKey(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	if std, ok := terpeneAliases[k]; ok {
		return std
	}
	return k
}

// IsKnownTerpene reports whether key is one of KnownTerpenes.
func IsKnownTerpene(key string) bool {
	for _, k := range KnownTerpenes {
		if k == key {
			return true
		}
	}
	return false
}

// TerpeneMap maps a canonical terpene key to a fraction in (0, 1].
// Non-positive values are never stored.
type TerpeneMap map[string]float64

// Set stores v under the canonical form of key. It reports false and
// stores nothing when v is not positive.
func (m TerpeneMap) Set(key string, v float64) bool {
	if v <= 0 {
		return false
	}
	m[CanonicalTerpeneKey(key)] = v
	return true
}

// Get returns the value for key or 0 when absent.
func (m TerpeneMap) Get(key string) float64 {
	return m[key]
}

func (m TerpeneMap) Clone() TerpeneMap {
	out := make(TerpeneMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Total sums every stored value.
func (m TerpeneMap) Total() float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

// Known returns only the well-known terpenes.
func (m TerpeneMap) Known() TerpeneMap {
	out := make(TerpeneMap)
	for k, v := range m {
		if IsKnownTerpene(k) {
			out[k] = v
		}
	}
	return out
}

// Extras returns the terpenes outside the well-known set.
func (m TerpeneMap) Extras() TerpeneMap {
	out := make(TerpeneMap)
	for k, v := range m {
		if !IsKnownTerpene(k) {
			out[k] = v
		}
	}
	return out
}

// TerpeneShare is one entry of a ranked terpene list.
type TerpeneShare struct {
	Key   string
	Value float64
}

// Ranked returns the entries sorted by value descending. Ties are broken
// by key so the order is stable across runs.
func (m TerpeneMap) Ranked() []TerpeneShare {
	out := make([]TerpeneShare, 0, len(m))
	for k, v := range m {
		out = append(out, TerpeneShare{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	return out
}
