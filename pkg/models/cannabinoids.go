package models

import "strings"

// Cannabinoid is a canonical cannabinoid key. total_terpenes rides along
// in the same record because every source reports it next to THC/CBD.
type Cannabinoid string

const (
	THC           Cannabinoid = "thc"
	THCA          Cannabinoid = "thca"
	THCV          Cannabinoid = "thcv"
	CBD           Cannabinoid = "cbd"
	CBDA          Cannabinoid = "cbda"
	CBDV          Cannabinoid = "cbdv"
	CBN           Cannabinoid = "cbn"
	CBG           Cannabinoid = "cbg"
	CBGM          Cannabinoid = "cbgm"
	CBGV          Cannabinoid = "cbgv"
	CBC           Cannabinoid = "cbc"
	CBCV          Cannabinoid = "cbcv"
	CBV           Cannabinoid = "cbv"
	CBE           Cannabinoid = "cbe"
	CBT           Cannabinoid = "cbt"
	CBL           Cannabinoid = "cbl"
	TotalTerpenes Cannabinoid = "total_terpenes"
)

// AllCannabinoids is the fixed key set, in merge order.
var AllCannabinoids = []Cannabinoid{
	TotalTerpenes, THC, THCA, THCV, CBD, CBDA, CBDV,
	CBN, CBG, CBGM, CBGV, CBC, CBCV, CBV, CBE, CBT, CBL,
}

// DecarbFactor converts an acidic cannabinoid (THCA, CBDA) to the mass of
// its neutral form after heating.
const DecarbFactor = 0.877

var cannabinoidAliases = map[string]Cannabinoid{
	"delta_9_thc": THC,
	"d9_thc":      THC,
	"total_thc":   THC,
	"total_cbd":   CBD,
	"cbga":        CBG,
}

// CanonicalCannabinoidKey resolves a raw field name. ok is false for names
// outside the fixed key set.
func CanonicalCannabinoidKey(raw string) (Cannabinoid, bool) {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	if c, ok := cannabinoidAliases[k]; ok {
		return c, true
	}
	for _, c := range AllCannabinoids {
		if string(c) == k {
			return c, true
		}
	}
	return "", false
}

// CannabinoidTotals maps a cannabinoid to a fraction in (0, 1]. Absent
// keys mean "no data"; non-positive values are never stored.
type CannabinoidTotals map[Cannabinoid]float64

// Set stores v when it is positive and c belongs to the fixed key set.
func (t CannabinoidTotals) Set(c Cannabinoid, v float64) bool {
	if v <= 0 {
		return false
	}
	if _, ok := CanonicalCannabinoidKey(string(c)); !ok {
		return false
	}
	t[c] = v
	return true
}

func (t CannabinoidTotals) Get(c Cannabinoid) float64 { return t[c] }

func (t CannabinoidTotals) Has(c Cannabinoid) bool { return t[c] > 0 }

func (t CannabinoidTotals) Clone() CannabinoidTotals {
	out := make(CannabinoidTotals, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// EffectiveTHC is THC plus decarboxylated THCA.
func (t CannabinoidTotals) EffectiveTHC() float64 {
	return t.Get(THC) + t.Get(THCA)*DecarbFactor
}

// EffectiveCBD is CBD plus decarboxylated CBDA.
func (t CannabinoidTotals) EffectiveCBD() float64 {
	return t.Get(CBD) + t.Get(CBDA)*DecarbFactor
}

// HasMajor reports whether any of THC, THCA, CBD, CBDA, CBN or CBG is
// present. It is the cannabinoid half of the completeness check.
func (t CannabinoidTotals) HasMajor() bool {
	return t.anyOf(THC, THCA, CBD, CBDA, CBN, CBG)
}

// HasAny reports whether any cannabinoid value is present. total_terpenes
// does not count.
func (t CannabinoidTotals) HasAny() bool {
	for _, c := range AllCannabinoids {
		if c != TotalTerpenes && t.Has(c) {
			return true
		}
	}
	return false
}

// countedCannabinoids are the fields reported in data availability counts.
var countedCannabinoids = []Cannabinoid{THC, THCA, THCV, CBD, CBDA, CBDV, CBN, CBG, CBC, CBCV}

// Count returns how many of the headline cannabinoids are present.
func (t CannabinoidTotals) Count() int {
	n := 0
	for _, c := range countedCannabinoids {
		if t.Has(c) {
			n++
		}
	}
	return n
}

func (t CannabinoidTotals) anyOf(cs ...Cannabinoid) bool {
	for _, c := range cs {
		if t.Has(c) {
			return true
		}
	}
	return false
}
