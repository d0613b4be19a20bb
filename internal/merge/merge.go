// Package merge combines per-source terpene and cannabinoid data under the
// fixed priority COA > page > database > API.
//
// Conflict rule: for every key, the first source (in priority order) that
// holds a strictly positive value wins. Missing and non-positive values
// mean "no opinion" and neither block nor overwrite anything.
package merge

import "terptracker/pkg/models"

// SourceSet is the set of origins that contributed at least one field.
type SourceSet map[models.Source]struct{}

func (s SourceSet) Has(src models.Source) bool {
	_, ok := s[src]
	return ok
}

func (s SourceSet) add(src models.Source) {
	s[src] = struct{}{}
}

// Ordered returns the members in display order (coa, page, database, api).
func (s SourceSet) Ordered() []models.Source {
	out := make([]models.Source, 0, len(s))
	for _, src := range models.SourcePriority {
		if s.Has(src) {
			out = append(out, src)
		}
	}
	return out
}

// Union merges several sets into a new one.
func Union(sets ...SourceSet) SourceSet {
	out := make(SourceSet)
	for _, s := range sets {
		for src := range s {
			out.add(src)
		}
	}
	return out
}

// Terpenes merges four terpene maps. Any of them may be nil.
func Terpenes(coa, page, database, api models.TerpeneMap) (models.TerpeneMap, SourceSet) {
	ranked := []struct {
		src  models.Source
		data models.TerpeneMap
	}{
		{models.SourceCOA, coa},
		{models.SourcePage, page},
		{models.SourceDatabase, database},
		{models.SourceAPI, api},
	}

	keys := make(map[string]struct{})
	for _, r := range ranked {
		for k := range r.data {
			keys[k] = struct{}{}
		}
	}

	merged := make(models.TerpeneMap, len(keys))
	used := make(SourceSet)
	for k := range keys {
		for _, r := range ranked {
			if v, ok := r.data[k]; ok && v > 0 {
				merged[k] = v
				used.add(r.src)
				break
			}
		}
	}
	return merged, used
}

// Cannabinoids merges four cannabinoid records field by field over the
// fixed key set. Any of them may be nil.
func Cannabinoids(coa, page, database, api models.CannabinoidTotals) (models.CannabinoidTotals, SourceSet) {
	ranked := []struct {
		src  models.Source
		data models.CannabinoidTotals
	}{
		{models.SourceCOA, coa},
		{models.SourcePage, page},
		{models.SourceDatabase, database},
		{models.SourceAPI, api},
	}

	merged := make(models.CannabinoidTotals)
	used := make(SourceSet)
	for _, field := range models.AllCannabinoids {
		for _, r := range ranked {
			if v, ok := r.data[field]; ok && v > 0 {
				merged[field] = v
				used.add(r.src)
				break
			}
		}
	}
	return merged, used
}
