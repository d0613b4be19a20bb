package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"terptracker/pkg/models"
)

func TestTerpenes_COAWinsOverPage(t *testing.T) {
	coa := models.TerpeneMap{"myrcene": 0.5}
	page := models.TerpeneMap{"myrcene": 0.3, "limonene": 0.2}

	merged, used := Terpenes(coa, page, nil, nil)

	assert.Equal(t, models.TerpeneMap{"myrcene": 0.5, "limonene": 0.2}, merged)
	assert.Equal(t, []models.Source{models.SourceCOA, models.SourcePage}, used.Ordered())
}

func TestTerpenes_PriorityForEveryLowerSource(t *testing.T) {
	coa := models.TerpeneMap{"linalool": 0.11}
	for _, tc := range []struct {
		name                string
		page, database, api models.TerpeneMap
	}{
		{"page", models.TerpeneMap{"linalool": 0.4}, nil, nil},
		{"database", nil, models.TerpeneMap{"linalool": 0.4}, nil},
		{"api", nil, nil, models.TerpeneMap{"linalool": 0.4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			merged, used := Terpenes(coa, tc.page, tc.database, tc.api)
			assert.InDelta(t, 0.11, merged["linalool"], 1e-12)
			assert.True(t, used.Has(models.SourceCOA))
			assert.Len(t, used, 1)
		})
	}
}

func TestTerpenes_NonPositiveIsNoOpinion(t *testing.T) {
	coa := models.TerpeneMap{"myrcene": 0, "humulene": -0.1}
	page := models.TerpeneMap{}
	database := models.TerpeneMap{"myrcene": 0.25}
	api := models.TerpeneMap{"humulene": 0.05}

	merged, used := Terpenes(coa, page, database, api)

	assert.Equal(t, models.TerpeneMap{"myrcene": 0.25, "humulene": 0.05}, merged)
	assert.Equal(t, []models.Source{models.SourceDatabase, models.SourceAPI}, used.Ordered())
}

func TestTerpenes_Idempotent(t *testing.T) {
	src := models.TerpeneMap{"myrcene": 0.4, "limonene": 0.2, "ocimene": 0.01}
	merged, _ := Terpenes(src, src, src, src)
	assert.Equal(t, src, merged)
}

func TestTerpenes_AllEmpty(t *testing.T) {
	merged, used := Terpenes(nil, models.TerpeneMap{}, nil, nil)
	assert.Empty(t, merged)
	assert.Empty(t, used)
}

func TestCannabinoids_FieldByField(t *testing.T) {
	coa := models.CannabinoidTotals{models.THCA: 0.22}
	page := models.CannabinoidTotals{models.THCA: 0.18, models.THC: 0.01}
	database := models.CannabinoidTotals{models.CBG: 0.012}
	api := models.CannabinoidTotals{models.THC: 0.3, models.CBD: 0.002}

	merged, used := Cannabinoids(coa, page, database, api)

	assert.Equal(t, models.CannabinoidTotals{
		models.THCA: 0.22,
		models.THC:  0.01,
		models.CBG:  0.012,
		models.CBD:  0.002,
	}, merged)
	assert.Equal(t, models.SourcePriority, used.Ordered())
}

func TestCannabinoids_IdempotentAndEmpty(t *testing.T) {
	src := models.CannabinoidTotals{models.THC: 0.2, models.TotalTerpenes: 0.021}
	merged, _ := Cannabinoids(src, src, src, src)
	assert.Equal(t, src, merged)

	merged, used := Cannabinoids(nil, nil, nil, nil)
	assert.Empty(t, merged)
	assert.Empty(t, used)
}

func TestUnion_Ordered(t *testing.T) {
	a := SourceSet{models.SourceAPI: {}}
	b := SourceSet{models.SourcePage: {}, models.SourceCOA: {}}
	assert.Equal(t, []models.Source{models.SourceCOA, models.SourcePage, models.SourceAPI}, Union(a, b).Ordered())
}
