package profiles

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"terptracker/pkg/database"
	"terptracker/pkg/logger"
	"terptracker/pkg/models"
)

func newTestRepo(t *testing.T, aliases *AliasTable) *Repo {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepo(db, aliases, nil)
}

func seed(t *testing.T, r *Repo, name string, c models.Category) {
	t.Helper()
	ok := r.Save(context.Background(), SaveParams{
		StrainName: name,
		Terpenes:   models.TerpeneMap{"myrcene": 0.5, "limonene": 0.2},
		Totals:     models.CannabinoidTotals{models.THC: 0.2},
		Category:   c,
		Source:     models.SourcePage,
	})
	require.True(t, ok)
}

func TestRepo_SaveAndGet(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()

	ok := r.Save(ctx, SaveParams{
		StrainName: "Blue Dream flower",
		Terpenes:   models.TerpeneMap{"myrcene": 0.6, "limonene": 0.2, "bisabolol": 0.01},
		Totals:     models.CannabinoidTotals{models.THCA: 0.22, models.CBG: 0.011},
		Category:   models.CategoryBlue,
		Source:     models.SourceCOA,
	})
	require.True(t, ok)

	p, err := r.Get(ctx, "blue dream")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "blue dream", p.NormalizedName)
	assert.Equal(t, models.CategoryBlue, p.Category)
	assert.Equal(t, models.TerpeneMap{"myrcene": 0.6, "limonene": 0.2, "bisabolol": 0.01}, p.Terpenes)
	assert.InDelta(t, 0.22, p.Totals.Get(models.THCA), 1e-12)
	assert.Equal(t, "coa", p.Provenance.Source)
	assert.Equal(t, "Blue Dream flower", p.Provenance.OriginalName)
	assert.NotNil(t, p.Provenance.CreatedAt)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestRepo_GetMiss(t *testing.T) {
	r := newTestRepo(t, nil)

	p, err := r.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = r.Get(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepo_SaveOverwritesWholesale(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()

	require.True(t, r.Save(ctx, SaveParams{
		StrainName: "OG Kush",
		Terpenes:   models.TerpeneMap{"myrcene": 0.5, "humulene": 0.1},
		Totals:     models.CannabinoidTotals{models.THC: 0.2},
		Category:   models.CategoryBlue,
		Source:     models.SourcePage,
	}))
	first, err := r.Get(ctx, "OG Kush")
	require.NoError(t, err)
	require.NotNil(t, first.Provenance.CreatedAt)

	require.True(t, r.Save(ctx, SaveParams{
		StrainName: "og kush!",
		Terpenes:   models.TerpeneMap{"limonene": 0.4},
		Category:   models.CategoryYellow,
		Source:     models.SourceCOA,
	}))

	var n int
	require.NoError(t, r.DB.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&n))
	assert.Equal(t, 1, n)

	p, err := r.Get(ctx, "OG Kush")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.TerpeneMap{"limonene": 0.4}, p.Terpenes)
	assert.Empty(t, p.Totals)
	assert.Equal(t, models.CategoryYellow, p.Category)
	assert.Equal(t, "coa", p.Provenance.Source)
	assert.NotNil(t, p.Provenance.UpdatedAt)
	require.NotNil(t, p.Provenance.CreatedAt, "overwrite keeps the creation time")
	assert.True(t, first.Provenance.CreatedAt.Equal(*p.Provenance.CreatedAt))
}

func TestRepo_SaveKeepsSampleCount(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()
	seed(t, r, "Gelato", models.CategoryPurple)

	_, err := r.DB.Exec(`UPDATE profiles SET provenance = ? WHERE strain_normalized = ?`,
		`{"source":"dataset_import","original_name":"Gelato","sample_count":12}`, "gelato")
	require.NoError(t, err)

	require.True(t, r.Save(ctx, SaveParams{
		StrainName: "Gelato",
		Terpenes:   models.TerpeneMap{models.Caryophyllene: 0.5},
		Category:   models.CategoryPurple,
		Source:     models.SourcePage,
	}))

	p, err := r.Get(ctx, "gelato")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 12, p.Provenance.SampleCount)
	assert.Equal(t, "page", p.Provenance.Source)
	assert.NotNil(t, p.Provenance.CreatedAt, "falls back to the row's created_at")
}

func TestRepo_CorruptColumnsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r := NewRepo(db, nil, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	_, err = db.Exec(`INSERT INTO profiles (strain_normalized, terp_vector, totals, category, provenance)
		VALUES ('broken', '{not json', '[1,2]', 'BLUE', '{"source":"page"}')`)
	require.NoError(t, err)

	p, err := r.Get(context.Background(), "Broken")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Empty(t, p.Terpenes)
	assert.Empty(t, p.Totals)
	assert.Equal(t, "page", p.Provenance.Source)

	warned := logs.FilterMessage("corrupt profile column")
	require.Equal(t, 2, warned.Len())
	assert.Equal(t, "terp_vector", warned.All()[0].ContextMap()["column"])
	assert.Equal(t, "broken", warned.All()[0].ContextMap()["strain"])
	assert.Equal(t, "totals", warned.All()[1].ContextMap()["column"])
}

func TestRepo_SaveRejectsEmptyName(t *testing.T) {
	r := newTestRepo(t, nil)
	assert.False(t, r.Save(context.Background(), SaveParams{StrainName: "#!", Category: models.CategoryBlue}))
}

func TestRepo_SaveReportsFailure(t *testing.T) {
	r := newTestRepo(t, nil)
	require.NoError(t, r.DB.Close())

	assert.False(t, r.Save(context.Background(), SaveParams{StrainName: "Blue Dream", Category: models.CategoryBlue}))
}

func TestRepo_GetWithAliases(t *testing.T) {
	aliases, err := ParseAliasTable([]byte(`{"gsc": "Girl Scout Cookies", "GDP": "Granddaddy Purple"}`))
	require.NoError(t, err)
	r := newTestRepo(t, aliases)
	ctx := context.Background()
	seed(t, r, "Girl Scout Cookies", models.CategoryPurple)

	p, err := r.GetWithAliases(ctx, "G.S.C.")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "girl scout cookies", p.NormalizedName)

	p, err = r.GetWithAliases(ctx, "gdp")
	require.NoError(t, err)
	assert.Nil(t, p, "alias resolves but the canonical strain is not stored")

	p, err = r.GetWithAliases(ctx, "unknown strain")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepo_GetWithAliases_NoTable(t *testing.T) {
	r := newTestRepo(t, nil)
	p, err := r.GetWithAliases(context.Background(), "gsc")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepo_Autocomplete(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()
	seed(t, r, "Blue Dream", models.CategoryBlue)
	seed(t, r, "Blue Cheese", models.CategoryPurple)
	seed(t, r, "Blueberry", models.CategoryBlue)
	seed(t, r, "OG Kush", models.CategoryYellow)
	seed(t, r, "Bubba Kush", models.CategoryBlue)

	got, err := r.Autocomplete(ctx, "Blue", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "blue cheese", got[0].Name)
	assert.Equal(t, models.CategoryPurple, got[0].Category)
	for _, m := range got {
		assert.Contains(t, m.Name, "blue")
	}

	got, err = r.Autocomplete(ctx, "b", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Autocomplete(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Autocomplete(ctx, "b%", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "LIKE wildcards in the query are literal")
}

func TestRepo_Search(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()
	seed(t, r, "Blue Dream", models.CategoryBlue)
	seed(t, r, "Blue Cheese", models.CategoryPurple)
	seed(t, r, "Blueberry", models.CategoryBlue)
	seed(t, r, "OG Kush", models.CategoryYellow)

	got, err := r.Search(ctx, "blue", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, m := range got {
		assert.Equal(t, "prefix", m.MatchType)
		assert.Equal(t, 1.0, m.MatchScore)
	}

	got, err = r.Search(ctx, "bleu dream", 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "blue dream", got[0].Name)
	assert.Equal(t, "fuzzy", got[0].MatchType)
	assert.InDelta(t, 0.8, got[0].MatchScore, 1e-9)

	got, err = r.Search(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepo_ListNames(t *testing.T) {
	r := newTestRepo(t, nil)
	seed(t, r, "Blue Dream", models.CategoryBlue)
	seed(t, r, "Acapulco Gold", models.CategoryOrange)

	names, err := r.ListNames(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"acapulco gold", "blue dream"}, names)

	names, err = r.ListNames(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"acapulco gold"}, names)
}

func TestRepo_ListAndExists(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()
	seed(t, r, "Blue Dream", models.CategoryBlue)
	seed(t, r, "Acapulco Gold", models.CategoryOrange)

	all, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "acapulco gold", all[0].NormalizedName)
	assert.Equal(t, models.CategoryOrange, all[0].Category)
	assert.Equal(t, "Acapulco Gold", all[0].Provenance.OriginalName)
	assert.InDelta(t, 0.5, all[0].Terpenes[models.Myrcene], 1e-12)

	ok, err := r.Exists(ctx, "BLUE DREAM flower")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, "Gelato")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepo_ClosedDB(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	r := NewRepo(db, nil, nil)
	require.NoError(t, db.Close())

	_, err = r.Get(context.Background(), "blue dream")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}
