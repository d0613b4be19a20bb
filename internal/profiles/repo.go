// Package profiles persists merged strain profiles and resolves strain
// names through the normalized key, an alias table and fuzzy search.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"terptracker/pkg/logger"
	"terptracker/pkg/models"
	"terptracker/pkg/utils"
)

const (
	minQueryLen    = 2
	fuzzyThreshold = 0.6
)

// Repo is the strain profile cache on sqlite, keyed by normalized name.
type Repo struct {
	DB      *sql.DB
	Aliases *AliasTable
	Log     *logger.Logger
}

// SaveParams is one merged analysis worth persisting.
type SaveParams struct {
	StrainName string
	Terpenes   models.TerpeneMap
	Totals     models.CannabinoidTotals
	Category   models.Category
	Source     models.Source
}

func NewRepo(db *sql.DB, aliases *AliasTable, log *logger.Logger) *Repo {
	if aliases == nil {
		aliases = EmptyAliasTable()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Repo{DB: db, Aliases: aliases, Log: log}
}

// Get returns the profile for the normalized form of name, or nil.
func (r *Repo) Get(ctx context.Context, name string) (*models.StrainProfile, error) {
	key := utils.NormalizeStrainName(name, false)
	if key == "" {
		return nil, nil
	}

	row := r.DB.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE strain_normalized = ?
	`, key)

	p, err := r.scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			r.Log.Debug("profile cache miss", "strain", name, "normalized", key)
			return nil, nil
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	r.Log.Debug("profile cache hit", "strain", name, "normalized", key)
	return p, nil
}

const profileColumns = `id, strain_normalized, terp_vector, totals, category, provenance, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile reads one profileColumns row. A malformed JSON column is
// logged and leaves the corresponding field empty.
func (r *Repo) scanProfile(row rowScanner) (*models.StrainProfile, error) {
	var (
		p          models.StrainProfile
		terpJSON   string
		totalsJSON sql.NullString
		provJSON   sql.NullString
		category   string
	)
	if err := row.Scan(&p.ID, &p.NormalizedName, &terpJSON, &totalsJSON, &category, &provJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Category = models.Category(category)

	p.Terpenes = models.TerpeneMap{}
	if err := json.Unmarshal([]byte(terpJSON), &p.Terpenes); err != nil {
		r.Log.Warn("corrupt profile column", "strain", p.NormalizedName, "column", "terp_vector", "error", err)
		p.Terpenes = models.TerpeneMap{}
	}
	p.Totals = models.CannabinoidTotals{}
	if totalsJSON.Valid {
		if err := json.Unmarshal([]byte(totalsJSON.String), &p.Totals); err != nil {
			r.Log.Warn("corrupt profile column", "strain", p.NormalizedName, "column", "totals", "error", err)
			p.Totals = models.CannabinoidTotals{}
		}
	}
	if provJSON.Valid {
		if err := json.Unmarshal([]byte(provJSON.String), &p.Provenance); err != nil {
			r.Log.Warn("corrupt profile column", "strain", p.NormalizedName, "column", "provenance", "error", err)
			p.Provenance = models.Provenance{}
		}
	}
	return &p, nil
}

// List returns stored profiles ordered by name. limit <= 0 means all.
func (r *Repo) List(ctx context.Context, limit int) ([]models.StrainProfile, error) {
	sqlStr := `SELECT ` + profileColumns + ` FROM profiles ORDER BY strain_normalized`
	var args []any
	if limit > 0 {
		sqlStr += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []models.StrainProfile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Exists reports whether a profile is stored under the normalized name.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	key := utils.NormalizeStrainName(name, false)
	if key == "" {
		return false, nil
	}
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE strain_normalized = ?`, key).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("exists query: %w", err)
	}
	return true, nil
}

// GetWithAliases falls back to the alias table when the direct lookup
// misses. A missing or empty alias table simply yields nil.
func (r *Repo) GetWithAliases(ctx context.Context, name string) (*models.StrainProfile, error) {
	p, err := r.Get(ctx, name)
	if err != nil || p != nil {
		return p, err
	}

	canonical, ok := r.Aliases.Resolve(name)
	if !ok {
		return nil, nil
	}
	if utils.NormalizeStrainName(canonical, false) == utils.NormalizeStrainName(name, false) {
		return nil, nil
	}
	r.Log.Debug("alias resolved", "strain", name, "canonical", canonical)
	return r.Get(ctx, canonical)
}

// Save inserts or overwrites the profile for the normalized strain name.
// Concurrent saves for one name are last-write-wins. Failures are logged
// and reported as false.
func (r *Repo) Save(ctx context.Context, in SaveParams) bool {
	key := utils.NormalizeStrainName(in.StrainName, false)
	if key == "" {
		return false
	}
	if err := r.save(ctx, key, in); err != nil {
		r.Log.Error("save profile failed", "strain", in.StrainName, "error", err)
		return false
	}
	return true
}

func (r *Repo) save(ctx context.Context, key string, in SaveParams) error {
	terps := in.Terpenes
	if terps == nil {
		terps = models.TerpeneMap{}
	}
	totals := in.Totals
	if totals == nil {
		totals = models.CannabinoidTotals{}
	}
	terpJSON, err := json.Marshal(terps)
	if err != nil {
		return fmt.Errorf("marshal terpenes: %w", err)
	}
	totalsJSON, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("marshal totals: %w", err)
	}

	now := time.Now().UTC()
	prov := models.Provenance{Source: string(in.Source), OriginalName: in.StrainName}

	var (
		id        int64
		createdAt time.Time
		prevProv  sql.NullString
	)
	err = r.DB.QueryRowContext(ctx, `SELECT id, created_at, provenance FROM profiles WHERE strain_normalized = ?`, key).
		Scan(&id, &createdAt, &prevProv)
	switch {
	case err == sql.ErrNoRows:
		prov.CreatedAt = &now
		provJSON, _ := json.Marshal(prov)
		_, err = r.DB.ExecContext(ctx, `
			INSERT INTO profiles (strain_normalized, terp_vector, totals, category, provenance, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(strain_normalized) DO UPDATE SET
				terp_vector = excluded.terp_vector,
				totals      = excluded.totals,
				category    = excluded.category,
				provenance  = excluded.provenance,
				updated_at  = excluded.updated_at
		`, key, string(terpJSON), string(totalsJSON), string(in.Category), string(provJSON), now, now)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		r.Log.Debug("profile created", "strain", in.StrainName, "normalized", key)
	case err != nil:
		return fmt.Errorf("lookup profile: %w", err)
	default:
		// the data is overwritten wholesale, its history is not
		var prev models.Provenance
		if prevProv.Valid {
			if err := json.Unmarshal([]byte(prevProv.String), &prev); err != nil {
				r.Log.Warn("corrupt profile column", "strain", key, "column", "provenance", "error", err)
			}
		}
		prov.CreatedAt = prev.CreatedAt
		if prov.CreatedAt == nil && !createdAt.IsZero() {
			created := createdAt.UTC()
			prov.CreatedAt = &created
		}
		prov.SampleCount = prev.SampleCount
		prov.UpdatedAt = &now
		provJSON, _ := json.Marshal(prov)
		_, err = r.DB.ExecContext(ctx, `
			UPDATE profiles
			SET terp_vector = ?, totals = ?, category = ?, provenance = ?, updated_at = ?
			WHERE id = ?
		`, string(terpJSON), string(totalsJSON), string(in.Category), string(provJSON), now, id)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		r.Log.Debug("profile updated", "strain", in.StrainName, "normalized", key)
	}
	return nil
}

// Autocomplete returns names starting with q. Queries shorter than two
// characters return nothing.
func (r *Repo) Autocomplete(ctx context.Context, q string, limit int) ([]models.StrainMatch, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if len([]rune(q)) < minQueryLen {
		return []models.StrainMatch{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT strain_normalized, category
		FROM profiles
		WHERE strain_normalized LIKE ? ESCAPE '\'
		ORDER BY strain_normalized
		LIMIT ?
	`, escapeLike(q)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete query: %w", err)
	}
	defer rows.Close()

	out := make([]models.StrainMatch, 0, limit)
	for rows.Next() {
		var m models.StrainMatch
		var category string
		if err := rows.Scan(&m.Name, &category); err != nil {
			return nil, fmt.Errorf("autocomplete scan: %w", err)
		}
		m.Category = models.Category(category)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Search returns prefix matches (score 1.0) followed by fuzzy matches
// whose similarity to q is at least 0.6, best first.
func (r *Repo) Search(ctx context.Context, q string, limit int) ([]models.StrainMatch, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []models.StrainMatch{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	prefix, err := r.Autocomplete(ctx, q, limit)
	if err != nil {
		return nil, err
	}

	out := make([]models.StrainMatch, 0, limit)
	seen := make(map[string]bool, len(prefix))
	for _, m := range prefix {
		m.MatchScore = 1.0
		m.MatchType = "prefix"
		out = append(out, m)
		seen[m.Name] = true
	}
	if len(out) >= limit {
		return out[:limit], nil
	}

	all, err := r.listMatches(ctx, 0)
	if err != nil {
		return nil, err
	}

	var fuzzy []models.StrainMatch
	for _, m := range all {
		if seen[m.Name] {
			continue
		}
		score := similarity(q, m.Name)
		if score < fuzzyThreshold {
			continue
		}
		m.MatchScore = score
		m.MatchType = "fuzzy"
		fuzzy = append(fuzzy, m)
	}
	sort.SliceStable(fuzzy, func(i, j int) bool {
		if fuzzy[i].MatchScore != fuzzy[j].MatchScore {
			return fuzzy[i].MatchScore > fuzzy[j].MatchScore
		}
		return fuzzy[i].Name < fuzzy[j].Name
	})

	for _, m := range fuzzy {
		if len(out) >= limit {
			break
		}
		out = append(out, m)
	}
	return out, nil
}

// ListNames returns up to limit normalized names. limit <= 0 means all.
func (r *Repo) ListNames(ctx context.Context, limit int) ([]string, error) {
	matches, err := r.listMatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Name)
	}
	return out, nil
}

func (r *Repo) listMatches(ctx context.Context, limit int) ([]models.StrainMatch, error) {
	sqlStr := `SELECT strain_normalized, category FROM profiles ORDER BY strain_normalized`
	var args []any
	if limit > 0 {
		sqlStr += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []models.StrainMatch
	for rows.Next() {
		var m models.StrainMatch
		var category string
		if err := rows.Scan(&m.Name, &category); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		m.Category = models.Category(category)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
