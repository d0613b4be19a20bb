// Package extractions keeps an audit row for every URL analysis.
package extractions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"terptracker/pkg/logger"
	"terptracker/pkg/models"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one extraction attempt.
type Record struct {
	ID          string
	URL         string
	Fingerprint string
	SourceUsed  string
	Status      Status
	Evidence    *models.Evidence
	Error       string
	CreatedAt   time.Time
}

type Repo struct {
	DB  *sql.DB
	Log *logger.Logger
}

func NewRepo(db *sql.DB, log *logger.Logger) *Repo {
	if log == nil {
		log = logger.Nop()
	}
	return &Repo{DB: db, Log: log}
}

// Record stores rec and returns its id. A storage failure is logged and
// yields an empty id; it never propagates to the analysis.
func (r *Repo) Record(ctx context.Context, rec Record) string {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var evidence sql.NullString
	if rec.Evidence != nil {
		if b, err := json.Marshal(rec.Evidence); err == nil {
			evidence = sql.NullString{String: string(b), Valid: true}
		}
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO extractions (id, url, fetched_html_hash, source_used, status, evidence, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.URL, nullIfEmpty(rec.Fingerprint), nullIfEmpty(rec.SourceUsed), string(rec.Status), evidence, nullIfEmpty(rec.Error), rec.CreatedAt)
	if err != nil {
		r.Log.Warn("record extraction failed", "url", rec.URL, "error", err)
		return ""
	}
	return rec.ID
}

// Get returns the record with id, or nil when absent.
func (r *Repo) Get(ctx context.Context, id string) (*Record, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, url, fetched_html_hash, source_used, status, evidence, error_message, created_at
		FROM extractions
		WHERE id = ?
	`, id)

	var (
		rec      Record
		hash     sql.NullString
		source   sql.NullString
		status   string
		evidence sql.NullString
		errMsg   sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.URL, &hash, &source, &status, &evidence, &errMsg, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan extraction: %w", err)
	}
	rec.Fingerprint = hash.String
	rec.SourceUsed = source.String
	rec.Status = Status(status)
	rec.Error = errMsg.String
	if evidence.Valid {
		var ev models.Evidence
		if json.Unmarshal([]byte(evidence.String), &ev) == nil {
			rec.Evidence = &ev
		}
	}
	return &rec, nil
}

// ListByURL returns the most recent records for url, newest first.
func (r *Repo) ListByURL(ctx context.Context, url string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, status, source_used, created_at
		FROM extractions
		WHERE url = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		rec := Record{URL: url}
		var status string
		var source sql.NullString
		if err := rows.Scan(&rec.ID, &status, &source, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		rec.Status = Status(status)
		rec.SourceUsed = source.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
