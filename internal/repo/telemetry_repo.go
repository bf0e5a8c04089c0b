package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/lexassist/internal/model"
)

type TelemetryRepo struct {
	db *sql.DB
}

func NewTelemetryRepo(db *sql.DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

func (r *TelemetryRepo) Create(ctx context.Context, rec *model.TelemetryRecord) error {
	sources := rec.Sources
	if sources == nil {
		sources = []model.TelemetrySource{}
	}
	blob, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO assistant_telemetry (
			id, request_id, user_id, question, success, error_kind, error_message,
			source_count, sources, cited_sources, tokens_used, latency_ms, ctime
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.RequestID, rec.UserID, rec.Question, rec.Success, rec.ErrorKind, rec.ErrorMessage,
		rec.SourceCount, string(blob), rec.CitedSources, rec.TokensUsed, rec.LatencyMs, rec.Ctime,
	)
	return err
}

func (r *TelemetryRepo) List(ctx context.Context, limit, offset int) ([]model.TelemetryRecord, error) {
	const query = `
		SELECT id, request_id, user_id, question, success, error_kind, error_message,
			source_count, sources, cited_sources, tokens_used, latency_ms, ctime
		FROM assistant_telemetry
		ORDER BY ctime DESC, id ASC
		LIMIT $1 OFFSET $2
	`
	return r.query(ctx, query, limit, offset)
}

// ListBefore returns the oldest records created before cutoff.
func (r *TelemetryRepo) ListBefore(ctx context.Context, cutoff int64, limit int) ([]model.TelemetryRecord, error) {
	const query = `
		SELECT id, request_id, user_id, question, success, error_kind, error_message,
			source_count, sources, cited_sources, tokens_used, latency_ms, ctime
		FROM assistant_telemetry
		WHERE ctime < $1
		ORDER BY ctime ASC, id ASC
		LIMIT $2
	`
	return r.query(ctx, query, cutoff, limit)
}

func (r *TelemetryRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM assistant_telemetry WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TelemetryRepo) query(ctx context.Context, query string, args ...interface{}) ([]model.TelemetryRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.TelemetryRecord
	for rows.Next() {
		var rec model.TelemetryRecord
		var blob []byte
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.UserID, &rec.Question, &rec.Success, &rec.ErrorKind, &rec.ErrorMessage,
			&rec.SourceCount, &blob, &rec.CitedSources, &rec.TokensUsed, &rec.LatencyMs, &rec.Ctime,
		); err != nil {
			return nil, err
		}
		if len(blob) > 0 {
			if err := json.Unmarshal(blob, &rec.Sources); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
