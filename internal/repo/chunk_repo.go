package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/lexassist/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceDocumentChunks swaps the chunk set of a document and stamps the
// document as indexed at indexedMtime, all in one transaction.
func (r *ChunkRepo) ReplaceDocumentChunks(ctx context.Context, docID string, chunks []model.DocumentChunk, indexedMtime int64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, docID); err != nil {
		return err
	}
	const insert = `
		INSERT INTO document_chunks (id, document_id, chunk_index, content, token_count, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, c := range chunks {
		if _, err = tx.ExecContext(ctx, insert,
			c.ID,
			docID,
			c.ChunkIndex,
			c.Content,
			c.TokenCount,
			pgvector.NewVector(c.Embedding),
			c.Ctime,
		); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE documents SET indexed_mtime = $1 WHERE id = $2`,
		indexedMtime, docID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, docID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM document_chunks WHERE document_id = $1`, docID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SearchSimilar ranks chunks of live documents by cosine similarity to the
// query vector. Hits below minScore are dropped; an empty result is not an error.
func (r *ChunkRepo) SearchSimilar(ctx context.Context, query []float32, limit int, minScore float32) ([]model.RetrievedChunk, error) {
	const sqlStr = `
		SELECT c.id, c.document_id, d.title, d.number, c.chunk_index, c.content,
			1 - (c.embedding <=> $1) AS score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.state = $2 AND 1 - (c.embedding <=> $1) >= $3
		ORDER BY c.embedding <=> $1 ASC, c.document_id ASC, c.chunk_index ASC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, sqlStr, pgvector.NewVector(query), DocumentStateNormal, minScore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.RetrievedChunk, 0, limit)
	for rows.Next() {
		var item model.RetrievedChunk
		var score float64
		if err := rows.Scan(&item.ChunkID, &item.DocumentID, &item.DocumentTitle, &item.DocumentNumber, &item.ChunkIndex, &item.Content, &score); err != nil {
			return nil, err
		}
		item.Score = float32(score)
		results = append(results, item)
	}
	return results, rows.Err()
}
