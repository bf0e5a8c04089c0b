package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/lexassist/internal/model"
	"github.com/xxxsen/lexassist/internal/pkg/dbutil"
	appErr "github.com/xxxsen/lexassist/internal/pkg/errors"
)

const (
	DocumentStateNormal  = 1
	DocumentStateDeleted = 2
)

var documentFields = []string{"id", "title", "number", "content", "state", "ctime", "mtime", "indexed_mtime", "failed_mtime"}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":            doc.ID,
		"title":         doc.Title,
		"number":        doc.Number,
		"content":       doc.Content,
		"state":         doc.State,
		"ctime":         doc.Ctime,
		"mtime":         doc.Mtime,
		"indexed_mtime": doc.IndexedMtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) Update(ctx context.Context, doc *model.Document) error {
	where := map[string]interface{}{
		"id":    doc.ID,
		"state": DocumentStateNormal,
	}
	update := map[string]interface{}{
		"title":   doc.Title,
		"number":  doc.Number,
		"content": doc.Content,
		"mtime":   doc.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return expectAffected(result)
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	return r.getOne(ctx, map[string]interface{}{
		"id":    docID,
		"state": DocumentStateNormal,
	})
}

func (r *DocumentRepo) GetByNumber(ctx context.Context, number string) (*model.Document, error) {
	return r.getOne(ctx, map[string]interface{}{
		"number": number,
		"state":  DocumentStateNormal,
	})
}

func (r *DocumentRepo) List(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"state":    DocumentStateNormal,
		"_orderby": "mtime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args...)
}

func (r *DocumentRepo) Delete(ctx context.Context, docID string, mtime int64) error {
	where := map[string]interface{}{
		"id":    docID,
		"state": DocumentStateNormal,
	}
	update := map[string]interface{}{
		"state": DocumentStateDeleted,
		"mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListPendingIndex returns live documents whose content changed after their
// chunks were last built. Documents whose current version already failed to
// index are left out until they are edited again.
func (r *DocumentRepo) ListPendingIndex(ctx context.Context, limit int) ([]model.Document, error) {
	const query = `
		SELECT id, title, number, content, state, ctime, mtime, indexed_mtime, failed_mtime
		FROM documents
		WHERE state = $1 AND mtime > indexed_mtime AND mtime > failed_mtime
		ORDER BY mtime ASC
		LIMIT $2
	`
	return r.query(ctx, query, DocumentStateNormal, limit)
}

// MarkIndexFailed records that the version of docID at mtime could not be
// indexed. A document edited since then is left untouched.
func (r *DocumentRepo) MarkIndexFailed(ctx context.Context, docID string, mtime int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents SET failed_mtime = $1 WHERE id = $2 AND mtime = $1`,
		mtime, docID,
	)
	return err
}

func (r *DocumentRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Document, error) {
	where["_limit"] = []uint{0, 1}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	docs, err := r.query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &docs[0], nil
}

func (r *DocumentRepo) query(ctx context.Context, sqlStr string, args ...interface{}) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Number, &doc.Content, &doc.State, &doc.Ctime, &doc.Mtime, &doc.IndexedMtime, &doc.FailedMtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
