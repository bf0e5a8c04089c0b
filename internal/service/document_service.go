package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/ai"
	"github.com/xxxsen/lexassist/internal/model"
	appErr "github.com/xxxsen/lexassist/internal/pkg/errors"
	"github.com/xxxsen/lexassist/internal/repo"
)

const taskRetrievalDocument = "RETRIEVAL_DOCUMENT"

type documentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Update(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, docID string) (*model.Document, error)
	GetByNumber(ctx context.Context, number string) (*model.Document, error)
	List(ctx context.Context, limit, offset uint) ([]model.Document, error)
	Delete(ctx context.Context, docID string, mtime int64) error
	ListPendingIndex(ctx context.Context, limit int) ([]model.Document, error)
	MarkIndexFailed(ctx context.Context, docID string, mtime int64) error
}

type chunkWriter interface {
	ReplaceDocumentChunks(ctx context.Context, docID string, chunks []model.DocumentChunk, indexedMtime int64) error
}

type textEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

type DocumentInput struct {
	Title   string `json:"title"`
	Number  string `json:"number"`
	Content string `json:"content"`
}

func (in *DocumentInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Number = strings.TrimSpace(in.Number)
	if in.Title == "" || in.Number == "" || strings.TrimSpace(in.Content) == "" {
		return appErr.ErrInvalid
	}
	return nil
}

// DocumentService manages legal documents and keeps their retrieval chunks
// in sync with their content.
type DocumentService struct {
	docs     documentStore
	chunks   chunkWriter
	embedder textEmbedder
	chunker  *ai.Chunker
	now      func() time.Time
}

func NewDocumentService(docs documentStore, chunks chunkWriter, embedder textEmbedder, chunker *ai.Chunker) *DocumentService {
	if chunker == nil {
		chunker = ai.NewChunker(ai.ChunkerConfig{})
	}
	return &DocumentService{docs: docs, chunks: chunks, embedder: embedder, chunker: chunker, now: time.Now}
}

func (s *DocumentService) Create(ctx context.Context, in DocumentInput) (*model.Document, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	doc := &model.Document{
		ID:      newID(),
		Title:   in.Title,
		Number:  in.Number,
		Content: in.Content,
		State:   repo.DocumentStateNormal,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document created", zap.String("doc_id", doc.ID), zap.String("number", doc.Number))
	return doc, nil
}

func (s *DocumentService) Update(ctx context.Context, docID string, in DocumentInput) (*model.Document, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, doc, in)
}

// Upsert creates the document identified by in.Number or updates it when
// the content differs. The bool reports whether anything was written.
func (s *DocumentService) Upsert(ctx context.Context, in DocumentInput) (*model.Document, bool, error) {
	if err := in.normalize(); err != nil {
		return nil, false, err
	}
	doc, err := s.docs.GetByNumber(ctx, in.Number)
	if errors.Is(err, appErr.ErrNotFound) {
		created, err := s.Create(ctx, in)
		if err != nil {
			return nil, false, err
		}
		return created, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if doc.Title == in.Title && doc.Content == in.Content {
		return doc, false, nil
	}
	updated, err := s.applyUpdate(ctx, doc, in)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func (s *DocumentService) applyUpdate(ctx context.Context, doc *model.Document, in DocumentInput) (*model.Document, error) {
	doc.Title = in.Title
	doc.Number = in.Number
	doc.Content = in.Content
	doc.Mtime = s.nextMtime(doc.Mtime)
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document updated", zap.String("doc_id", doc.ID), zap.String("number", doc.Number))
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, docID)
}

func (s *DocumentService) List(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	docs, err := s.docs.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

// Delete hides the document. Its chunks stay in place but searches only
// join live documents.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	if err := s.docs.Delete(ctx, docID, s.now().UnixMilli()); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document deleted", zap.String("doc_id", docID))
	return nil
}

// IndexDocument rebuilds the chunks of doc and marks it indexed at its
// current mtime. Returns the number of chunks written.
func (s *DocumentService) IndexDocument(ctx context.Context, doc *model.Document) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", doc.ID), zap.String("number", doc.Number))
	pieces := s.chunker.Chunk(ctx, doc.Content)
	now := s.now().UnixMilli()
	chunks := make([]model.DocumentChunk, 0, len(pieces))
	for _, p := range pieces {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		vec, err := s.embedder.Embed(ctx, p.Content, taskRetrievalDocument)
		if err != nil {
			logger.Error("embed chunk failed", zap.Int("chunk_index", p.Index), zap.Error(err))
			return 0, err
		}
		chunks = append(chunks, model.DocumentChunk{
			ID:         newID(),
			DocumentID: doc.ID,
			ChunkIndex: p.Index,
			Content:    p.Content,
			TokenCount: p.TokenCount,
			Embedding:  vec,
			Ctime:      now,
		})
	}
	if err := s.chunks.ReplaceDocumentChunks(ctx, doc.ID, chunks, doc.Mtime); err != nil {
		logger.Error("replace document chunks failed", zap.Error(err))
		return 0, err
	}
	logger.Info("document indexed", zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// IndexStats summarizes one pass over the pending index queue.
type IndexStats struct {
	Indexed int
	Failed  int
}

// Processed reports how many queued documents the pass consumed.
func (st IndexStats) Processed() int {
	return st.Indexed + st.Failed
}

// ProcessPendingIndex indexes up to batch documents whose content changed
// since their last index. A failing document is marked failed at its
// current mtime so it leaves the queue until it is edited again.
func (s *DocumentService) ProcessPendingIndex(ctx context.Context, batch int) (IndexStats, error) {
	var stats IndexStats
	docs, err := s.docs.ListPendingIndex(ctx, batch)
	if err != nil {
		return stats, err
	}
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		doc := &docs[i]
		if _, err := s.IndexDocument(ctx, doc); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if markErr := s.docs.MarkIndexFailed(ctx, doc.ID, doc.Mtime); markErr != nil {
				return stats, markErr
			}
			logutil.GetLogger(ctx).Warn("document index failed, skipped until next edit",
				zap.String("doc_id", doc.ID), zap.Int64("mtime", doc.Mtime), zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Indexed++
	}
	return stats, nil
}

func (s *DocumentService) nextMtime(prev int64) int64 {
	now := s.now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}
