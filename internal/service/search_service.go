package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/model"
)

const taskRetrievalQuery = "RETRIEVAL_QUERY"

type similaritySearcher interface {
	SearchSimilar(ctx context.Context, query []float32, limit int, minScore float32) ([]model.RetrievedChunk, error)
}

// ChunkSearchService turns a question into ranked legal chunks.
type ChunkSearchService struct {
	embedder textEmbedder
	chunks   similaritySearcher
	minScore float32
}

func NewChunkSearchService(embedder textEmbedder, chunks similaritySearcher, minScore float32) *ChunkSearchService {
	return &ChunkSearchService{embedder: embedder, chunks: chunks, minScore: minScore}
}

func (s *ChunkSearchService) Search(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []model.RetrievedChunk{}, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("limit", limit))
	vec, err := s.embedder.Embed(ctx, query, taskRetrievalQuery)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return nil, err
	}
	chunks, err := s.chunks.SearchSimilar(ctx, vec, limit, s.minScore)
	if err != nil {
		logger.Error("similarity search failed", zap.Error(err))
		return nil, err
	}
	logger.Debug("similarity search finished", zap.Int("hits", len(chunks)))
	return chunks, nil
}
