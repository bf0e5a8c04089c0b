package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/ai"
	"github.com/xxxsen/lexassist/internal/config"
	"github.com/xxxsen/lexassist/internal/db"
	"github.com/xxxsen/lexassist/internal/embedcache"
	"github.com/xxxsen/lexassist/internal/filestore"
	"github.com/xxxsen/lexassist/internal/rag"
	"github.com/xxxsen/lexassist/internal/repo"
	"github.com/xxxsen/lexassist/internal/service"
)

type app struct {
	cfg          *config.Config
	db           *sql.DB
	embedCache   *repo.EmbeddingCacheRepo
	documents    *service.DocumentService
	telemetry    *service.TelemetryService
	orchestrator *rag.Orchestrator
}

func newApp(cfg *config.Config) (*app, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	telemetryRepo := repo.NewTelemetryRepo(conn)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(conn)

	manager, err := ai.NewManagerFromConfig(cfg.AI, func(e ai.IEmbedder) ai.IEmbedder {
		e = embedcache.WithStore(e, embedCacheRepo)
		return embedcache.WithLRU(e, cfg.AI.EmbedCacheSize, time.Duration(cfg.AI.EmbedCacheTTL)*time.Second)
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init ai: %w", err)
	}

	var store filestore.Store
	if s, err := filestore.New(cfg.FileStore); err != nil {
		logutil.GetLogger(context.Background()).Warn("file store disabled, telemetry will not be archived", zap.Error(err))
	} else {
		store = s
	}

	documents := service.NewDocumentService(docRepo, chunkRepo, manager, ai.NewChunker(ai.ChunkerConfig{}))
	search := service.NewChunkSearchService(manager, chunkRepo, cfg.Assistant.MinScore)
	telemetry := service.NewTelemetryService(telemetryRepo, store, cfg.Telemetry.ArchivePrefix)
	orchestrator := rag.New(search, manager, telemetry, rag.Config{
		DefaultMaxSources: cfg.Assistant.DefaultMaxSources,
		MaxSourcesLimit:   cfg.Assistant.MaxSourcesLimit,
		MinScore:          cfg.Assistant.MinScore,
		Language:          cfg.Assistant.Language,
		SnippetChars:      cfg.Assistant.SnippetChars,
		MaxAnswerChars:    cfg.Assistant.MaxAnswerChars,
	})

	return &app{
		cfg:          cfg,
		db:           conn,
		embedCache:   embedCacheRepo,
		documents:    documents,
		telemetry:    telemetry,
		orchestrator: orchestrator,
	}, nil
}

// indexAll drains the pending index queue.
func (a *app) indexAll(ctx context.Context) (int, error) {
	total := 0
	for {
		stats, err := a.documents.ProcessPendingIndex(ctx, a.cfg.Jobs.IndexBatch)
		total += stats.Indexed
		if err != nil {
			return total, err
		}
		if stats.Processed() == 0 {
			return total, nil
		}
	}
}

func (a *app) Close() {
	a.orchestrator.Wait()
	_ = a.db.Close()
}
