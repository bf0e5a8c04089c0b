package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/lexassist/internal/ai"
	"github.com/xxxsen/lexassist/internal/model"
	"go.uber.org/zap"
)

const (
	defaultMaxSources = 5
	defaultLanguage   = "Spanish"
)

type ChunkSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.RetrievedChunk, error)
}

type Completer interface {
	Complete(ctx context.Context, systemPrompt, question string) (*ai.Completion, error)
}

type TelemetryRecorder interface {
	Record(ctx context.Context, rec *model.TelemetryRecord) error
}

type Config struct {
	DefaultMaxSources int
	MaxSourcesLimit   int
	MinScore          float32
	Language          string
	SnippetChars      int
	MaxAnswerChars    int
}

// Question is a validated user question. A MaxSources of zero selects the
// configured default.
type Question struct {
	Text       string
	MaxSources int
	UserID     string
	RequestID  string
}

// Orchestrator answers legal questions from retrieved document chunks.
// It keeps no per-request state; concurrent Answer calls are safe.
type Orchestrator struct {
	searcher  ChunkSearcher
	completer Completer
	recorder  TelemetryRecorder
	cfg       Config
	now       func() time.Time
	wg        sync.WaitGroup
}

func New(searcher ChunkSearcher, completer Completer, recorder TelemetryRecorder, cfg Config) *Orchestrator {
	if cfg.DefaultMaxSources <= 0 {
		cfg.DefaultMaxSources = defaultMaxSources
	}
	if cfg.MaxSourcesLimit > 0 && cfg.DefaultMaxSources > cfg.MaxSourcesLimit {
		cfg.DefaultMaxSources = cfg.MaxSourcesLimit
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = defaultLanguage
	}
	return &Orchestrator{
		searcher:  searcher,
		completer: completer,
		recorder:  recorder,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (o *Orchestrator) Answer(ctx context.Context, q Question) (*model.AssistantAnswer, error) {
	start := o.now()
	limit := o.maxSources(q.MaxSources)
	logger := logutil.GetLogger(ctx).With(
		zap.String("request_id", q.RequestID),
		zap.String("user_id", q.UserID),
		zap.Int("max_sources", limit),
	)

	chunks, err := o.searcher.Search(ctx, q.Text, limit)
	if err != nil {
		logger.Error("retrieve legal context failed", zap.Error(err), zap.Bool("timeout", IsTimeout(err)))
		o.emit(ctx, o.failureRecord(q, start, model.TelemetryErrorRetrieval, err, nil))
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}
	selected := SelectSources(chunks, limit, o.cfg.MinScore)
	logger.Debug("legal context retrieved", zap.Int("retrieved", len(chunks)), zap.Int("selected", len(selected)))

	systemPrompt := BuildSystemPrompt(o.cfg.Language, selected)
	completion, err := o.completer.Complete(ctx, systemPrompt, q.Text)
	if err == nil && (completion == nil || strings.TrimSpace(completion.Text) == "") {
		err = errEmptyAnswer
	}
	if err != nil {
		logger.Error("generate answer failed", zap.Error(err), zap.Bool("timeout", IsTimeout(err)))
		o.emit(ctx, o.failureRecord(q, start, model.TelemetryErrorGeneration, err, selected))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	text := FormatAnswer(completion.Text, o.cfg.MaxAnswerChars)
	elapsed := o.now().Sub(start).Milliseconds()
	answer := &model.AssistantAnswer{
		Answer:          text,
		Sources:         ToSourceReferences(selected, o.cfg.SnippetChars),
		Query:           q.Text,
		ExecutionTimeMs: elapsed,
	}
	if completion.TokensUsed > 0 {
		tokens := completion.TokensUsed
		answer.TokensUsed = &tokens
	}

	rec := o.baseRecord(q, elapsed)
	rec.Success = true
	rec.SourceCount = len(selected)
	rec.Sources = toTelemetrySources(selected)
	rec.CitedSources = CountCitations(text, len(selected))
	rec.TokensUsed = completion.TokensUsed
	o.emit(ctx, rec)

	logger.Info("legal question answered",
		zap.Int("sources", len(selected)),
		zap.Int("cited", rec.CitedSources),
		zap.Int64("latency_ms", elapsed),
	)
	return answer, nil
}

// Wait blocks until every pending telemetry emission has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) maxSources(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = o.cfg.DefaultMaxSources
	}
	if o.cfg.MaxSourcesLimit > 0 && limit > o.cfg.MaxSourcesLimit {
		limit = o.cfg.MaxSourcesLimit
	}
	return limit
}

func (o *Orchestrator) baseRecord(q Question, latencyMs int64) *model.TelemetryRecord {
	return &model.TelemetryRecord{
		ID:        uuid.NewString(),
		RequestID: q.RequestID,
		UserID:    q.UserID,
		Question:  q.Text,
		LatencyMs: latencyMs,
		Ctime:     o.now().UnixMilli(),
	}
}

func (o *Orchestrator) failureRecord(q Question, start time.Time, kind string, err error, used []model.RetrievedChunk) *model.TelemetryRecord {
	rec := o.baseRecord(q, o.now().Sub(start).Milliseconds())
	rec.ErrorKind = kind
	rec.ErrorMessage = err.Error()
	rec.SourceCount = len(used)
	rec.Sources = toTelemetrySources(used)
	return rec
}

// emit hands the record to the recorder off the response path. The request
// context is detached so a finished request does not cancel the write.
func (o *Orchestrator) emit(ctx context.Context, rec *model.TelemetryRecord) {
	if o.recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	logger := logutil.GetLogger(ctx).With(zap.String("telemetry_id", rec.ID), zap.String("request_id", rec.RequestID))
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("telemetry recorder panic", zap.Any("panic", r))
			}
		}()
		if err := o.recorder.Record(ctx, rec); err != nil {
			logger.Warn("record telemetry failed", zap.Error(err))
		}
	}()
}
