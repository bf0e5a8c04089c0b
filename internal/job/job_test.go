package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/lexassist/internal/service"
)

type fakePurger struct {
	cutoff int64
}

func (f *fakePurger) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

type fakeIndexer struct {
	batch int
	err   error
}

func (f *fakeIndexer) ProcessPendingIndex(ctx context.Context, batch int) (service.IndexStats, error) {
	f.batch = batch
	return service.IndexStats{Indexed: 2, Failed: 1}, f.err
}

type fakeArchiver struct {
	cutoff time.Time
	calls  int
}

func (f *fakeArchiver) Archive(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	f.calls++
	f.cutoff = cutoff
	return 1, nil
}

func TestEmbeddingCacheCleanupJobCutoff(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	j := NewEmbeddingCacheCleanupJob(purger, 0)
	j.now = func() time.Time { return now }
	require.Equal(t, "embedding_cache_cleanup", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.AddDate(0, 0, -30).Unix(), purger.cutoff)
}

func TestDocumentIndexJob(t *testing.T) {
	indexer := &fakeIndexer{}
	j := NewDocumentIndexJob(indexer, 0)
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 20, indexer.batch)

	indexer.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
}

func TestTelemetryArchiveJob(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	archiver := &fakeArchiver{}
	j := NewTelemetryArchiveJob(archiver, 90)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.AddDate(0, 0, -90), archiver.cutoff)

	j = NewTelemetryArchiveJob(archiver, 0)
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 1, archiver.calls)
}
