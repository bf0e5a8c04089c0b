package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/lexassist/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

type memStore struct {
	items   map[string][]float32
	getErr  error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{items: map[string][]float32{}}
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.items[modelName+taskType+contentHash]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item.Embedding
	return nil
}

func TestWithLRUCachesByTaskType(t *testing.T) {
	next := &countingEmbedder{}
	e := WithLRU(next, 10, time.Minute)

	v1, err := e.Embed(context.Background(), "salud", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	v1[0] = 99
	v2, err := e.Embed(context.Background(), "salud", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, float32(5), v2[0])
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(context.Background(), "salud", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "test-model", e.ModelName())
}

func TestWithLRUDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WithLRU(next, 0, time.Minute))
}

func TestWithStoreHitAndMiss(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	e := WithStore(next, store)

	_, err := e.Embed(context.Background(), "vivienda", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "vivienda", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 1, next.calls)
	require.Equal(t, 1, store.saves)
}

func TestWithStoreDegradesOnStoreErrors(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	store.getErr = errors.New("db down")
	store.saveErr = errors.New("db down")
	e := WithStore(next, store)

	vec, err := e.Embed(context.Background(), "hola", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{4, 1}, vec)
}

func TestWithStorePropagatesEmbedError(t *testing.T) {
	boom := errors.New("provider down")
	e := WithStore(&countingEmbedder{err: boom}, newMemStore())
	_, err := e.Embed(context.Background(), "hola", "RETRIEVAL_QUERY")
	require.ErrorIs(t, err, boom)
}
