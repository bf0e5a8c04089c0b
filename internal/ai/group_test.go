package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	out   *Completion
	err   error
	calls int
}

func (s *stubGenerator) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	s.calls++
	return s.out, s.err
}

type stubEmbedder struct {
	name  string
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func (s *stubEmbedder) ModelName() string {
	return s.name
}

func TestGroupGeneratorFallsBack(t *testing.T) {
	first := &stubGenerator{err: errors.New("quota")}
	second := &stubGenerator{out: &Completion{Text: "ok", TokensUsed: 3}}
	g := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: first}, {Name: "b", Generator: second}})

	res, err := g.Complete(context.Background(), CompletionRequest{Prompt: "q"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Text)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestGroupGeneratorReturnsLastError(t *testing.T) {
	lastErr := errors.New("second failed")
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "a", Generator: &stubGenerator{err: errors.New("first failed")}},
		{Name: "b", Generator: &stubGenerator{err: lastErr}},
	})
	_, err := g.Complete(context.Background(), CompletionRequest{})
	require.ErrorIs(t, err, lastErr)
}

func TestGroupGeneratorStopsOnCancelledContext(t *testing.T) {
	first := &stubGenerator{err: errors.New("boom")}
	g := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: first}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Complete(ctx, CompletionRequest{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, first.calls)
}

func TestGroupEmbedder(t *testing.T) {
	require.Nil(t, NewGroupEmbedder(nil))
	first := &stubEmbedder{err: errors.New("down")}
	second := &stubEmbedder{vec: []float32{1, 2}}
	e := NewGroupEmbedder([]EmbedderEntry{{Name: "g:a", Embedder: first}, {Name: "o:b", Embedder: second}})
	vec, err := e.Embed(context.Background(), "text", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, "g:a|o:b", e.ModelName())
}
