package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureGenerator struct {
	req      CompletionRequest
	deadline bool
	out      *Completion
}

func (c *captureGenerator) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	c.req = req
	_, c.deadline = ctx.Deadline()
	return c.out, nil
}

type blockingGenerator struct{}

func (blockingGenerator) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestManagerCompletePassesPromptsAndBudget(t *testing.T) {
	gen := &captureGenerator{out: &Completion{Text: "  answer  ", TokensUsed: 42}}
	m := NewManager(gen, nil, ManagerConfig{Timeout: time.Minute, MaxOutputTokens: 512})

	res, err := m.Complete(context.Background(), "system", "question")
	require.NoError(t, err)
	require.Equal(t, "answer", res.Text)
	require.Equal(t, 42, res.TokensUsed)
	require.Equal(t, "system", gen.req.SystemPrompt)
	require.Equal(t, "question", gen.req.Prompt)
	require.Equal(t, 512, gen.req.MaxOutputTokens)
	require.True(t, gen.deadline)
}

func TestManagerCompleteEmptyOutput(t *testing.T) {
	m := NewManager(&captureGenerator{out: &Completion{Text: "   "}}, nil, ManagerConfig{})
	_, err := m.Complete(context.Background(), "s", "q")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestManagerCompleteTimeout(t *testing.T) {
	m := NewManager(blockingGenerator{}, nil, ManagerConfig{Timeout: 10 * time.Millisecond})
	_, err := m.Complete(context.Background(), "s", "q")
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestManagerNotConfigured(t *testing.T) {
	m := NewManager(nil, nil, ManagerConfig{})
	_, err := m.Complete(context.Background(), "s", "q")
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = m.Embed(context.Background(), "t", "RETRIEVAL_QUERY")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, "", m.EmbeddingModelName())
}
