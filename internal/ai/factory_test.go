package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/lexassist/internal/config"
)

func TestNewManagerFromConfig(t *testing.T) {
	wrapped := false
	m, err := NewManagerFromConfig(config.AIConfig{
		Providers: []config.AIProviderConfig{
			{Name: "g", Type: "gemini", Data: map[string]interface{}{"api_key": "k"}},
			{Name: "or", Type: "openrouter", Data: map[string]interface{}{"api_key": "k"}},
		},
		Generator: []config.AIModelRef{{Provider: "g", Model: "gemini-2.0-flash"}, {Provider: "or", Model: "x/y"}},
		Embedder:  []config.AIModelRef{{Provider: "g", Model: "gemini-embedding-001"}},
		Timeout:   30,
	}, func(e IEmbedder) IEmbedder {
		wrapped = true
		return e
	})
	require.NoError(t, err)
	require.True(t, wrapped)
	require.Equal(t, "g:gemini-embedding-001", m.EmbeddingModelName())
}

func TestNewManagerFromConfigRejectsEmbedOnGenerateOnlyProvider(t *testing.T) {
	_, err := NewManagerFromConfig(config.AIConfig{
		Providers: []config.AIProviderConfig{{Name: "or", Type: "openrouter", Data: map[string]interface{}{}}},
		Generator: []config.AIModelRef{{Provider: "or", Model: "m"}},
		Embedder:  []config.AIModelRef{{Provider: "or", Model: "e"}},
	}, nil)
	require.Error(t, err)
}

func TestNewManagerFromConfigUnknownType(t *testing.T) {
	_, err := NewManagerFromConfig(config.AIConfig{
		Providers: []config.AIProviderConfig{{Name: "x", Type: "nope", Data: map[string]interface{}{}}},
	}, nil)
	require.Error(t, err)
}
