package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const constitution = `# Constitución Política

## Título I

Artículo 18. Todas las personas tienen derecho a la salud.

El Estado garantiza la inclusión y el acceso a la salud de todas las personas.

Artículo 19. Toda persona tiene derecho a un hábitat y vivienda adecuada.

## Título II

Artículo 35. El Estado, en todos sus niveles, protegerá el derecho a la salud.
`

func TestChunkerSplitsOnArticlesAndHeadings(t *testing.T) {
	chunks := NewChunker(ChunkerConfig{}).Chunk(context.Background(), constitution)
	require.Len(t, chunks, 3)

	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, "Constitución Política > Título I", chunks[0].Heading)
	require.True(t, strings.HasPrefix(chunks[0].Content, "Heading: Constitución Política > Título I\n"))
	require.Contains(t, chunks[0].Content, "Artículo 18")
	require.Contains(t, chunks[0].Content, "acceso a la salud")
	require.NotContains(t, chunks[0].Content, "Artículo 19")

	require.Contains(t, chunks[1].Content, "Artículo 19")
	require.Equal(t, "Constitución Política > Título II", chunks[2].Heading)
	require.Contains(t, chunks[2].Content, "Artículo 35")
	for _, c := range chunks {
		require.Positive(t, c.TokenCount)
	}
}

func TestChunkerRespectsTokenBudgetWithOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString(strings.Repeat("palabra ", 10))
		sb.WriteString("\n\n")
	}
	chunks := NewChunker(ChunkerConfig{MaxTokens: 25, OverlapTokens: 10}).Chunk(context.Background(), sb.String())
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		require.LessOrEqual(t, c.TokenCount, 25)
	}
}

func TestChunkerTrimsOverlapBeforeFullPiece(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		sb.WriteString("uno dos tres cuatro cinco\n\n")
	}
	sb.WriteString(strings.TrimSpace(strings.Repeat("norma ", 25)))
	chunks := NewChunker(ChunkerConfig{MaxTokens: 25, OverlapTokens: 10}).Chunk(context.Background(), sb.String())
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		require.LessOrEqual(t, c.TokenCount, 25)
	}
	require.NotContains(t, chunks[1].Content, "uno")
}

func TestChunkerSplitsOversizedParagraph(t *testing.T) {
	long := strings.Repeat("ley ", 100)
	chunks := NewChunker(ChunkerConfig{MaxTokens: 30, OverlapTokens: -1}).Chunk(context.Background(), long)
	require.Len(t, chunks, 4)
	total := 0
	for _, c := range chunks {
		total += c.TokenCount
	}
	require.Equal(t, 100, total)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 3, EstimateTokens("derecho a la"))
	require.Equal(t, 4, EstimateTokens("宪法第一"))
	require.Equal(t, 1, EstimateTokens(" "))
}
