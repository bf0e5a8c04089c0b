package rag

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xxxsen/lexassist/internal/model"
)

var citationRe = regexp.MustCompile(`(?i)\[(?:source|fuente)\s+(\d+)\]`)

// SelectSources drops chunks under minScore, orders the rest by descending
// score keeping retrieval order on ties, and keeps at most limit entries.
// The input slice is left untouched.
func SelectSources(chunks []model.RetrievedChunk, limit int, minScore float32) []model.RetrievedChunk {
	selected := make([]model.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		if math.IsNaN(float64(c.Score)) || c.Score < minScore {
			continue
		}
		selected = append(selected, c)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})
	if limit >= 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}

func ToSourceReferences(chunks []model.RetrievedChunk, snippetChars int) []model.SourceReference {
	refs := make([]model.SourceReference, 0, len(chunks))
	for _, c := range chunks {
		refs = append(refs, model.SourceReference{
			DocumentID:     c.DocumentID,
			DocumentTitle:  c.DocumentTitle,
			DocumentNumber: c.DocumentNumber,
			ChunkID:        c.ChunkID,
			ChunkIndex:     c.ChunkIndex,
			Score:          c.Score,
			Snippet:        truncateRunes(strings.TrimSpace(c.Content), snippetChars),
		})
	}
	return refs
}

func toTelemetrySources(chunks []model.RetrievedChunk) []model.TelemetrySource {
	out := make([]model.TelemetrySource, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, model.TelemetrySource{DocumentID: c.DocumentID, ChunkID: c.ChunkID, Score: c.Score})
	}
	return out
}

// CountCitations returns how many distinct context labels in [1, n] the
// answer refers to.
func CountCitations(answer string, n int) int {
	seen := make(map[int]struct{})
	for _, m := range citationRe.FindAllStringSubmatch(answer, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		seen[idx] = struct{}{}
	}
	return len(seen)
}

// FormatAnswer trims the generated text and, when maxChars > 0, cuts it at
// the last word boundary that fits.
func FormatAnswer(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	cut := []rune(text)[:maxChars]
	if i := lastSpace(cut); i > maxChars/2 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + "…"
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}
