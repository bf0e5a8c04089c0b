package rag

import (
	"fmt"
	"strings"

	"github.com/xxxsen/lexassist/internal/model"
)

const systemPromptHeader = `You are the legal assistant of a legal document management platform.
Answer the user's question using ONLY the legal context provided below.

Rules:
- Base every statement on the context. Do not use outside knowledge.
- Never invent laws, articles, case numbers, dates or any other legal content.
- Whenever you state a legal rule, cite the article or section and the source label it comes from, for example "Article 18 [Source N]".
- If the context only partially answers the question, say which part is not covered.
- Answer in %s.
- Let the length of the answer follow the complexity of the question: a simple question gets a short answer, a complex one may use several paragraphs or a list.
`

const noContextInstruction = `
Context:
(no relevant legal documents were found)

No relevant legal context was found for this question. Reply, in %s, that no relevant legal basis was found in the available documents. Do not answer from memory and do not cite any source.
`

// BuildSystemPrompt renders the grounding instruction. Chunks are listed in
// the given order and labelled [Source 1], [Source 2], ...
func BuildSystemPrompt(language string, chunks []model.RetrievedChunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, systemPromptHeader, language)
	if len(chunks) == 0 {
		fmt.Fprintf(&sb, noContextInstruction, language)
		return sb.String()
	}
	sb.WriteString("\nContext:\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "\n[Source %d] Document: %s", i+1, c.DocumentTitle)
		if c.DocumentNumber != "" {
			fmt.Fprintf(&sb, " (No. %s)", c.DocumentNumber)
		}
		fmt.Fprintf(&sb, ", chunk %d\n", c.ChunkIndex)
		sb.WriteString(strings.TrimSpace(c.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}
