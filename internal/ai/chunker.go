package ai

import (
	"context"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

const (
	defaultChunkMaxTokens     = 400
	defaultChunkOverlapTokens = 80
)

// articleRe matches paragraphs that open a new legal provision.
var articleRe = regexp.MustCompile(`(?i)^(art[íi]culo|article|art\.)\s+\d+`)

type Chunk struct {
	Index      int
	Heading    string
	Content    string
	TokenCount int
}

// ChunkerConfig sizes chunks. A negative OverlapTokens disables overlap.
type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// Chunker splits legal markdown into retrieval chunks. Headings and
// article openings always start a new chunk so a chunk never spans two
// provisions; within a provision text is packed up to MaxTokens with a
// trailing overlap carried into the next chunk.
type Chunker struct {
	cfg ChunkerConfig
}

func NewChunker(cfg ChunkerConfig) *Chunker {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultChunkMaxTokens
	}
	switch {
	case cfg.OverlapTokens < 0:
		cfg.OverlapTokens = 0
	case cfg.OverlapTokens == 0:
		cfg.OverlapTokens = defaultChunkOverlapTokens
	}
	if cfg.OverlapTokens >= cfg.MaxTokens {
		cfg.OverlapTokens = cfg.MaxTokens / 5
	}
	return &Chunker{cfg: cfg}
}

func (c *Chunker) Chunk(ctx context.Context, markdown string) []Chunk {
	logger := logutil.GetLogger(ctx)
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var (
		chunks   []Chunk
		parts    []string
		tokens   int
		headings [7]string
	)

	headingPath := func() string {
		var path []string
		for _, h := range headings[1:] {
			if h != "" {
				path = append(path, h)
			}
		}
		return strings.Join(path, " > ")
	}

	flush := func(keepOverlap bool) {
		if len(parts) == 0 {
			return
		}
		heading := headingPath()
		content := strings.Join(parts, "\n\n")
		if heading != "" {
			content = "Heading: " + heading + "\n" + content
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Heading:    heading,
			Content:    content,
			TokenCount: EstimateTokens(content),
		})
		if !keepOverlap || len(parts) < 2 {
			parts, tokens = nil, 0
			return
		}
		overlapTokens := 0
		var overlap []string
		for i := len(parts) - 1; i > 0; i-- {
			t := EstimateTokens(parts[i])
			if overlapTokens+t > c.cfg.OverlapTokens {
				break
			}
			overlapTokens += t
			overlap = append([]string{parts[i]}, overlap...)
		}
		parts, tokens = overlap, overlapTokens
	}

	add := func(txt string) {
		for _, piece := range splitByTokens(txt, c.cfg.MaxTokens) {
			t := EstimateTokens(piece)
			if tokens+t > c.cfg.MaxTokens {
				flush(true)
				// drop carried overlap that would push the piece over budget
				for len(parts) > 0 && tokens+t > c.cfg.MaxTokens {
					tokens -= EstimateTokens(parts[0])
					parts = parts[1:]
				}
			}
			parts = append(parts, piece)
			tokens += t
		}
	}

	logger.Debug("start chunking legal document", zap.Int("size", len(markdown)))
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			flush(false)
			level := n.Level
			if level < 1 || level >= len(headings) {
				level = len(headings) - 1
			}
			headings[level] = extractText(n, source)
			for i := level + 1; i < len(headings); i++ {
				headings[i] = ""
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			add(strings.TrimSpace(string(linesText(n, source))))
		default:
			txt := extractText(n, source)
			if txt == "" {
				continue
			}
			if articleRe.MatchString(txt) {
				flush(false)
			}
			add(txt)
		}
	}
	flush(false)
	logger.Debug("chunking completed", zap.Int("total_chunks", len(chunks)))
	return chunks
}

// splitByTokens breaks a block that alone exceeds the budget into word windows.
func splitByTokens(txt string, maxTokens int) []string {
	if EstimateTokens(txt) <= maxTokens {
		return []string{txt}
	}
	words := strings.Fields(txt)
	var out []string
	var cur []string
	curTokens := 0
	for _, w := range words {
		t := EstimateTokens(w)
		if curTokens+t > maxTokens && len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur, curTokens = nil, 0
		}
		cur = append(cur, w)
		curTokens += t
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

// EstimateTokens approximates tokens as one per word, or one per rune for
// words made mostly of CJK characters.
func EstimateTokens(s string) int {
	count := 0
	for _, word := range strings.Fields(s) {
		wide := 0
		total := 0
		for _, r := range word {
			total++
			if r > 0x2E7F {
				wide++
			}
		}
		if wide*2 > total {
			count += wide
			continue
		}
		count++
	}
	if count == 0 && len(s) > 0 {
		return 1
	}
	return count
}

func linesText(n ast.Node, source []byte) []byte {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		out = append(out, line.Value(source)...)
	}
	return out
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString(" ")
			}
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
