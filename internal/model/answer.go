package model

type SourceReference struct {
	DocumentID     string  `json:"documentId"`
	DocumentTitle  string  `json:"documentTitle"`
	DocumentNumber string  `json:"documentNumber"`
	ChunkID        string  `json:"chunkId"`
	ChunkIndex     int     `json:"chunkIndex"`
	Score          float32 `json:"score"`
	Snippet        string  `json:"snippet"`
}

type AssistantAnswer struct {
	Answer          string            `json:"answer"`
	Sources         []SourceReference `json:"sources"`
	Query           string            `json:"query"`
	TokensUsed      *int              `json:"tokensUsed,omitempty"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
}
