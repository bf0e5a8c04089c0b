package model

type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"-"`
	Ctime      int64     `json:"ctime"`
}

// RetrievedChunk is a similarity search hit. It belongs to the query that
// produced it and is never shared across requests.
type RetrievedChunk struct {
	ChunkID        string
	DocumentID     string
	DocumentTitle  string
	DocumentNumber string
	ChunkIndex     int
	Score          float32
	Content        string
}
