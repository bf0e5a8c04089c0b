package model

const (
	TelemetryErrorRetrieval  = "retrieval"
	TelemetryErrorGeneration = "generation"
)

type TelemetrySource struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float32 `json:"score"`
}

type TelemetryRecord struct {
	ID           string            `json:"id"`
	RequestID    string            `json:"request_id"`
	UserID       string            `json:"user_id"`
	Question     string            `json:"question"`
	Success      bool              `json:"success"`
	ErrorKind    string            `json:"error_kind"`
	ErrorMessage string            `json:"error_message"`
	SourceCount  int               `json:"source_count"`
	Sources      []TelemetrySource `json:"sources"`
	CitedSources int               `json:"cited_sources"`
	TokensUsed   int               `json:"tokens_used"`
	LatencyMs    int64             `json:"latency_ms"`
	Ctime        int64             `json:"ctime"`
}
