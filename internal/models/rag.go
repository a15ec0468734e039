package models

// Chunk is a bounded, overlapping slice of a transcript stored in a session collection.
type Chunk struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	VideoTitle string    `json:"video_title"`
	SessionID  string    `json:"session_id"`
	Embedding  []float32 `json:"-"`
}

// RetrievalParams is the retrieval and generation configuration of a RAG session.
type RetrievalParams struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"k"`
	ChainType   string  `json:"chain_type"`
	SearchType  string  `json:"search_type"`
}

// RAGStats is a snapshot of a session's index.
type RAGStats struct {
	Status            string           `json:"status"`
	Chunks            int              `json:"chunks"`
	SessionID         string           `json:"session_id,omitempty"`
	HasRetrievalChain bool             `json:"has_retrieval_chain"`
	Parameters        *RetrievalParams `json:"parameters,omitempty"`
	DiskUsageBytes    int64            `json:"disk_usage_bytes,omitempty"`
}

// SourceChunk is a retrieved chunk cited by an answer.
type SourceChunk struct {
	ChunkIndex int     `json:"chunk_index"`
	VideoTitle string  `json:"video_title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}
