package models

// Metrics holds the retrieval accuracy figures for the currently loaded
// dataset/model pair. Every field defaults to zero when its labelled line is
// missing from the backend's metrics text; decoding never fails outright.
type Metrics struct {
	PrecisionAt1   float64 `json:"precision_at_1"`
	MAPAtR         float64 `json:"map_at_r"`
	RecallAt1      float64 `json:"recall_at_1"`
	RecallAt5      float64 `json:"recall_at_5"`
	RecallAt10     float64 `json:"recall_at_10"`
	RecallAt100    float64 `json:"recall_at_100"`
	EmbeddingCount int64   `json:"embedding_count"`
	Dimension      int     `json:"dimension"`
}
