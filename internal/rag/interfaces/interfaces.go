package interfaces

import (
	"context"

	"tenderlens/internal/rag/schema"
)

// Extractor is the interface for turning raw PDF bytes into ordered pages.
type Extractor interface {
	Extract(ctx context.Context, pdfBytes []byte, mode schema.ParsingMode) ([]schema.Page, error)
}

// Splitter is the interface for splitting extracted pages into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, pages []schema.Page) ([]*schema.Chunk, error)
}

// VectorIndex is the interface for a single document's similarity index.
// Chunks are appended in batches during ingestion and the index is
// read-only during retrieval.
type VectorIndex interface {
	Append(chunks []*schema.Chunk) error
	Search(embedding []float32, topK int) ([]*schema.Chunk, error)
	Len() int
}

// Reranker is the interface for re-ordering a list of retrieved chunks to improve relevance.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []*schema.Chunk) ([]*schema.Chunk, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
