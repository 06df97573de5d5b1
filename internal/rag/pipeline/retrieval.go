package pipeline

import (
	"context"
	"fmt"

	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"
)

// RetrievalPipeline pulls a broad candidate set from a document's index and
// reorders it with a reranker before truncating to the final set passed to
// generation.
type RetrievalPipeline struct {
	embedder interfaces.EmbeddingModel
	reranker interfaces.Reranker // Optional component to rerank results
	log      *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
// The reranker is optional and can be nil.
func NewRetrievalPipeline(embedder interfaces.EmbeddingModel, reranker interfaces.Reranker, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder: embedder,
		reranker: reranker,
		log:      log,
	}
}

// Run retrieves the finalK chunks most relevant to the query. Stage 1 pulls
// retrieveK candidates by embedding similarity; stage 2 reranks them. If
// the reranker is unavailable or errors, the stage-1 similarity order is
// kept and truncated to the same final count: reranker trouble degrades the
// ranking, never the request.
func (p *RetrievalPipeline) Run(ctx context.Context, index interfaces.VectorIndex, query string, retrieveK, finalK int) ([]*schema.Chunk, error) {
	// 1. Embed the query.
	queryEmbeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil || len(queryEmbeddings) == 0 {
		p.log.WithStage("retrieval").Error(fmt.Sprintf("Failed to embed query: %v", err))
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// 2. Broad candidate set by embedding similarity.
	candidates, err := index.Search(queryEmbeddings[0], retrieveK)
	if err != nil {
		p.log.WithStage("retrieval").Error(fmt.Sprintf("Index search failed: %v", err))
		return nil, err
	}
	if len(candidates) == 0 {
		p.log.WithStage("retrieval").Info("No chunks found in index for the given query.")
		return []*schema.Chunk{}, nil
	}

	// 3. Rerank, falling back to similarity order on any reranker trouble.
	final := candidates
	if p.reranker != nil {
		reranked, err := p.reranker.Rerank(ctx, query, candidates)
		if err != nil {
			p.log.WithStage("retrieval").Warn(fmt.Sprintf("Reranker failed: %v. Returning chunks in similarity order.", err))
		} else {
			final = reranked
		}
	}

	if len(final) > finalK {
		final = final[:finalK]
	}
	return final, nil
}
