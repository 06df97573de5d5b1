package rerankers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"
)

const cohereRerankURL = "https://api.cohere.ai/v1/rerank"

// CohereReranker implements the Reranker interface using the Cohere Rerank API.
// Errors are returned to the caller so the retrieval pipeline can fall back
// to embedding-similarity order; the reranker itself never degrades silently.
type CohereReranker struct {
	apiKey     string
	httpClient *http.Client
	model      string
	topN       int
	baseURL    string
}

// cohereRerankRequest defines the request body for the Cohere Rerank API.
type cohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

// cohereRerankResult defines the structure of a result from the Cohere Rerank API.
type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

// NewCohereReranker creates a new CohereReranker with an enforced request timeout.
func NewCohereReranker(apiKey, model string, topN int, timeout time.Duration) *CohereReranker {
	return &CohereReranker{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		model:      model,
		topN:       topN,
		baseURL:    cohereRerankURL,
	}
}

// Rerank re-orders retrieved chunks by relevance scores from the Cohere API
// and truncates to the configured topN.
func (r *CohereReranker) Rerank(ctx context.Context, query string, chunks []*schema.Chunk) ([]*schema.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	// 1. Prepare the request for Cohere's API
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	reqBody := cohereRerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       texts,
		TopN:            r.topN,
		ReturnDocuments: false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cohere request: %w", err)
	}

	// 2. Make the HTTP request
	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call cohere api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cohere api returned non-200 status: %s", resp.Status)
	}

	// 3. Parse the response and re-order the chunks
	var cohereResp cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&cohereResp); err != nil {
		return nil, fmt.Errorf("failed to decode cohere response: %w", err)
	}

	reranked := make([]*schema.Chunk, 0, len(cohereResp.Results))
	for _, result := range cohereResp.Results {
		if result.Index < len(chunks) {
			chunk := chunks[result.Index]
			if chunk.Metadata == nil {
				chunk.Metadata = make(map[string]interface{})
			}
			chunk.Metadata[schema.MetadataKeyScore] = result.RelevanceScore
			reranked = append(reranked, chunk)
		}
	}

	// Sort by the new score in descending order
	sort.SliceStable(reranked, func(i, j int) bool {
		iScore, _ := reranked[i].Metadata[schema.MetadataKeyScore].(float64)
		jScore, _ := reranked[j].Metadata[schema.MetadataKeyScore].(float64)
		return iScore > jScore
	})

	if r.topN > 0 && len(reranked) > r.topN {
		reranked = reranked[:r.topN]
	}

	return reranked, nil
}

// compile-time check to ensure CohereReranker implements the Reranker interface
var _ interfaces.Reranker = (*CohereReranker)(nil)
