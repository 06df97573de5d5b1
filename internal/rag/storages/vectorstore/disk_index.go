package vectorstore

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"
)

// indexFileName is the serialized index file inside a document's index directory.
const indexFileName = "index.gob"

// chunkRecord is the on-disk form of an indexed chunk. It flattens the
// chunk metadata into concrete fields so the gob stream stays free of
// interface values.
type chunkRecord struct {
	ID          string
	Text        string
	Embedding   []float32
	PageNumber  int
	ChunkNumber int
	Provenance  string
}

// DiskIndex is an append-only similarity index over one document's chunks,
// persisted as a single gob file in the document's index directory. It is
// owned by exactly one document and is mutated only during ingestion;
// retrieval reads may run concurrently.
type DiskIndex struct {
	mu     sync.RWMutex
	chunks []*schema.Chunk
	norms  []float64
	dim    int
}

// New creates an empty DiskIndex.
func New() *DiskIndex {
	return &DiskIndex{}
}

// Append adds a batch of embedded chunks to the index. The batch is
// appended in order; the index is never rebuilt, so indexing a document is
// linear in its total chunk count.
func (x *DiskIndex) Append(chunks []*schema.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
		if x.dim == 0 {
			x.dim = len(chunk.Embedding)
		} else if len(chunk.Embedding) != x.dim {
			return fmt.Errorf("chunk %s embedding dimension %d does not match index dimension %d",
				chunk.ID, len(chunk.Embedding), x.dim)
		}
		x.chunks = append(x.chunks, chunk)
		x.norms = append(x.norms, vectorNorm(chunk.Embedding))
	}
	return nil
}

// Len returns the number of indexed chunks.
func (x *DiskIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// PageCount returns the highest source page number present in the index.
func (x *DiskIndex) PageCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	max := 0
	for _, chunk := range x.chunks {
		if n := chunk.PageNumber(); n > max {
			max = n
		}
	}
	return max
}

// Search returns the topK chunks most similar to the query embedding, in
// descending cosine-similarity order. Each result carries its similarity
// score in a private metadata copy so concurrent searches never share maps.
func (x *DiskIndex) Search(embedding []float32, topK int) ([]*schema.Chunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.chunks) == 0 {
		return nil, nil
	}
	if len(embedding) != x.dim {
		return nil, fmt.Errorf("query embedding dimension %d does not match index dimension %d", len(embedding), x.dim)
	}

	queryNorm := vectorNorm(embedding)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(x.chunks))
	for i, chunk := range x.chunks {
		scores[i] = scored{idx: i, score: cosine(embedding, queryNorm, chunk.Embedding, x.norms[i])}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]*schema.Chunk, 0, topK)
	for _, s := range scores[:topK] {
		src := x.chunks[s.idx]
		md := make(map[string]interface{}, len(src.Metadata)+1)
		for k, v := range src.Metadata {
			md[k] = v
		}
		md[schema.MetadataKeyScore] = s.score
		results = append(results, &schema.Chunk{
			ID:        src.ID,
			Text:      src.Text,
			Embedding: src.Embedding,
			Metadata:  md,
		})
	}
	return results, nil
}

// Save persists the index into dir, creating it if necessary. Writing the
// index is the last step of an ingestion pass; two racing passes for the
// same identity resolve as last-writer-wins.
func (x *DiskIndex) Save(dir string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory %s: %w", dir, err)
	}

	records := make([]chunkRecord, len(x.chunks))
	for i, chunk := range x.chunks {
		records[i] = chunkRecord{
			ID:          chunk.ID,
			Text:        chunk.Text,
			Embedding:   chunk.Embedding,
			PageNumber:  intFromMetadata(chunk.Metadata, schema.MetadataKeyPageNumber),
			ChunkNumber: intFromMetadata(chunk.Metadata, schema.MetadataKeyChunkNumber),
			Provenance:  stringFromMetadata(chunk.Metadata, schema.MetadataKeyProvenance),
		}
	}

	f, err := os.Create(filepath.Join(dir, indexFileName))
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(records); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// Load reads a previously saved index from dir. The directory must be one
// the core itself wrote under its configured index root; the format is a
// trusted-source serialization, not an interchange format.
func Load(dir string) (*DiskIndex, error) {
	f, err := os.Open(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open index in %s: %w", dir, err)
	}
	defer f.Close()

	var records []chunkRecord
	if err := gob.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode index in %s: %w", dir, err)
	}

	idx := New()
	chunks := make([]*schema.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = &schema.Chunk{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: rec.Embedding,
			Metadata: map[string]interface{}{
				schema.MetadataKeyPageNumber:  rec.PageNumber,
				schema.MetadataKeyChunkNumber: rec.ChunkNumber,
				schema.MetadataKeyProvenance:  rec.Provenance,
			},
		}
	}
	if err := idx.Append(chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func intFromMetadata(md map[string]interface{}, key string) int {
	if md == nil {
		return 0
	}
	if n, ok := md[key].(int); ok {
		return n
	}
	return 0
}

func stringFromMetadata(md map[string]interface{}, key string) string {
	if md == nil {
		return ""
	}
	if s, ok := md[key].(string); ok {
		return s
	}
	return ""
}

// compile-time check to ensure DiskIndex implements the VectorIndex interface
var _ interfaces.VectorIndex = (*DiskIndex)(nil)
