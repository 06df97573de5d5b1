package splitters

import (
	"context"
	"fmt"
	"strings"

	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// defaultSeparators is the boundary descent order: paragraph, line,
// sentence, word. Text that cannot be split at any of these boundaries
// is hard-split on token positions.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// RecursiveSplitter implements the Splitter interface. It splits page text
// at the coarsest boundary that still produces chunks within the token
// budget, descending to finer boundaries only where needed. Splitting is a
// pure function of its input: the same pages in the same order always
// yield the same chunks.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    *tiktoken.Tiktoken
}

// NewRecursiveSplitter creates a new RecursiveSplitter.
// It initializes a tokenizer used to measure chunk length in tokens.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) (*RecursiveSplitter, error) {
	// Using "cl100k_base" which is the tokenizer for gpt-4, gpt-3.5-turbo, and text-embedding-ada-002
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}

	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tke,
	}, nil
}

// Split splits extracted pages into chunks, preserving page order.
// Whitespace-only pages produce no chunks; no other content is dropped.
func (s *RecursiveSplitter) Split(ctx context.Context, pages []schema.Page) ([]*schema.Chunk, error) {
	var chunks []*schema.Chunk

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		pieces := s.splitText(page.Text, defaultSeparators)
		for i, piece := range pieces {
			chunks = append(chunks, &schema.Chunk{
				ID:   uuid.New().String(),
				Text: piece,
				Metadata: map[string]interface{}{
					schema.MetadataKeyPageNumber:  page.Number,
					schema.MetadataKeyChunkNumber: i + 1,
					schema.MetadataKeyProvenance:  string(page.Provenance),
				},
			})
		}
	}

	return chunks, nil
}

// splitText splits text at the first separator that occurs in it, recursing
// to finer separators for pieces that still exceed the token budget, then
// merges adjacent pieces back into maximal windows with overlap.
func (s *RecursiveSplitter) splitText(text string, separators []string) []string {
	if s.tokenLen(text) <= s.ChunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return s.splitByTokens(text)
	}

	parts := strings.SplitAfter(text, separators[0])
	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if s.tokenLen(part) > s.ChunkSize {
			pieces = append(pieces, s.splitText(part, separators[1:])...)
		} else {
			pieces = append(pieces, part)
		}
	}

	return s.merge(pieces)
}

// merge greedily combines consecutive pieces into windows of at most
// ChunkSize tokens. Each new window starts with the trailing pieces of the
// previous one, up to ChunkOverlap tokens.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		merged  []string
		current []string
		tokens  int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		merged = append(merged, strings.Join(current, ""))

		// Carry the overlap tail into the next window.
		var tail []string
		tailTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			n := s.tokenLen(current[i])
			if tailTokens+n > s.ChunkOverlap {
				break
			}
			tail = append([]string{current[i]}, tail...)
			tailTokens += n
		}
		current = tail
		tokens = tailTokens
	}

	for _, piece := range pieces {
		n := s.tokenLen(piece)
		if tokens+n > s.ChunkSize && len(current) > 0 {
			flush()
			// Shed overlap until the new piece fits the budget.
			for tokens+n > s.ChunkSize && len(current) > 0 {
				tokens -= s.tokenLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		tokens += n
	}
	if len(current) > 0 {
		merged = append(merged, strings.Join(current, ""))
	}

	return merged
}

// splitByTokens is the last-resort hard split on token positions, used for
// runs of text with no splittable boundary.
func (s *RecursiveSplitter) splitByTokens(text string) []string {
	tokens := s.tokenizer.Encode(text, nil, nil)
	step := s.ChunkSize - s.ChunkOverlap

	var out []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, s.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return out
}

func (s *RecursiveSplitter) tokenLen(text string) int {
	return len(s.tokenizer.Encode(text, nil, nil))
}

// compile-time check to ensure RecursiveSplitter implements the Splitter interface
var _ interfaces.Splitter = (*RecursiveSplitter)(nil)
