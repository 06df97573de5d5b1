package splitters

import (
	"context"
	"strings"
	"testing"

	"tenderlens/internal/rag/schema"
)

func newTestSplitter(t *testing.T, chunkSize, overlap int) *RecursiveSplitter {
	t.Helper()
	s, err := NewRecursiveSplitter(chunkSize, overlap)
	if err != nil {
		t.Fatalf("NewRecursiveSplitter() error = %v", err)
	}
	return s
}

func TestNewRecursiveSplitterRejectsOverlapNotBelowSize(t *testing.T) {
	if _, err := NewRecursiveSplitter(100, 100); err == nil {
		t.Fatal("Expected an error when overlap equals chunk size")
	}
}

func TestSplitRespectsTokenBudget(t *testing.T) {
	s := newTestSplitter(t, 50, 10)

	// Build a multi-paragraph page well beyond the budget.
	para := "The contractor shall complete all works within the stipulated period. " +
		"Liquidated damages apply for each week of delay beyond the completion date."
	page := schema.Page{
		Number:     1,
		Text:       strings.Repeat(para+"\n\n", 10),
		Provenance: schema.ProvenanceFast,
	}

	chunks, err := s.Split(context.Background(), []schema.Page{page})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected the page to split into multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if n := s.tokenLen(c.Text); n > s.ChunkSize {
			t.Errorf("Chunk %s has %d tokens, budget is %d", c.ID, n, s.ChunkSize)
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	s := newTestSplitter(t, 40, 8)
	page := schema.Page{
		Number:     1,
		Text:       strings.Repeat("Scope of work includes excavation, grading and paving. ", 20),
		Provenance: schema.ProvenanceFast,
	}

	first, err := s.Split(context.Background(), []schema.Page{page})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	second, err := s.Split(context.Background(), []schema.Page{page})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("Chunk %d text differs between runs", i)
		}
	}
}

func TestSplitCarriesMetadata(t *testing.T) {
	s := newTestSplitter(t, 512, 64)
	pages := []schema.Page{
		{Number: 4, Text: "Short page body.", Provenance: schema.ProvenanceOCR},
	}

	chunks, err := s.Split(context.Background(), pages)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}

	c := chunks[0]
	if c.ID == "" {
		t.Error("Chunk has no ID")
	}
	if c.PageNumber() != 4 {
		t.Errorf("Chunk page number = %d, want 4", c.PageNumber())
	}
	if c.Metadata[schema.MetadataKeyChunkNumber] != 1 {
		t.Errorf("Chunk number = %v, want 1", c.Metadata[schema.MetadataKeyChunkNumber])
	}
	if c.Metadata[schema.MetadataKeyProvenance] != string(schema.ProvenanceOCR) {
		t.Errorf("Chunk provenance = %v", c.Metadata[schema.MetadataKeyProvenance])
	}
}

func TestSplitSkipsWhitespaceOnlyPages(t *testing.T) {
	s := newTestSplitter(t, 512, 64)
	pages := []schema.Page{
		{Number: 1, Text: "   \n\t  ", Provenance: schema.ProvenanceFast},
		{Number: 2, Text: "Real content.", Provenance: schema.ProvenanceFast},
	}

	chunks, err := s.Split(context.Background(), pages)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageNumber() != 2 {
		t.Errorf("Surviving chunk page = %d, want 2", chunks[0].PageNumber())
	}
}

func TestSplitHardSplitsUnbrokenRuns(t *testing.T) {
	s := newTestSplitter(t, 20, 4)
	// No separator of any kind: must fall back to token-position splitting.
	page := schema.Page{
		Number:     1,
		Text:       strings.Repeat("abcdefghij", 30),
		Provenance: schema.ProvenanceFast,
	}

	chunks, err := s.Split(context.Background(), []schema.Page{page})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected an unbroken run to hard-split, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if n := s.tokenLen(c.Text); n > s.ChunkSize {
			t.Errorf("Hard-split chunk has %d tokens, budget is %d", n, s.ChunkSize)
		}
	}
}
