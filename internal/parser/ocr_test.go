package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"
)

func testPages(nums ...int) (map[int]schema.Page, []schema.Page) {
	byNumber := make(map[int]schema.Page, len(nums))
	var pages []schema.Page
	for _, n := range nums {
		p := schema.Page{
			Number:     n,
			Text:       "native text of page",
			CharCount:  19,
			Provenance: schema.ProvenanceFast,
		}
		byNumber[n] = p
		pages = append(pages, p)
	}
	return byNumber, pages
}

func TestAssembleOneToOne(t *testing.T) {
	b := NewOcrBatcher(nil, 20, 2, logger.New("test", ""))
	byNumber, _ := testPages(3, 7, 9)
	batch := []int{3, 7, 9}

	out := make(map[int]OcrResult)
	b.assemble(out, byNumber, batch, ParseOutcome{Status: ParseOK, Pages: []string{"a", "b", "c"}})

	if len(out) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(out))
	}
	for i, num := range batch {
		res := out[num]
		if res.Text != []string{"a", "b", "c"}[i] {
			t.Errorf("Page %d got text %q", num, res.Text)
		}
		if res.Provenance != schema.ProvenanceOCR {
			t.Errorf("Page %d got provenance %q, want %q", num, res.Provenance, schema.ProvenanceOCR)
		}
	}
}

func TestAssembleCountMismatch(t *testing.T) {
	b := NewOcrBatcher(nil, 20, 2, logger.New("test", ""))
	byNumber, _ := testPages(4, 5, 6)
	batch := []int{4, 5, 6}

	out := make(map[int]OcrResult)
	b.assemble(out, byNumber, batch, ParseOutcome{Status: ParseOK, Pages: []string{"a", "b"}})

	first := out[4]
	if first.Text != "a\n\nb" {
		t.Errorf("Expected combined text on first page, got %q", first.Text)
	}
	if first.Provenance != schema.ProvenanceOCRFallback {
		t.Errorf("First page provenance = %q, want %q", first.Provenance, schema.ProvenanceOCRFallback)
	}
	for _, num := range []int{5, 6} {
		res := out[num]
		if res.Provenance != schema.ProvenanceOCRFallback {
			t.Errorf("Page %d provenance = %q, want %q", num, res.Provenance, schema.ProvenanceOCRFallback)
		}
		if !strings.Contains(res.Text, "native text of page") {
			t.Errorf("Page %d should fall back to native text, got %q", num, res.Text)
		}
	}
}

func TestAssembleFailureFallsBackToNativeText(t *testing.T) {
	b := NewOcrBatcher(nil, 20, 2, logger.New("test", ""))
	byNumber, _ := testPages(1, 2)
	batch := []int{1, 2}

	out := make(map[int]OcrResult)
	b.assemble(out, byNumber, batch, ParseOutcome{Status: ParseFailure, Err: errors.New("remote job failed")})

	if len(out) != 2 {
		t.Fatalf("Expected a result for every page of the failed batch, got %d", len(out))
	}
	for _, num := range batch {
		res := out[num]
		if !strings.HasPrefix(res.Text, imageNoticePrefix) {
			t.Errorf("Page %d text should carry the image notice, got %q", num, res.Text)
		}
		if res.Provenance != schema.ProvenanceOCRFallback {
			t.Errorf("Page %d provenance = %q, want %q", num, res.Provenance, schema.ProvenanceOCRFallback)
		}
	}
}

func TestAssembleFailureWithoutNativeText(t *testing.T) {
	b := NewOcrBatcher(nil, 20, 2, logger.New("test", ""))
	byNumber := map[int]schema.Page{
		1: {Number: 1, Provenance: schema.ProvenancePending},
	}

	out := make(map[int]OcrResult)
	b.assemble(out, byNumber, []int{1}, ParseOutcome{Status: ParseEmpty})

	if out[1].Text != UnextractableMarker {
		t.Errorf("Expected unextractable marker, got %q", out[1].Text)
	}
}

func TestRunWithoutParserDegradesAllPages(t *testing.T) {
	b := NewOcrBatcher(nil, 20, 2, logger.New("test", ""))
	_, pages := testPages(1, 2, 3)

	results := b.Run(context.Background(), []byte("%PDF-"), pages, []int{1, 3})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, num := range []int{1, 3} {
		if results[num].Provenance != schema.ProvenanceOCRFallback {
			t.Errorf("Page %d provenance = %q, want %q", num, results[num].Provenance, schema.ProvenanceOCRFallback)
		}
	}
	if _, ok := results[2]; ok {
		t.Error("Page 2 was not flagged for OCR but got a result")
	}
}

func TestPartition(t *testing.T) {
	batches := partition([]int{1, 2, 3, 4, 5}, 2)
	if len(batches) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(batches))
	}
	if len(batches[2]) != 1 || batches[2][0] != 5 {
		t.Errorf("Last batch = %v, want [5]", batches[2])
	}
}

func TestPageSelection(t *testing.T) {
	sel := pageSelection([]int{3, 17, 42})
	want := []string{"3", "17", "42"}
	for i := range want {
		if sel[i] != want[i] {
			t.Errorf("pageSelection[%d] = %q, want %q", i, sel[i], want[i])
		}
	}
}
