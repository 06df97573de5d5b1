package parser

import (
	"context"
	"errors"
	"testing"

	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"
)

func TestCountTextChars(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"abc", 3},
		{"a b\nc", 3},
		{"清单 list", 6},
	}
	for _, tc := range cases {
		if got := countTextChars(tc.in); got != tc.want {
			t.Errorf("countTextChars(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBuildPage(t *testing.T) {
	p := buildPage(3, "Clause 1.", true, schema.ProvenanceFast)
	if p.Number != 3 || p.CharCount != 8 || !p.HasImages {
		t.Errorf("buildPage result = %+v", p)
	}
	if p.Provenance != schema.ProvenanceFast {
		t.Errorf("Provenance = %q, want %q", p.Provenance, schema.ProvenanceFast)
	}

	empty := buildPage(4, "   \n  ", false, schema.ProvenanceFast)
	if empty.Provenance != schema.ProvenancePending {
		t.Errorf("Whitespace-only page provenance = %q, want %q", empty.Provenance, schema.ProvenancePending)
	}
	if empty.Text != "" || empty.CharCount != 0 {
		t.Errorf("Whitespace-only page was not reduced to a placeholder: %+v", empty)
	}
}

func TestNewPDFExtractorBoundsWorkers(t *testing.T) {
	e := NewPDFExtractor(64, logger.New("test", ""))
	if e.workers > maxExtractWorkers {
		t.Errorf("workers = %d, cap is %d", e.workers, maxExtractWorkers)
	}
	e = NewPDFExtractor(0, logger.New("test", ""))
	if e.workers < 1 {
		t.Errorf("workers = %d, want at least 1", e.workers)
	}
}

func TestFinishPagesOrdersAndFilters(t *testing.T) {
	// Completion order of the concurrent phase is arbitrary.
	scrambled := []schema.Page{
		{Number: 3, Text: "three", CharCount: 5, Provenance: schema.ProvenanceFast},
		{Number: 1, Text: "one", CharCount: 3, Provenance: schema.ProvenanceFast},
		{Number: 2, Provenance: schema.ProvenancePending},
		{Number: 4, Text: "four", CharCount: 4, Provenance: schema.ProvenanceFast},
	}

	hybrid := finishPages(append([]schema.Page(nil), scrambled...), schema.ModeHybrid)
	if len(hybrid) != 4 {
		t.Fatalf("Hybrid mode kept %d pages, want all 4", len(hybrid))
	}
	for i, p := range hybrid {
		if p.Number != i+1 {
			t.Errorf("Hybrid page at position %d has number %d", i, p.Number)
		}
	}

	fast := finishPages(append([]schema.Page(nil), scrambled...), schema.ModeFast)
	if len(fast) != 3 {
		t.Fatalf("Fast mode kept %d pages, want 3", len(fast))
	}
	for _, p := range fast {
		if p.CharCount == 0 {
			t.Errorf("Fast mode kept unreadable page %d", p.Number)
		}
	}
}

func TestExtractRejectsGarbageBytes(t *testing.T) {
	e := NewPDFExtractor(2, logger.New("test", ""))
	_, err := e.Extract(context.Background(), []byte("not a pdf at all"), schema.ModeFast)
	if err == nil {
		t.Fatal("Expected an error for unparseable bytes")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("Expected an *ExtractionError, got %T", err)
	}
}
