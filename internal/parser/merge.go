package parser

import "tenderlens/internal/rag/schema"

// MergeOCRResults replaces the text and provenance of pages resolved by the
// OCR phase, returning a new slice in page order. Page identity never
// changes; only a placeholder's content is filled in. Pages absent from
// results are carried over untouched.
func MergeOCRResults(pages []schema.Page, results map[int]OcrResult) []schema.Page {
	merged := make([]schema.Page, len(pages))
	for i, p := range pages {
		if res, ok := results[p.Number]; ok {
			p.Text = res.Text
			p.Provenance = res.Provenance
			p.CharCount = countTextChars(res.Text)
		}
		merged[i] = p
	}
	return merged
}
