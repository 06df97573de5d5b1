package parser

import "tenderlens/internal/rag/schema"

// Classifier decides per page whether the natively extracted text is
// trustworthy or the page must be routed to OCR. This is a heuristic:
// missed scanned content and unnecessary OCR spend are both tolerated.
type Classifier struct {
	// MinTextChars is the minimum non-whitespace character count below
	// which a page's native text is not trusted.
	MinTextChars int
}

// NeedsOCR reports whether the page must be routed to the heavyweight OCR
// path. A page is flagged when its text is too short OR when it embeds
// raster images: even with decent native text, the images may carry the
// real content (tables, stamps, scanned inserts).
func (c Classifier) NeedsOCR(p schema.Page) bool {
	if p.Provenance == schema.ProvenancePending {
		return true
	}
	return p.CharCount < c.MinTextChars || p.HasImages
}

// SelectForOCR returns the page numbers of all pages needing OCR, in page order.
func (c Classifier) SelectForOCR(pages []schema.Page) []int {
	var selected []int
	for _, p := range pages {
		if c.NeedsOCR(p) {
			selected = append(selected, p.Number)
		}
	}
	return selected
}
