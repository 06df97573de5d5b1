package parser

import "fmt"

// ExtractionError reports that a document could not be parsed at all, even
// by the tolerant fallback extractor. It is fatal for the ingestion request.
type ExtractionError struct {
	Document string
	Stage    string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for document %q at stage %s: %v", e.Document, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// OcrBatchError reports that one OCR batch failed against the external
// parser. It is recovered locally by the batcher's fallback chain and never
// aborts the document; it exists so logs carry the affected page range.
type OcrBatchError struct {
	Pages []int
	Err   error
}

func (e *OcrBatchError) Error() string {
	return fmt.Sprintf("ocr batch for pages %v failed: %v", e.Pages, e.Err)
}

func (e *OcrBatchError) Unwrap() error {
	return e.Err
}
