package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// UnextractableMarker is the placeholder text for a page no extraction
// path could read.
const UnextractableMarker = "[Image-based page; text could not be extracted]"

// imageNoticePrefix is prepended to native text kept for a page whose OCR
// pass was unavailable, so downstream consumers know the text is partial.
const imageNoticePrefix = "[Image-based page; native text only, may be incomplete]\n"

// OcrResult is the outcome of the OCR phase for one page.
type OcrResult struct {
	Text       string
	Provenance schema.Provenance
}

// OcrBatcher groups pages needing OCR into bounded-size sub-documents and
// submits them in parallel to the external parser. Its pool is smaller than
// the extraction pool: OCR calls are both a performance and a cost
// constraint.
type OcrBatcher struct {
	parser    OcrParser
	batchSize int
	workers   int
	log       *logger.Logger
}

// NewOcrBatcher creates an OcrBatcher.
func NewOcrBatcher(parser OcrParser, batchSize, workers int, log *logger.Logger) *OcrBatcher {
	if batchSize <= 0 {
		batchSize = 20
	}
	if workers <= 0 {
		workers = 2
	}
	return &OcrBatcher{parser: parser, batchSize: batchSize, workers: workers, log: log}
}

// Run OCRs the given page numbers of the document and returns a result for
// every requested page. Total or partial OCR failure never fails the
// document: failed pages fall back to the native text captured during the
// fast pass (the same-page-range fast-extraction result), or to an explicit
// unextractable marker.
func (b *OcrBatcher) Run(ctx context.Context, pdfBytes []byte, pages []schema.Page, needOCR []int) map[int]OcrResult {
	results := make(map[int]OcrResult, len(needOCR))
	if len(needOCR) == 0 {
		return results
	}

	byNumber := make(map[int]schema.Page, len(pages))
	for _, p := range pages {
		byNumber[p.Number] = p
	}

	if b.parser == nil {
		// OCR subsystem unavailable: degrade every pending page to native text.
		b.log.WithStage("ocr").Warn("OCR parser not configured. Degrading all flagged pages to native text.")
		for _, num := range needOCR {
			results[num] = fallbackResult(byNumber[num])
		}
		return results
	}

	batches := partition(needOCR, b.batchSize)
	batchResults := make([]map[int]OcrResult, len(batches))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			batchResults[i] = b.runBatch(gCtx, pdfBytes, byNumber, batch)
			return nil
		})
	}
	// Workers never return errors; per-batch failures are absorbed into
	// fallback results.
	_ = g.Wait()

	for _, m := range batchResults {
		for num, res := range m {
			results[num] = res
		}
	}
	return results
}

// runBatch materializes a standalone sub-PDF for one batch, submits it, and
// maps the output back to original page numbers by position. The temp
// directory is released on every exit path.
func (b *OcrBatcher) runBatch(ctx context.Context, pdfBytes []byte, byNumber map[int]schema.Page, batch []int) map[int]OcrResult {
	out := make(map[int]OcrResult, len(batch))

	tempDir, err := os.MkdirTemp("", "ocr-batch-*")
	if err != nil {
		b.fallbackBatch(out, byNumber, batch, &OcrBatchError{Pages: batch, Err: err})
		return out
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, pdfBytes, 0o644); err != nil {
		b.fallbackBatch(out, byNumber, batch, &OcrBatchError{Pages: batch, Err: err})
		return out
	}

	subPath := filepath.Join(tempDir, "batch.pdf")
	if err := api.TrimFile(sourcePath, subPath, pageSelection(batch), nil); err != nil {
		b.fallbackBatch(out, byNumber, batch, &OcrBatchError{Pages: batch, Err: err})
		return out
	}

	outcome := b.parser.ParseFile(ctx, subPath)
	b.assemble(out, byNumber, batch, outcome)
	return out
}

// assemble maps one batch outcome back to original page numbers.
func (b *OcrBatcher) assemble(out map[int]OcrResult, byNumber map[int]schema.Page, batch []int, outcome ParseOutcome) {
	switch outcome.Status {
	case ParseOK:
		if len(outcome.Pages) == len(batch) {
			// Strict 1:1 positional reassembly.
			for i, num := range batch {
				out[num] = OcrResult{Text: outcome.Pages[i], Provenance: schema.ProvenanceOCR}
			}
			return
		}
		// Result count mismatch: recoverable, never silently misaligned.
		// The whole batch text goes to the batch's first page; the rest
		// keep their fast-extraction fallback.
		b.log.WithStage("ocr").Warn(fmt.Sprintf(
			"OCR returned %d results for a %d-page batch. Assigning combined text to page %d.",
			len(outcome.Pages), len(batch), batch[0]))
		out[batch[0]] = OcrResult{
			Text:       strings.Join(outcome.Pages, "\n\n"),
			Provenance: schema.ProvenanceOCRFallback,
		}
		for _, num := range batch[1:] {
			out[num] = fallbackResult(byNumber[num])
		}

	case ParseEmpty:
		b.fallbackBatch(out, byNumber, batch, &OcrBatchError{Pages: batch, Err: fmt.Errorf("parser returned no text")})

	default:
		b.fallbackBatch(out, byNumber, batch, &OcrBatchError{Pages: batch, Err: outcome.Err})
	}
}

// fallbackBatch fills results for a failed batch from native text.
func (b *OcrBatcher) fallbackBatch(out map[int]OcrResult, byNumber map[int]schema.Page, batch []int, batchErr *OcrBatchError) {
	b.log.WithStage("ocr").WithError(batchErr).Warn("OCR batch failed. Falling back to native text for its page range.")
	for _, num := range batch {
		out[num] = fallbackResult(byNumber[num])
	}
}

// fallbackResult degrades one page to its native text with an image notice,
// or to the unextractable marker when no native text exists.
func fallbackResult(p schema.Page) OcrResult {
	if p.CharCount > 0 {
		return OcrResult{Text: imageNoticePrefix + p.Text, Provenance: schema.ProvenanceOCRFallback}
	}
	return OcrResult{Text: UnextractableMarker, Provenance: schema.ProvenanceOCRFallback}
}

// partition splits page numbers into fixed-size batches, preserving order.
func partition(pageNumbers []int, size int) [][]int {
	var batches [][]int
	for start := 0; start < len(pageNumbers); start += size {
		end := start + size
		if end > len(pageNumbers) {
			end = len(pageNumbers)
		}
		batches = append(batches, pageNumbers[start:end])
	}
	return batches
}

// pageSelection renders a batch as a pdfcpu page selection.
func pageSelection(batch []int) []string {
	sel := make([]string, len(batch))
	for i, num := range batch {
		sel[i] = strconv.Itoa(num)
	}
	return sel
}
