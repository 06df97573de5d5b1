package parser

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"

	"github.com/ledongthuc/pdf"
	uniextractor "github.com/unidoc/unipdf/v3/extractor"
	unimodel "github.com/unidoc/unipdf/v3/model"
	"golang.org/x/sync/errgroup"
)

// maxExtractWorkers caps the extraction pool regardless of configuration.
// Page extraction is CPU-bound; a runaway fan-out over a large PDF must not
// exhaust the process.
const maxExtractWorkers = 4

// PDFExtractor turns raw PDF bytes into ordered pages. The primary path is
// the fast native text extractor; if it cannot read the document at all, a
// slower, more tolerant page-by-page extractor takes over.
type PDFExtractor struct {
	workers int
	log     *logger.Logger
}

// NewPDFExtractor creates a PDFExtractor with a bounded worker pool. The
// effective pool size is min(workers, GOMAXPROCS, 4).
func NewPDFExtractor(workers int, log *logger.Logger) *PDFExtractor {
	if workers <= 0 || workers > maxExtractWorkers {
		workers = maxExtractWorkers
	}
	if n := runtime.GOMAXPROCS(0); workers > n {
		workers = n
	}
	return &PDFExtractor{workers: workers, log: log}
}

// Extract produces one Page per physical page, sorted by page number.
// In fast mode, whitespace-only pages are dropped. In hybrid mode they are
// retained as pending placeholders so page-number continuity is preserved
// for the later OCR merge.
func (e *PDFExtractor) Extract(ctx context.Context, pdfBytes []byte, mode schema.ParsingMode) ([]schema.Page, error) {
	pages, err := e.extractFast(ctx, pdfBytes)
	if err != nil {
		e.log.WithStage("extract").Warn(fmt.Sprintf("Fast extraction failed (%v). Falling back to tolerant extractor.", err))
		pages, err = e.extractTolerant(pdfBytes)
		if err != nil {
			return nil, &ExtractionError{Stage: "extract", Err: err}
		}
	}

	return finishPages(pages, mode), nil
}

// finishPages restores page order after the concurrent phase and applies the
// mode's retention rule: fast mode drops unreadable pages, hybrid keeps them
// as pending placeholders for the OCR merge.
func finishPages(pages []schema.Page, mode schema.ParsingMode) []schema.Page {
	// Concurrent completion order is not guaranteed; reorder once here.
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	if mode == schema.ModeFast {
		kept := pages[:0]
		for _, p := range pages {
			if p.CharCount > 0 {
				kept = append(kept, p)
			}
		}
		return kept
	}
	return pages
}

// extractFast runs the native text extractor over all pages with a bounded
// worker pool. Per-page failures are absorbed as empty placeholder pages;
// only a document-level read failure is returned to the caller.
func (e *PDFExtractor) extractFast(ctx context.Context, pdfBytes []byte) (pages []schema.Page, err error) {
	// The native reader can panic on malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("native pdf reader panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	results := make([]schema.Page, numPages)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			results[pageNum-1] = e.extractFastPage(reader, pageNum)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// extractFastPage reads one page. Failures degrade to an empty pending
// page rather than failing the document.
func (e *PDFExtractor) extractFastPage(reader *pdf.Reader, pageNum int) (page schema.Page) {
	page = schema.Page{Number: pageNum, Provenance: schema.ProvenancePending}
	defer func() {
		if r := recover(); r != nil {
			e.log.WithStage("extract").Warn(fmt.Sprintf("Page %d extraction panicked: %v", pageNum, r))
			page = schema.Page{Number: pageNum, Provenance: schema.ProvenancePending}
		}
	}()

	p := reader.Page(pageNum)
	if p.V.IsNull() {
		return page
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		text = ""
	}

	page = buildPage(pageNum, text, pageHasImages(p), schema.ProvenanceFast)
	return page
}

// pageHasImages probes the page's XObject resources for raster images.
func pageHasImages(p pdf.Page) bool {
	res := p.Resources()
	if res.IsNull() {
		return false
	}
	xobj := res.Key("XObject")
	if xobj.IsNull() {
		return false
	}
	for _, name := range xobj.Keys() {
		if xobj.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}

// extractTolerant is the page-by-page fallback. It is slower and runs
// serially, but keeps going past individual broken pages.
func (e *PDFExtractor) extractTolerant(pdfBytes []byte) ([]schema.Page, error) {
	pdfReader, err := unimodel.NewPdfReader(bytes.NewReader(pdfBytes))
	if err != nil {
		return nil, fmt.Errorf("tolerant reader failed to open pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("tolerant reader failed to count pages: %w", err)
	}
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]schema.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text := ""
		hasImages := false

		page, err := pdfReader.GetPage(i)
		if err == nil {
			ex, exErr := uniextractor.New(page)
			if exErr == nil {
				if t, tErr := ex.ExtractText(); tErr == nil {
					text = t
				}
				if imgs, iErr := ex.ExtractPageImages(nil); iErr == nil && imgs != nil {
					hasImages = len(imgs.Images) > 0
				}
			}
		} else {
			e.log.WithStage("extract").Warn(fmt.Sprintf("Tolerant extractor skipped unreadable page %d: %v", i, err))
		}

		pages = append(pages, buildPage(i, text, hasImages, schema.ProvenanceHybrid))
	}

	return pages, nil
}

// buildPage normalizes a raw extraction result. Whitespace-only pages are
// pending placeholders regardless of which extractor produced them.
func buildPage(number int, text string, hasImages bool, provenance schema.Provenance) schema.Page {
	charCount := countTextChars(text)
	if charCount == 0 {
		return schema.Page{Number: number, HasImages: hasImages, Provenance: schema.ProvenancePending}
	}
	return schema.Page{
		Number:     number,
		Text:       text,
		CharCount:  charCount,
		HasImages:  hasImages,
		Provenance: provenance,
	}
}

// countTextChars counts non-whitespace characters.
func countTextChars(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// compile-time check to ensure PDFExtractor implements the Extractor interface
var _ interfaces.Extractor = (*PDFExtractor)(nil)
