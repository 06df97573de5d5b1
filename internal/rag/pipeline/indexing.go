package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"tenderlens/internal/parser"
	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"
	"tenderlens/internal/rag/storages/vectorstore"
	"tenderlens/pkg/logger"
)

// IndexingPipeline orchestrates one document's ingestion pass:
// extraction, classification, OCR resolution, chunking, batched embedding
// and index construction.
type IndexingPipeline struct {
	extractor  interfaces.Extractor
	classifier parser.Classifier
	ocr        *parser.OcrBatcher
	splitter   interfaces.Splitter
	embedder   interfaces.EmbeddingModel

	embedBatchSize int
	gcEveryBatches int
	log            *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	extractor interfaces.Extractor,
	classifier parser.Classifier,
	ocr *parser.OcrBatcher,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	embedBatchSize int,
	gcEveryBatches int,
	log *logger.Logger,
) *IndexingPipeline {
	if embedBatchSize <= 0 {
		embedBatchSize = 100
	}
	if gcEveryBatches <= 0 {
		gcEveryBatches = 5
	}
	return &IndexingPipeline{
		extractor:      extractor,
		classifier:     classifier,
		ocr:            ocr,
		splitter:       splitter,
		embedder:       embedder,
		embedBatchSize: embedBatchSize,
		gcEveryBatches: gcEveryBatches,
		log:            log,
	}
}

// Run executes the ingestion pipeline for one document and returns the
// built index plus the number of pages it covers.
func (p *IndexingPipeline) Run(ctx context.Context, pdfBytes []byte, identity string, mode schema.ParsingMode) (*vectorstore.DiskIndex, int, error) {
	log := p.log.WithDocument(identity)

	// 1. Extract pages.
	pages, err := p.extractor.Extract(ctx, pdfBytes, mode)
	if err != nil {
		log.WithError(err).Error("Extraction failed")
		return nil, 0, err
	}
	log.Info(fmt.Sprintf("Extracted %d pages", len(pages)))

	// 2. Resolve low-quality pages through OCR (hybrid mode only).
	if mode == schema.ModeHybrid {
		needOCR := p.classifier.SelectForOCR(pages)
		if len(needOCR) > 0 {
			log.Info(fmt.Sprintf("Routing %d pages to OCR", len(needOCR)))
			results := p.ocr.Run(ctx, pdfBytes, pages, needOCR)
			pages = parser.MergeOCRResults(pages, results)
		}
	}

	// 3. Split pages into chunks.
	chunks, err := p.splitter.Split(ctx, pages)
	if err != nil {
		log.WithError(err).Error("Failed to split pages")
		return nil, 0, err
	}
	for _, chunk := range chunks {
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]interface{})
		}
		chunk.Metadata[schema.MetadataKeyFileName] = identity
	}
	log.Info(fmt.Sprintf("Split into %d chunks", len(chunks)))

	// 4. Embed in bounded batches and append incrementally. The index only
	// ever grows by appends, so total work stays linear in chunk count.
	index := vectorstore.New()
	batchesDone := 0
	for start := 0; start < len(chunks); start += p.embedBatchSize {
		end := start + p.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			log.WithError(err).Error("Failed to embed chunk batch")
			return nil, 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(embeddings) != len(batch) {
			return nil, 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(batch))
		}
		for i, chunk := range batch {
			chunk.Embedding = embeddings[i]
		}

		if err := index.Append(batch); err != nil {
			return nil, 0, fmt.Errorf("failed to extend index: %w", err)
		}

		batchesDone++
		if batchesDone%p.gcEveryBatches == 0 {
			// Bound peak memory across long embedding runs.
			runtime.GC()
		}
	}

	log.Info(fmt.Sprintf("Indexed %d chunks over %d pages", index.Len(), len(pages)))
	return index, len(pages), nil
}
