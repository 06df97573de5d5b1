package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenderlens/internal/config"
	"tenderlens/internal/rag/pipeline"
	"tenderlens/internal/rag/schema"
	"tenderlens/internal/rag/storages/indexcache"
	"tenderlens/internal/rag/storages/vectorstore"
	"tenderlens/internal/tender_service/store"
	"tenderlens/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
)

// ErrIndexNotFound is returned when generation or summarization is
// requested against a document identity with no cached index.
var ErrIndexNotFound = errors.New("no cached index for document; ingest it first")

// ErrNotPDF is returned when an uploaded payload is not a PDF.
var ErrNotPDF = errors.New("uploaded file is not a PDF")

// IngestResult is the outcome of one ingestion request.
type IngestResult struct {
	Cached    bool `json:"cached"`
	PageCount int  `json:"page_count"`
}

// GenerateSectionRequest carries one section-generation request. It is
// ephemeral: the core never persists it.
type GenerateSectionRequest struct {
	DocumentName   string
	SectionType    schema.SectionType
	Format         schema.OutputFormat
	Tone           string
	ComplianceMode bool
	CompanyProfile string
	Depth          schema.Depth
}

// SummarizeRequest carries one document-summary request. Either PDFBytes or
// a previously ingested DocumentName must be provided.
type SummarizeRequest struct {
	DocumentName string
	PDFBytes     []byte
	Query        string
	Format       schema.OutputFormat
	Depth        schema.Depth
	Mode         schema.ParsingMode
}

// SummaryResult is the outcome of one summary request.
type SummaryResult struct {
	SummaryText    string `json:"summary_text"`
	ProcessingTime string `json:"processing_time"`
	Cached         bool   `json:"cached"`
}

// sectionQueries maps each section type to the retrieval query used to
// pull its supporting tender context.
var sectionQueries = map[schema.SectionType]string{
	schema.SectionExecutiveSummary:   "project objectives, scope of work, contract value, timeline and strategic priorities",
	schema.SectionTechnicalApproach:  "technical requirements, specifications, methodology, deliverables and performance standards",
	schema.SectionCompanyProfile:     "bidder eligibility, qualification criteria, required experience and organizational capacity",
	schema.SectionComplianceResponse: "mandatory requirements, compliance clauses, statutory obligations, penalties and submission conditions",
	schema.SectionPastPerformance:    "experience requirements, similar project criteria, reference requirements and completion certificates",
}

// Service exposes the boundary operations of the ingestion and generation
// core. All model handles are injected at construction; the service holds
// no lazily created global state.
type Service struct {
	retrievalCfg config.RetrievalConfig

	indexing   *pipeline.IndexingPipeline
	retrieval  *pipeline.RetrievalPipeline
	generation *pipeline.GenerationPipeline

	cache     *indexcache.Cache
	archive   *store.PDFArchive   // optional; nil disables source archival
	summaries *store.SummaryCache // optional; nil disables summary caching

	log *logger.Logger
}

// NewService creates the service. archive and summaries may be nil; the
// corresponding features then degrade (no by-name summarize bootstrap, no
// summary cache) without affecting the rest of the pipeline.
func NewService(
	retrievalCfg config.RetrievalConfig,
	indexing *pipeline.IndexingPipeline,
	retrieval *pipeline.RetrievalPipeline,
	generation *pipeline.GenerationPipeline,
	cache *indexcache.Cache,
	archive *store.PDFArchive,
	summaries *store.SummaryCache,
	log *logger.Logger,
) *Service {
	return &Service{
		retrievalCfg: retrievalCfg,
		indexing:     indexing,
		retrieval:    retrieval,
		generation:   generation,
		cache:        cache,
		archive:      archive,
		summaries:    summaries,
		log:          log,
	}
}

// Ingest builds and persists the index for a document. Re-submitting a
// document whose identity already has a persisted index short-circuits:
// no extraction, chunking or embedding work is repeated.
func (s *Service) Ingest(ctx context.Context, pdfBytes []byte, documentName string, mode schema.ParsingMode) (IngestResult, error) {
	if !mimetype.Detect(pdfBytes).Is("application/pdf") {
		return IngestResult{}, ErrNotPDF
	}
	if mode == "" {
		mode = schema.ModeHybrid
	}

	identity := indexcache.SanitizeIdentity(documentName)
	log := s.log.WithDocument(identity)

	if s.cache.Exists(identity) {
		log.Info("Index already cached. Skipping ingestion.")
		index, err := vectorstore.Load(s.cache.PathFor(identity))
		if err != nil {
			// The directory exists but the index is unreadable; rebuild.
			log.WithError(err).Warn("Cached index unreadable. Rebuilding.")
		} else {
			return IngestResult{Cached: true, PageCount: index.PageCount()}, nil
		}
	}

	if s.archive != nil {
		if err := s.archive.Put(ctx, identity, pdfBytes); err != nil {
			// Archival is best effort; ingestion proceeds without it.
			log.WithError(err).Warn("Failed to archive source PDF")
		}
	}

	index, pageCount, err := s.indexing.Run(ctx, pdfBytes, identity, mode)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingestion failed for document %q: %w", identity, err)
	}

	if err := index.Save(s.cache.PathFor(identity)); err != nil {
		return IngestResult{}, fmt.Errorf("failed to persist index for document %q: %w", identity, err)
	}

	log.Info(fmt.Sprintf("Ingestion complete: %d pages indexed", pageCount))
	return IngestResult{Cached: false, PageCount: pageCount}, nil
}

// GenerateSection drafts one bid-response section against a previously
// ingested document.
func (s *Service) GenerateSection(ctx context.Context, req GenerateSectionRequest) (schema.GeneratedSection, error) {
	identity := indexcache.SanitizeIdentity(req.DocumentName)
	if !s.cache.Exists(identity) {
		return schema.GeneratedSection{}, fmt.Errorf("document %q: %w", identity, ErrIndexNotFound)
	}

	index, err := vectorstore.Load(s.cache.PathFor(identity))
	if err != nil {
		return schema.GeneratedSection{}, fmt.Errorf("failed to load index for document %q: %w", identity, err)
	}

	query := sectionQueries[req.SectionType]
	if query == "" {
		query = string(req.SectionType)
	}

	retrieveK, finalK := s.depthK(req.Depth)
	chunks, err := s.retrieval.Run(ctx, index, query, retrieveK, finalK)
	if err != nil {
		return schema.GeneratedSection{}, err
	}

	return s.generation.Run(ctx, pipeline.SectionRequest{
		SectionType:    req.SectionType,
		Format:         req.Format,
		Tone:           req.Tone,
		ComplianceMode: req.ComplianceMode,
		CompanyProfile: req.CompanyProfile,
	}, chunks)
}

// Summarize produces a document-level summary. It accepts either raw PDF
// bytes (ingesting them if needed) or the name of a previously ingested
// document; with an archive configured, a known name is enough even when
// its index was invalidated.
func (s *Service) Summarize(ctx context.Context, req SummarizeRequest) (SummaryResult, error) {
	start := time.Now()
	identity := indexcache.SanitizeIdentity(req.DocumentName)

	var cacheKey string
	if s.summaries != nil {
		cacheKey = s.summaries.Key(identity, req.Query, string(req.Format), string(req.Depth))
		if text, ok := s.summaries.Get(ctx, cacheKey); ok {
			return SummaryResult{SummaryText: text, ProcessingTime: time.Since(start).String(), Cached: true}, nil
		}
	}

	if !s.cache.Exists(identity) {
		pdfBytes := req.PDFBytes
		if len(pdfBytes) == 0 && s.archive != nil {
			fetched, err := s.archive.Fetch(ctx, identity)
			if err == nil {
				pdfBytes = fetched
			}
		}
		if len(pdfBytes) == 0 {
			return SummaryResult{}, fmt.Errorf("document %q: %w", identity, ErrIndexNotFound)
		}
		if _, err := s.Ingest(ctx, pdfBytes, req.DocumentName, req.Mode); err != nil {
			return SummaryResult{}, err
		}
	}

	index, err := vectorstore.Load(s.cache.PathFor(identity))
	if err != nil {
		return SummaryResult{}, fmt.Errorf("failed to load index for document %q: %w", identity, err)
	}

	query := req.Query
	if query == "" {
		query = pipeline.DefaultSummaryQuery
	}

	retrieveK, finalK := s.depthK(req.Depth)
	chunks, err := s.retrieval.Run(ctx, index, query, retrieveK, finalK)
	if err != nil {
		return SummaryResult{}, err
	}

	text, err := s.generation.Summarize(ctx, pipeline.SummaryRequest{Query: req.Query, Format: req.Format}, chunks)
	if err != nil {
		return SummaryResult{}, err
	}

	if s.summaries != nil {
		s.summaries.Set(ctx, cacheKey, text)
	}

	return SummaryResult{SummaryText: text, ProcessingTime: time.Since(start).String(), Cached: false}, nil
}

// depthK maps a retrieval depth to (broad candidate count, final count).
func (s *Service) depthK(depth schema.Depth) (int, int) {
	if depth == schema.DepthDeepDive {
		return s.retrievalCfg.DeepK, s.retrievalCfg.DeepFinalK
	}
	return s.retrievalCfg.StandardK, s.retrievalCfg.StandardFinalK
}
