package schema

// Provenance records which extraction path produced a page's text.
type Provenance string

const (
	// ProvenanceFast marks text produced by the native text extractor.
	ProvenanceFast Provenance = "fast"
	// ProvenanceHybrid marks text produced by the tolerant page-by-page fallback extractor.
	ProvenanceHybrid Provenance = "hybrid"
	// ProvenanceOCR marks text produced by the external vision parser.
	ProvenanceOCR Provenance = "ocr"
	// ProvenanceOCRFallback marks text recovered after an OCR batch failed or misaligned.
	ProvenanceOCRFallback Provenance = "ocr-fallback"
	// ProvenancePending marks a placeholder page awaiting OCR resolution.
	ProvenancePending Provenance = "pending"
)

// ParsingMode selects between native-only and hybrid-OCR extraction.
type ParsingMode string

const (
	ModeFast   ParsingMode = "fast"
	ModeHybrid ParsingMode = "hybrid"
)

// OutputFormat is the structural contract requested for generated content.
type OutputFormat string

const (
	FormatExecutiveBullets   OutputFormat = "executive_bullets"
	FormatTechnicalNarrative OutputFormat = "technical_narrative"
	FormatComplianceMatrix   OutputFormat = "compliance_matrix"
)

// Depth controls retrieval breadth for summarization and generation.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthDeepDive Depth = "deep_dive"
)

// SectionType identifies which bid-response section is being drafted.
type SectionType string

const (
	SectionExecutiveSummary   SectionType = "executive_summary"
	SectionTechnicalApproach  SectionType = "technical_approach"
	SectionCompanyProfile     SectionType = "company_profile"
	SectionComplianceResponse SectionType = "compliance_response"
	SectionPastPerformance    SectionType = "past_performance"
)

const (
	// MetadataKeyFileName is the key for the source document identity.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageNumber is the key for the 1-based source page number of a chunk.
	MetadataKeyPageNumber = "page_number"
	// MetadataKeyChunkNumber is the key for the position of a chunk within its page.
	MetadataKeyChunkNumber = "chunk_number"
	// MetadataKeyProvenance is the key for the extraction path of the chunk's source page.
	MetadataKeyProvenance = "provenance"
	// MetadataKeyScore is the key under which the reranker stores its relevance score.
	MetadataKeyScore = "score"
)

// Page is the result of extracting one physical PDF page.
// Exactly one Page exists per physical page number; after the ingestion
// pass a Page is immutable. The OCR phase replaces a placeholder Page's
// text and provenance, never its identity.
type Page struct {
	// Number is the 1-based physical page number.
	Number int

	// Text is the extracted reading-order text.
	Text string

	// CharCount is the number of non-whitespace characters in Text.
	CharCount int

	// HasImages reports whether the page contains embedded raster images.
	HasImages bool

	// Provenance records which extraction path produced Text.
	Provenance Provenance
}

// Chunk is a bounded text window derived from one or more concatenated
// pages. It is the atomic unit of semantic indexing and the primary data
// carrier through the retrieval pipeline.
type Chunk struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Text is the string content of the chunk.
	Text string

	// Embedding is the vector representation of the text.
	Embedding []float32

	// Metadata holds arbitrary data about the chunk.
	// It is used to store information like file_name, page_number, provenance, etc.
	Metadata map[string]interface{}
}

// PageNumber returns the 1-based source page number carried in the chunk
// metadata, or 0 if the chunk carries none.
func (c *Chunk) PageNumber() int {
	if c.Metadata == nil {
		return 0
	}
	if n, ok := c.Metadata[MetadataKeyPageNumber].(int); ok {
		return n
	}
	return 0
}

// GeneratedSection is the output of a single generation request.
type GeneratedSection struct {
	// Label is the human-readable section label.
	Label string `json:"label"`

	// Markdown is the generated section body.
	Markdown string `json:"markdown"`

	// ChunksUsed is the number of retrieved chunks consulted during
	// generation. It does not disclose chunk content.
	ChunksUsed int `json:"chunks_used"`
}
