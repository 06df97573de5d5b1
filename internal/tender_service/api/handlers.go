package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"tenderlens/internal/rag/schema"
	"tenderlens/internal/tender_service/service"
	"tenderlens/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TenderService is the surface the HTTP layer needs from the core service.
type TenderService interface {
	Ingest(ctx context.Context, pdfBytes []byte, documentName string, mode schema.ParsingMode) (service.IngestResult, error)
	GenerateSection(ctx context.Context, req service.GenerateSectionRequest) (schema.GeneratedSection, error)
	Summarize(ctx context.Context, req service.SummarizeRequest) (service.SummaryResult, error)
}

// API provides handlers for the tender service.
type API struct {
	service TenderService
	logger  *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(service TenderService, logger *logger.Logger) *API {
	return &API{service: service, logger: logger}
}

var validSectionTypes = map[schema.SectionType]bool{
	schema.SectionExecutiveSummary:   true,
	schema.SectionTechnicalApproach:  true,
	schema.SectionCompanyProfile:     true,
	schema.SectionComplianceResponse: true,
	schema.SectionPastPerformance:    true,
}

var validFormats = map[schema.OutputFormat]bool{
	"":                              true,
	schema.FormatExecutiveBullets:   true,
	schema.FormatTechnicalNarrative: true,
	schema.FormatComplianceMatrix:   true,
}

var validDepths = map[schema.Depth]bool{
	"":                  true,
	schema.DepthStandard: true,
	schema.DepthDeepDive: true,
}

var validModes = map[schema.ParsingMode]bool{
	"":               true,
	schema.ModeFast:   true,
	schema.ModeHybrid: true,
}

// IngestHandler handles the upload and indexing of a tender PDF.
func (a *API) IngestHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'file' upload"})
		return
	}

	mode := schema.ParsingMode(c.PostForm("parsing_mode"))
	if !validModes[mode] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parsing_mode; use 'fast' or 'hybrid'"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer f.Close()

	pdfBytes, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}

	result, err := a.service.Ingest(c.Request.Context(), pdfBytes, fileHeader.Filename, mode)
	if err != nil {
		if errors.Is(err, service.ErrNotPDF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file is not a PDF"})
			return
		}
		// The service layer already logged the detailed error
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest document"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateSectionHandler drafts one bid-response section for an ingested document.
func (a *API) GenerateSectionHandler(c *gin.Context) {
	var payload struct {
		DocumentName   string `json:"document_name"`
		SectionType    string `json:"section_type"`
		OutputFormat   string `json:"output_format"`
		Tone           string `json:"tone"`
		ComplianceMode bool   `json:"compliance_mode"`
		CompanyProfile string `json:"company_profile"`
		Depth          string `json:"depth"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if payload.DocumentName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_name is required"})
		return
	}
	if !validSectionTypes[schema.SectionType(payload.SectionType)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown section_type"})
		return
	}
	if !validFormats[schema.OutputFormat(payload.OutputFormat)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown output_format"})
		return
	}
	if !validDepths[schema.Depth(payload.Depth)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown depth"})
		return
	}

	section, err := a.service.GenerateSection(c.Request.Context(), service.GenerateSectionRequest{
		DocumentName:   payload.DocumentName,
		SectionType:    schema.SectionType(payload.SectionType),
		Format:         schema.OutputFormat(payload.OutputFormat),
		Tone:           payload.Tone,
		ComplianceMode: payload.ComplianceMode,
		CompanyProfile: payload.CompanyProfile,
		Depth:          schema.Depth(payload.Depth),
	})
	if err != nil {
		if errors.Is(err, service.ErrIndexNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not ingested"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate section"})
		return
	}

	c.JSON(http.StatusOK, section)
}

// SummarizeHandler produces a document-level summary for an ingested document.
func (a *API) SummarizeHandler(c *gin.Context) {
	var payload struct {
		DocumentName string `json:"document_name"`
		Query        string `json:"query"`
		OutputFormat string `json:"output_format"`
		Depth        string `json:"depth"`
		ParsingMode  string `json:"parsing_mode"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if payload.DocumentName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_name is required"})
		return
	}
	if !validFormats[schema.OutputFormat(payload.OutputFormat)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown output_format"})
		return
	}
	if !validDepths[schema.Depth(payload.Depth)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown depth"})
		return
	}
	if !validModes[schema.ParsingMode(payload.ParsingMode)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parsing_mode; use 'fast' or 'hybrid'"})
		return
	}

	result, err := a.service.Summarize(c.Request.Context(), service.SummarizeRequest{
		DocumentName: payload.DocumentName,
		Query:        payload.Query,
		Format:       schema.OutputFormat(payload.OutputFormat),
		Depth:        schema.Depth(payload.Depth),
		Mode:         schema.ParsingMode(payload.ParsingMode),
	})
	if err != nil {
		if errors.Is(err, service.ErrIndexNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not ingested"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize document"})
		return
	}

	c.JSON(http.StatusOK, result)
}
