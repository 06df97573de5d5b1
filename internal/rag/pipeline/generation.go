package pipeline

import (
	"context"
	"fmt"
	"strings"

	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"
)

// GenerationError reports that the external generative model call failed.
// It is surfaced to the caller as a request failure and never leaks
// retrieved document content.
type GenerationError struct {
	Section string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for section %q: %v", e.Section, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SectionRequest carries the generation parameters for one bid-response
// section. It is ephemeral: the core never persists it.
type SectionRequest struct {
	SectionType    schema.SectionType
	Format         schema.OutputFormat
	Tone           string
	ComplianceMode bool
	CompanyProfile string
}

// GenerationPipeline composes the domain prompt from retrieved context and
// calls the generative model once per request.
type GenerationPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewGenerationPipeline creates a new GenerationPipeline.
func NewGenerationPipeline(llm interfaces.LLM, log *logger.Logger) *GenerationPipeline {
	return &GenerationPipeline{llm: llm, log: log}
}

// sectionLabels maps section types to their human-readable labels.
var sectionLabels = map[schema.SectionType]string{
	schema.SectionExecutiveSummary:   "Executive Summary",
	schema.SectionTechnicalApproach:  "Technical Approach & Methodology",
	schema.SectionCompanyProfile:     "Company Profile & Credentials",
	schema.SectionComplianceResponse: "Compliance Response",
	schema.SectionPastPerformance:    "Past Performance & References",
}

// sectionLengthTargets maps section types to word-count targets.
var sectionLengthTargets = map[schema.SectionType]string{
	schema.SectionExecutiveSummary:   "350-500 words",
	schema.SectionTechnicalApproach:  "700-1000 words",
	schema.SectionCompanyProfile:     "400-600 words",
	schema.SectionComplianceResponse: "500-800 words",
	schema.SectionPastPerformance:    "400-600 words",
}

// sectionProfileFields restricts which company-profile attributes each
// section type emphasizes. The full masked profile is still provided; the
// prompt directs attention to the relevant fields only.
var sectionProfileFields = map[schema.SectionType][]string{
	schema.SectionExecutiveSummary:   {"company name", "years in business", "core service lines"},
	schema.SectionTechnicalApproach:  {"technical certifications", "methodologies", "tooling and equipment"},
	schema.SectionCompanyProfile:     {"company name", "registration details", "organization size", "office locations"},
	schema.SectionComplianceResponse: {"licenses", "certifications", "insurance coverage", "statutory registrations"},
	schema.SectionPastPerformance:    {"completed projects", "client references", "contract values"},
}

// Run generates one section from the retrieved chunks. The company profile
// is passed through sensitive-data masking before it can reach the prompt.
func (p *GenerationPipeline) Run(ctx context.Context, req SectionRequest, chunks []*schema.Chunk) (schema.GeneratedSection, error) {
	label := sectionLabels[req.SectionType]
	if label == "" {
		label = string(req.SectionType)
	}

	p.log.WithStage("generation").Info(fmt.Sprintf("Generating section %q from %d chunks", label, len(chunks)))

	system := buildSystemInstruction(req, label)
	prompt := buildPrompt(req, label, chunks)

	answer, err := p.llm.Generate(ctx, system, prompt)
	if err != nil {
		p.log.WithStage("generation").Error(fmt.Sprintf("LLM call failed: %v", err))
		return schema.GeneratedSection{}, &GenerationError{Section: label, Err: err}
	}

	return schema.GeneratedSection{
		Label:      label,
		Markdown:   strings.TrimSpace(answer),
		ChunksUsed: len(chunks),
	}, nil
}

// buildSystemInstruction encodes the generation contract: output structure,
// citation rules, grounding rules and the length target.
func buildSystemInstruction(req SectionRequest, label string) string {
	var sb strings.Builder

	sb.WriteString("You are a bid-response writer for competitive tender submissions. ")
	sb.WriteString(fmt.Sprintf("Draft the %q section of a bid response using only the tender context provided.\n\n", label))

	sb.WriteString("Output structure:\n")
	sb.WriteString(formatContract(req.Format))
	sb.WriteString("- Number headings hierarchically (1., 1.1, 1.1.1) and keep the numbering consistent.\n\n")

	sb.WriteString("Citation rules:\n")
	sb.WriteString("- When a statement relies on a tender requirement, cite the literal clause or article number as it appears in the context (e.g. \"Clause 4.2\", \"Article 12(b)\").\n")
	sb.WriteString("- If no clause or article number is present for a requirement, cite it as [clause reference not found].\n")
	sb.WriteString("- Never cite internal identifiers, chunk numbers or page positions.\n\n")

	sb.WriteString("Grounding rules:\n")
	sb.WriteString("- Use only facts present in the context or the company profile.\n")
	sb.WriteString("- Where required data is missing, insert a placeholder token such as [TO BE CONFIRMED: delivery timeline] instead of inventing a value.\n\n")

	if req.ComplianceMode {
		sb.WriteString("Compliance mode is ON:\n")
		sb.WriteString("- Address every mandatory requirement found in the context explicitly, one by one.\n")
		sb.WriteString("- State conformance as \"Complies\", \"Partially complies\" or \"Does not comply\" and justify each.\n\n")
	}

	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}
	sb.WriteString(fmt.Sprintf("Write in a %s tone. ", tone))

	target := sectionLengthTargets[req.SectionType]
	if target == "" {
		target = "400-600 words"
	}
	sb.WriteString(fmt.Sprintf("Target length: %s.", target))

	return sb.String()
}

// formatContract renders the structural requirements of an output format.
func formatContract(format schema.OutputFormat) string {
	switch format {
	case schema.FormatExecutiveBullets:
		return "- Open with a two-sentence position statement, then concise bullet points grouped under short bold headings.\n"
	case schema.FormatComplianceMatrix:
		return "- Present the body as a markdown table with columns: Requirement | Clause Reference | Our Response | Evidence.\n" +
			"- Precede the table with a one-paragraph introduction and follow it with a short exceptions list.\n"
	default: // FormatTechnicalNarrative
		return "- Write flowing technical prose under numbered headings, with a markdown table for any enumerable commitments (deliverables, milestones, SLAs).\n"
	}
}

// buildPrompt assembles the user prompt: retrieved context blocks, the
// masked company profile, and the drafting instruction.
func buildPrompt(req SectionRequest, label string, chunks []*schema.Chunk) string {
	var sb strings.Builder

	sb.WriteString("Tender context:\n")
	for i, chunk := range chunks {
		sb.WriteString("---\n")
		if page := chunk.PageNumber(); page > 0 {
			sb.WriteString(fmt.Sprintf("Context %d (tender document page %d):\n%s\n", i+1, page, chunk.Text))
		} else {
			sb.WriteString(fmt.Sprintf("Context %d:\n%s\n", i+1, chunk.Text))
		}
	}
	sb.WriteString("---\n\n")

	if req.CompanyProfile != "" {
		// Defense in depth: mask here even if the caller already masked.
		sb.WriteString("Company profile (sensitive identifiers redacted):\n")
		sb.WriteString(MaskSensitive(req.CompanyProfile))
		sb.WriteString("\n\n")

		if fields := sectionProfileFields[req.SectionType]; len(fields) > 0 {
			sb.WriteString(fmt.Sprintf("For this section, emphasize these profile attributes: %s.\n\n", strings.Join(fields, ", ")))
		}
	}

	sb.WriteString(fmt.Sprintf("Draft the %q section now.", label))
	return sb.String()
}
