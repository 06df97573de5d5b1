package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tenderlens/internal/rag/schema"
	"tenderlens/pkg/logger"
)

// fakeLLM records the system instruction and prompt of its last call.
type fakeLLM struct {
	system string
	prompt string
	answer string
	err    error
}

func (f *fakeLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.system = system
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func retrievedChunks() []*schema.Chunk {
	return []*schema.Chunk{
		{ID: "c1", Text: "Clause 4.2: bidders must hold ISO 9001.", Metadata: map[string]interface{}{schema.MetadataKeyPageNumber: 12}},
		{ID: "c2", Text: "The contract period is 24 months.", Metadata: map[string]interface{}{schema.MetadataKeyPageNumber: 3}},
	}
}

func TestGenerationRunBuildsContract(t *testing.T) {
	llm := &fakeLLM{answer: "## 1. Executive Summary\nBody."}
	p := NewGenerationPipeline(llm, logger.New("test", ""))

	section, err := p.Run(context.Background(), SectionRequest{
		SectionType: schema.SectionExecutiveSummary,
		Format:      schema.FormatExecutiveBullets,
	}, retrievedChunks())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if section.Label != "Executive Summary" {
		t.Errorf("Label = %q", section.Label)
	}
	if section.ChunksUsed != 2 {
		t.Errorf("ChunksUsed = %d, want 2", section.ChunksUsed)
	}
	if !strings.Contains(llm.system, "[clause reference not found]") {
		t.Error("System instruction is missing the citation fallback rule")
	}
	if !strings.Contains(llm.system, "position statement") {
		t.Error("System instruction is missing the executive_bullets structure contract")
	}
	if !strings.Contains(llm.system, "350-500 words") {
		t.Error("System instruction is missing the section length target")
	}
	if !strings.Contains(llm.prompt, "tender document page 12") {
		t.Error("Prompt is missing the source page attribution")
	}
}

func TestGenerationComplianceMode(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	p := NewGenerationPipeline(llm, logger.New("test", ""))

	_, err := p.Run(context.Background(), SectionRequest{
		SectionType:    schema.SectionComplianceResponse,
		Format:         schema.FormatComplianceMatrix,
		ComplianceMode: true,
	}, retrievedChunks())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(llm.system, "Compliance mode is ON") {
		t.Error("System instruction is missing the compliance block")
	}
	if !strings.Contains(llm.system, "Requirement | Clause Reference | Our Response | Evidence") {
		t.Error("System instruction is missing the compliance matrix columns")
	}
}

func TestGenerationMasksCompanyProfile(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	p := NewGenerationPipeline(llm, logger.New("test", ""))

	_, err := p.Run(context.Background(), SectionRequest{
		SectionType:    schema.SectionCompanyProfile,
		CompanyProfile: "Acme Infra Ltd, account 123456789012, PAN ABCDE1234F",
	}, retrievedChunks())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if strings.Contains(llm.prompt, "123456789012") {
		t.Error("Unmasked account number reached the prompt")
	}
	if strings.Contains(llm.prompt, "ABCDE1234F") {
		t.Error("Unmasked PAN reached the prompt")
	}
	if !strings.Contains(llm.prompt, "Acme Infra Ltd") {
		t.Error("Non-sensitive profile content was dropped from the prompt")
	}
	if !strings.Contains(llm.prompt, "registration details") {
		t.Error("Prompt is missing the section's emphasized profile attributes")
	}
}

func TestGenerationLLMFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model overloaded")}
	p := NewGenerationPipeline(llm, logger.New("test", ""))

	_, err := p.Run(context.Background(), SectionRequest{SectionType: schema.SectionExecutiveSummary}, retrievedChunks())
	if err == nil {
		t.Fatal("Expected an error when the model call fails")
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected a *GenerationError, got %T", err)
	}
	if genErr.Section != "Executive Summary" {
		t.Errorf("GenerationError.Section = %q", genErr.Section)
	}
}

func TestSummarizeUsesFocusQuery(t *testing.T) {
	llm := &fakeLLM{answer: "  The tender covers road maintenance.  "}
	p := NewGenerationPipeline(llm, logger.New("test", ""))

	text, err := p.Summarize(context.Background(), SummaryRequest{
		Query:  "penalty clauses",
		Format: schema.FormatExecutiveBullets,
	}, retrievedChunks())
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if text != "The tender covers road maintenance." {
		t.Errorf("Summary text not trimmed: %q", text)
	}
	if !strings.Contains(llm.system, "penalty clauses") {
		t.Error("System instruction is missing the focus query")
	}
	if !strings.Contains(llm.prompt, "tender document page 12") {
		t.Error("Summary prompt is missing the source page attribution")
	}
}

func TestSummarizeDefaultQuery(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	p := NewGenerationPipeline(llm, logger.New("test", ""))

	if _, err := p.Summarize(context.Background(), SummaryRequest{}, retrievedChunks()); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !strings.Contains(llm.system, DefaultSummaryQuery) {
		t.Error("System instruction is missing the default summary focus")
	}
}
