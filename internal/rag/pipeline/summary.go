package pipeline

import (
	"context"
	"fmt"
	"strings"

	"tenderlens/internal/rag/schema"
)

// SummaryRequest carries the parameters of a document-level summary.
type SummaryRequest struct {
	Query  string
	Format schema.OutputFormat
}

// DefaultSummaryQuery is used when the caller asks for a summary without a
// focusing question.
const DefaultSummaryQuery = "overall scope of work, key requirements, eligibility criteria, submission deadlines and evaluation criteria"

// Summarize produces a document-level summary from retrieved chunks. It
// shares the generator's grounding and citation contract but targets the
// whole document rather than one bid section.
func (p *GenerationPipeline) Summarize(ctx context.Context, req SummaryRequest, chunks []*schema.Chunk) (string, error) {
	query := req.Query
	if query == "" {
		query = DefaultSummaryQuery
	}

	p.log.WithStage("summary").Info(fmt.Sprintf("Summarizing from %d chunks", len(chunks)))

	var sb strings.Builder
	sb.WriteString("You are a tender analyst. Summarize the tender document from the context below, focused on: ")
	sb.WriteString(query)
	sb.WriteString("\n\nOutput structure:\n")
	sb.WriteString(formatContract(req.Format))
	sb.WriteString("- Cite literal clause or article numbers where present; use [clause reference not found] otherwise.\n")
	sb.WriteString("- Do not invent facts; mark missing data with [NOT STATED].\n")

	prompt := buildSummaryPrompt(query, chunks)

	answer, err := p.llm.Generate(ctx, sb.String(), prompt)
	if err != nil {
		p.log.WithStage("summary").Error(fmt.Sprintf("LLM call failed: %v", err))
		return "", &GenerationError{Section: "summary", Err: err}
	}
	return strings.TrimSpace(answer), nil
}

func buildSummaryPrompt(query string, chunks []*schema.Chunk) string {
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
	sb.WriteString(fmt.Sprintf("Question focus: %s\n\nWrite the summary now.", query))
	return sb.String()
}
