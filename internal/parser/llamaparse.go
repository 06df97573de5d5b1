package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ParseStatus is the tagged outcome of one external parse call. Fallback
// logic dispatches on these variants, never on error-string matching.
type ParseStatus int

const (
	// ParseOK means the parser returned usable per-page text.
	ParseOK ParseStatus = iota
	// ParseFailure means the call or the remote job failed.
	ParseFailure
	// ParseEmpty means the call succeeded but returned no text.
	ParseEmpty
)

// ParseOutcome carries the result of parsing one sub-document.
type ParseOutcome struct {
	Status ParseStatus
	// Pages holds per-page markdown in sub-document order. Populated only
	// when Status is ParseOK.
	Pages []string
	// Err holds the underlying failure when Status is ParseFailure.
	Err error
}

// OcrParser is the interface to the external vision-capable document parser.
type OcrParser interface {
	ParseFile(ctx context.Context, path string) ParseOutcome
}

// LlamaParseClient submits PDF sub-documents to the LlamaParse REST API:
// upload, poll the job until it settles, then fetch the per-page result.
type LlamaParseClient struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewLlamaParseClient creates a client with an enforced per-request timeout.
func NewLlamaParseClient(baseURL, apiKey string, pollInterval, timeout time.Duration) *LlamaParseClient {
	return &LlamaParseClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
	}
}

type llamaJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_code"`
}

type llamaResultResponse struct {
	Pages []struct {
		Page     int    `json:"page"`
		Markdown string `json:"md"`
	} `json:"pages"`
}

// ParseFile uploads the file, waits for the remote job to settle, and
// returns a tagged outcome. It never returns a bare Go error: every failure
// mode maps to a variant the batcher can dispatch on.
func (c *LlamaParseClient) ParseFile(ctx context.Context, path string) ParseOutcome {
	jobID, err := c.upload(ctx, path)
	if err != nil {
		return ParseOutcome{Status: ParseFailure, Err: err}
	}

	if err := c.waitForJob(ctx, jobID); err != nil {
		return ParseOutcome{Status: ParseFailure, Err: err}
	}

	pages, err := c.fetchResult(ctx, jobID)
	if err != nil {
		return ParseOutcome{Status: ParseFailure, Err: err}
	}
	if len(pages) == 0 {
		return ParseOutcome{Status: ParseEmpty}
	}
	return ParseOutcome{Status: ParseOK, Pages: pages}
}

// upload submits the file as multipart form data and returns the job id.
func (c *LlamaParseClient) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to copy file into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/parsing/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var job llamaJobResponse
	if err := c.doJSON(req, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("upload response carried no job id")
	}
	return job.ID, nil
}

// waitForJob polls the job until it reports SUCCESS, fails, or the context
// expires.
func (c *LlamaParseClient) waitForJob(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/parsing/job/"+jobID, nil)
		if err != nil {
			return fmt.Errorf("failed to create poll request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		var job llamaJobResponse
		if err := c.doJSON(req, &job); err != nil {
			return err
		}

		switch job.Status {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED":
			return fmt.Errorf("remote parse job %s ended with status %s (%s)", jobID, job.Status, job.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchResult retrieves the per-page markdown of a finished job.
func (c *LlamaParseClient) fetchResult(ctx context.Context, jobID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/parsing/job/"+jobID+"/result/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create result request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result llamaResultResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	pages := make([]string, 0, len(result.Pages))
	for _, p := range result.Pages {
		pages = append(pages, p.Markdown)
	}
	return pages, nil
}

func (c *LlamaParseClient) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call parse api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("parse api returned non-200 status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode parse api response: %w", err)
	}
	return nil
}

// compile-time check to ensure LlamaParseClient implements the OcrParser interface
var _ OcrParser = (*LlamaParseClient)(nil)
