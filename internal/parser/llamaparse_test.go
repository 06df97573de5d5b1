package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestParseFileSuccess(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/parsing/upload":
			w.Write([]byte(`{"id": "job-1", "status": "PENDING"}`))
		case "/api/parsing/job/job-1":
			polls++
			if polls < 2 {
				w.Write([]byte(`{"id": "job-1", "status": "PENDING"}`))
			} else {
				w.Write([]byte(`{"id": "job-1", "status": "SUCCESS"}`))
			}
		case "/api/parsing/job/job-1/result/json":
			w.Write([]byte(`{"pages": [{"page": 1, "md": "first"}, {"page": 2, "md": "second"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewLlamaParseClient(server.URL, "key", 10*time.Millisecond, 5*time.Second)
	outcome := client.ParseFile(context.Background(), writeTempFile(t))

	if outcome.Status != ParseOK {
		t.Fatalf("Expected ParseOK, got status %d (err: %v)", outcome.Status, outcome.Err)
	}
	if len(outcome.Pages) != 2 || outcome.Pages[0] != "first" || outcome.Pages[1] != "second" {
		t.Errorf("Unexpected pages: %v", outcome.Pages)
	}
}

func TestParseFileRemoteJobError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/parsing/upload":
			w.Write([]byte(`{"id": "job-2", "status": "PENDING"}`))
		case "/api/parsing/job/job-2":
			w.Write([]byte(`{"id": "job-2", "status": "ERROR", "error_code": "PARSE_FAILED"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewLlamaParseClient(server.URL, "key", 10*time.Millisecond, 5*time.Second)
	outcome := client.ParseFile(context.Background(), writeTempFile(t))

	if outcome.Status != ParseFailure {
		t.Fatalf("Expected ParseFailure, got status %d", outcome.Status)
	}
	if outcome.Err == nil {
		t.Error("Expected an underlying error for a failed job")
	}
}

func TestParseFileEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/parsing/upload":
			w.Write([]byte(`{"id": "job-3", "status": "PENDING"}`))
		case "/api/parsing/job/job-3":
			w.Write([]byte(`{"id": "job-3", "status": "SUCCESS"}`))
		case "/api/parsing/job/job-3/result/json":
			w.Write([]byte(`{"pages": []}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewLlamaParseClient(server.URL, "key", 10*time.Millisecond, 5*time.Second)
	outcome := client.ParseFile(context.Background(), writeTempFile(t))

	if outcome.Status != ParseEmpty {
		t.Fatalf("Expected ParseEmpty, got status %d", outcome.Status)
	}
}

func TestParseFileNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewLlamaParseClient(server.URL, "bad-key", 10*time.Millisecond, 5*time.Second)
	outcome := client.ParseFile(context.Background(), writeTempFile(t))

	if outcome.Status != ParseFailure {
		t.Fatalf("Expected ParseFailure on non-200 response, got status %d", outcome.Status)
	}
}
