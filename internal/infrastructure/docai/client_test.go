package docai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casewise/docintel/internal/core/domain"
)

func TestClassifyParsesGatewayResponse(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		if format, _ := payload["format"].(string); format != "json" {
			t.Fatalf("expected json format, got %q", format)
		}
		_, _ = w.Write([]byte(`{
			"response": "{\"category\":\"Financial\",\"subtype\":\"Bank Statement\",\"confidence\":0.92,\"metadata\":{\"accountNumber\":\"1234\"},\"summary\":\"January statement.\"}",
			"prompt_eval_count": 500,
			"eval_count": 340
		}`))
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "case-classifier-v2", "case-embedder"))
	cls, err := classifier.Classify(context.Background(), "statement body", domain.ClassifyContext{FileName: "BofA_Jan2024.pdf", MimeType: "application/pdf"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != "Financial" || cls.Subtype != "Bank Statement" || cls.Confidence != 0.92 {
		t.Fatalf("classification = %+v", cls)
	}
	if cls.TokensUsed != 840 || cls.Model != "case-classifier-v2" {
		t.Fatalf("tokens = %d model = %q", cls.TokensUsed, cls.Model)
	}
	if cls.Metadata["accountNumber"] != "1234" {
		t.Fatalf("metadata = %+v", cls.Metadata)
	}
	if !strings.Contains(capturedPrompt, "BofA_Jan2024.pdf") || !strings.Contains(capturedPrompt, "statement body") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestClassifyMarksServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "gen", "embed"))
	_, err := classifier.Classify(context.Background(), "text", domain.ClassifyContext{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.Retryable(err) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model loading") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestClassifyRejectsMissingCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"subtype\":\"unknown\"}"}`))
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "gen", "embed"))
	_, err := classifier.Classify(context.Background(), "text", domain.ClassifyContext{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("expected classification kind, got %v", err)
	}
	if domain.Retryable(err) {
		t.Fatalf("missing category is the model's answer, not an outage: %v", err)
	}
}

func TestClassifyToleratesProseAroundJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Here you go: {\"category\":\"Medical\",\"confidence\":0.7} done."}`))
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "gen", "embed"))
	cls, err := classifier.Classify(context.Background(), "text", domain.ClassifyContext{})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != "Medical" {
		t.Fatalf("category = %q", cls.Category)
	}
}

func TestEmbedReturnsVectorPerInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[1][1] != 0.4 {
		t.Fatalf("vectors = %v", vectors)
	}
}

func TestEmbedRejectsVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding kind, got %v", err)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.Retryable(err) {
		t.Fatalf("bad gateway should be temporary, got %v", err)
	}
}
