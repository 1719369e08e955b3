package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/casewise/docintel/internal/core/domain"
)

type ingestDocsFake struct {
	created *domain.Document
	err     error
}

func (f *ingestDocsFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *ingestDocsFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestDocsFake) ListByCase(context.Context, string) ([]domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestDocsFake) SaveClassification(context.Context, string, domain.Classification, int, bool) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	documentID string
	caseID     string
	priority   int
	err        error
}

func (f *ingestQueueFake) Enqueue(_ context.Context, documentID, caseID, _ string, priority int) (*domain.QueueItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.documentID = documentID
	f.caseID = caseID
	f.priority = priority
	return &domain.QueueItem{ID: "item-1", DocumentID: documentID, CaseID: caseID, Status: domain.QueuePending}, nil
}

func (f *ingestQueueFake) DequeueNext(context.Context) (*domain.QueueItem, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestQueueFake) MarkProcessing(context.Context, string) (*domain.QueueItem, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestQueueFake) MarkCompleted(context.Context, string, int64, int, string) error {
	return errors.New("not implemented")
}

func (f *ingestQueueFake) MarkFailed(context.Context, string, string, int) error {
	return errors.New("not implemented")
}

func (f *ingestQueueFake) ProcessNext(context.Context) (*domain.ProcessingResult, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestQueueFake) Stats(context.Context, string) (domain.QueueStats, error) {
	return domain.QueueStats{}, errors.New("not implemented")
}

func (f *ingestQueueFake) Cleanup(context.Context, int) (int64, error) {
	return 0, errors.New("not implemented")
}

func TestIngestUploadStoresCreatesAndEnqueues(t *testing.T) {
	docs := &ingestDocsFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestUseCase(docs, storage, queue)

	doc, err := uc.Upload(context.Background(), "case-7", "owner-1", "bank statement 1.pdf", "application/pdf", 5, bytes.NewBufferString("%PDF-"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.CaseID != "case-7" {
		t.Fatalf("expected case-7, got %s", doc.CaseID)
	}
	if docs.created == nil {
		t.Fatalf("expected docs.Create call")
	}
	if queue.documentID != doc.ID || queue.caseID != "case-7" || queue.priority != 5 {
		t.Fatalf("unexpected enqueue args: %s %s %d", queue.documentID, queue.caseID, queue.priority)
	}
	if !strings.HasPrefix(storage.savedKey, "cases/case-7/") {
		t.Fatalf("expected case-scoped key, got %s", storage.savedKey)
	}
	if !strings.HasSuffix(storage.savedKey, "_bank_statement_1.pdf") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "%PDF-" {
		t.Fatalf("expected saved body, got %s", storage.savedBody)
	}
}

func TestIngestUploadRequiresCaseID(t *testing.T) {
	uc := NewIngestUseCase(&ingestDocsFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	_, err := uc.Upload(context.Background(), "", "owner-1", "a.txt", "text/plain", 0, bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIngestUploadEnqueueFailureSurfaces(t *testing.T) {
	docs := &ingestDocsFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{err: errors.New("db down")}
	uc := NewIngestUseCase(docs, storage, queue)

	_, err := uc.Upload(context.Background(), "case-7", "owner-1", "a.txt", "text/plain", 0, bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "enqueue for classification") {
		t.Fatalf("expected enqueue error, got %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bank Statement (Jan).pdf", "Bank_Statement__Jan_.pdf"},
		{"../../etc/passwd", "passwd"},
		{"отчет.pdf", "_____.pdf"},
		{"", "document.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
