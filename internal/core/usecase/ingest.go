package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
)

// IngestUseCase stores an uploaded file, records its document row, and
// enqueues it for classification.
type IngestUseCase struct {
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.ProcessingQueue
	now     func() time.Time
}

func NewIngestUseCase(
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.ProcessingQueue,
) *IngestUseCase {
	return &IngestUseCase{
		docs:    docs,
		storage: storage,
		queue:   queue,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestUseCase) Upload(
	ctx context.Context,
	caseID, ownerID, fileName, mimeType string,
	priority int,
	body io.Reader,
) (*domain.Document, error) {
	if caseID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("case id is required"))
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file name is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("cases/%s/%s_%s", caseID, id, sanitizeFileName(fileName))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		CaseID:      caseID,
		OwnerID:     ownerID,
		FileName:    fileName,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Metadata:    map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if _, err := uc.queue.Enqueue(ctx, doc.ID, caseID, ownerID, priority); err != nil {
		return nil, fmt.Errorf("enqueue for classification: %w", err)
	}

	return doc, nil
}

// sanitizeFileName flattens an upload name into a storage-safe key segment.
func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
