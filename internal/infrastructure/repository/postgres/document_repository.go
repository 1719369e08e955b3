package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/casewise/docintel/internal/core/domain"
)

const documentColumns = `id, case_id, owner_id, file_name, mime_type, storage_path, category, subtype, confidence, metadata, summary, needs_review, created_at, updated_at`

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`,
		doc.ID, doc.CaseID, doc.OwnerID, doc.FileName, doc.MimeType, doc.StoragePath,
		doc.Category, doc.Subtype, doc.Confidence, metadataJSON, doc.Summary,
		doc.NeedsReview, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByCase(ctx context.Context, caseID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE case_id = $1
ORDER BY created_at ASC, id ASC
`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) SaveClassification(ctx context.Context, id string, cls domain.Classification, confidence int, needsReview bool) error {
	metadataJSON, err := marshalMetadata(cls.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET category = $2, subtype = $3, confidence = $4, metadata = $5, summary = $6, needs_review = $7, updated_at = $8
WHERE id = $1
`, id, cls.Category, cls.Subtype, confidence, metadataJSON, cls.Summary, needsReview, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save classification rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "save classification", fmt.Errorf("id=%s", id))
	}
	return nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(metadata)
}

type documentScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row documentScanner) (domain.Document, error) {
	var doc domain.Document
	var metadataRaw []byte
	err := row.Scan(
		&doc.ID,
		&doc.CaseID,
		&doc.OwnerID,
		&doc.FileName,
		&doc.MimeType,
		&doc.StoragePath,
		&doc.Category,
		&doc.Subtype,
		&doc.Confidence,
		&metadataRaw,
		&doc.Summary,
		&doc.NeedsReview,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &doc.Metadata); err != nil {
			return domain.Document{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return doc, nil
}
