package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/casewise/docintel/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceForDocument swaps a document's chunks atomically. Reindexing must
// never leave a mix of old and new windows behind.
func (r *ChunkRepository) ReplaceForDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO document_chunks (id, document_id, case_id, owner_id, chunk_index, content, page_number, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`,
			chunk.ID, chunk.DocumentID, chunk.CaseID, chunk.OwnerID, chunk.ChunkIndex,
			chunk.Content, chunk.PageNumber, pgvector.NewVector(chunk.Embedding), chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// SemanticSearch returns the chunks closest to queryVector by cosine
// similarity, best first. Rows below minSimilarity never leave the database.
func (r *ChunkRepository) SemanticSearch(ctx context.Context, caseID string, queryVector []float32, limit int, minSimilarity float64, filters domain.SearchFilters) ([]domain.ChunkHit, error) {
	query := `
SELECT c.id, c.document_id, d.file_name, d.category, d.subtype, d.confidence, d.metadata,
       c.chunk_index, c.page_number, c.content,
       1 - (c.embedding <=> $2) AS similarity
FROM document_chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.case_id = $1
  AND 1 - (c.embedding <=> $2) >= $3
`
	args := []interface{}{caseID, pgvector.NewVector(queryVector), minSimilarity}
	query, args = appendDocumentFilters(query, args, filters)
	args = append(args, limit)
	query += fmt.Sprintf("ORDER BY c.embedding <=> $2 ASC, c.id ASC\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChunkHit, 0)
	for rows.Next() {
		var hit domain.ChunkHit
		var metadataRaw []byte
		err := rows.Scan(
			&hit.ChunkID, &hit.DocumentID, &hit.FileName, &hit.Category, &hit.Subtype,
			&hit.Confidence, &metadataRaw, &hit.ChunkIndex, &hit.PageNumber, &hit.Content,
			&hit.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan semantic hit: %w", err)
		}
		if err := unmarshalHitMetadata(metadataRaw, &hit); err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semantic hits: %w", err)
	}
	return out, nil
}

// LexicalSearch returns candidate rows where any term appears in chunk
// content or in the document's filename. Scoring happens in the use case;
// this only narrows the candidate set. A document whose filename matches but
// which has no chunks yet comes back as a single row with NULL chunk columns.
func (r *ChunkRepository) LexicalSearch(ctx context.Context, caseID string, terms []string, limit int, filters domain.SearchFilters) ([]domain.ChunkHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := `
SELECT d.id, d.file_name, d.category, d.subtype, d.confidence, d.metadata,
       c.id, c.chunk_index, c.page_number, c.content
FROM documents d
LEFT JOIN document_chunks c ON c.document_id = d.id
WHERE d.case_id = $1
`
	args := []interface{}{caseID}

	conditions := make([]string, 0, len(terms))
	for _, term := range terms {
		args = append(args, "%"+escapeLike(term)+"%")
		conditions = append(conditions, fmt.Sprintf("c.content ILIKE $%d OR d.file_name ILIKE $%d", len(args), len(args)))
	}
	query += "  AND (" + strings.Join(conditions, " OR ") + ")\n"

	query, args = appendDocumentFilters(query, args, filters)
	args = append(args, limit)
	query += fmt.Sprintf("ORDER BY d.created_at ASC, d.id ASC, c.chunk_index ASC\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChunkHit, 0)
	for rows.Next() {
		var hit domain.ChunkHit
		var metadataRaw []byte
		var chunkID, content sql.NullString
		var chunkIndex, pageNumber sql.NullInt64
		err := rows.Scan(
			&hit.DocumentID, &hit.FileName, &hit.Category, &hit.Subtype, &hit.Confidence,
			&metadataRaw, &chunkID, &chunkIndex, &pageNumber, &content,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		hit.ChunkID = chunkID.String
		hit.ChunkIndex = int(chunkIndex.Int64)
		hit.PageNumber = int(pageNumber.Int64)
		hit.Content = content.String
		if err := unmarshalHitMetadata(metadataRaw, &hit); err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical hits: %w", err)
	}
	return out, nil
}

func appendDocumentFilters(query string, args []interface{}, filters domain.SearchFilters) (string, []interface{}) {
	if filters.Category != "" {
		args = append(args, filters.Category)
		query += fmt.Sprintf("  AND d.category = $%d\n", len(args))
	}
	if filters.Subtype != "" {
		args = append(args, filters.Subtype)
		query += fmt.Sprintf("  AND d.subtype = $%d\n", len(args))
	}
	if filters.MinConfidence > 0 {
		args = append(args, filters.MinConfidence)
		query += fmt.Sprintf("  AND d.confidence >= $%d\n", len(args))
	}
	if filters.MaxConfidence > 0 {
		args = append(args, filters.MaxConfidence)
		query += fmt.Sprintf("  AND d.confidence <= $%d\n", len(args))
	}
	if filters.CreatedAfter != nil {
		args = append(args, *filters.CreatedAfter)
		query += fmt.Sprintf("  AND d.created_at >= $%d\n", len(args))
	}
	if filters.CreatedBefore != nil {
		args = append(args, *filters.CreatedBefore)
		query += fmt.Sprintf("  AND d.created_at <= $%d\n", len(args))
	}
	return query, args
}

// escapeLike neutralizes LIKE metacharacters so user terms match literally.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

func unmarshalHitMetadata(raw []byte, hit *domain.ChunkHit) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &hit.Metadata); err != nil {
		return fmt.Errorf("unmarshal hit metadata: %w", err)
	}
	return nil
}
