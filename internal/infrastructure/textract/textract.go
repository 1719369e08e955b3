package textract

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
)

// Extractor turns stored source documents into plain text. Pages are joined
// with form feeds so downstream chunking can attribute offsets to pages.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrExtraction, "open source document", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrExtraction, "read source document", err)
	}

	if isPDF(doc.MimeType, raw) {
		return extractPDF(raw)
	}
	return extractPlainText(doc.FileName, raw)
}

func isPDF(mimeType string, raw []byte) bool {
	if strings.EqualFold(strings.TrimSpace(mimeType), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}
