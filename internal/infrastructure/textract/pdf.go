package textract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/casewise/docintel/internal/core/domain"
)

// scannedCharsPerPage is the average extractable-rune floor below which a PDF
// is treated as a scan. Image-only pages yield nothing; real text pages yield
// hundreds of runes.
const scannedCharsPerPage = 40

func extractPDF(raw []byte) (out domain.ExtractedText, err error) {
	// The parser panics on some malformed files instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			out = domain.ExtractedText{}
			err = domain.WrapError(domain.ErrExtraction, "parse pdf", fmt.Errorf("parser panic: %v", r))
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if rerr != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrExtraction, "parse pdf", rerr)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			// One torn page must not sink the document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(content))
	}

	return domain.ExtractedText{
		Text:      strings.Join(pages, "\f"),
		PageCount: len(pages),
		IsScanned: looksScanned(pages),
	}, nil
}

func looksScanned(pages []string) bool {
	if len(pages) == 0 {
		return false
	}
	total := 0
	for _, page := range pages {
		total += utf8.RuneCountInString(page)
	}
	return total/len(pages) < scannedCharsPerPage
}
