package textract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/casewise/docintel/internal/core/domain"
)

func extractPlainText(fileName string, raw []byte) (domain.ExtractedText, error) {
	if !utf8.Valid(raw) {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrExtraction, "decode text",
			fmt.Errorf("%s is not valid UTF-8", fileName))
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return domain.ExtractedText{}, nil
	}
	return domain.ExtractedText{
		Text:      text,
		PageCount: 1 + strings.Count(text, "\f"),
	}, nil
}
