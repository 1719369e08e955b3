package docai

import (
	"fmt"

	"github.com/casewise/docintel/internal/core/domain"
)

// classificationSnippetLimit keeps prompts inside the gateway's context
// window; the opening pages carry the signal for legal documents.
const classificationSnippetLimit = 6000

func buildClassificationPrompt(text string, docCtx domain.ClassifyContext) string {
	snippet := text
	if len(snippet) > classificationSnippetLimit {
		snippet = snippet[:classificationSnippetLimit]
	}

	return fmt.Sprintf(`You are a legal case-file document classifier.
Return a strict JSON object with keys:
category (one of: Financial, Medical, Contract, Correspondence, Legal Filing, Insurance, Employment, Tax, Real Estate, Other),
subtype (short free-form label, e.g. "Bank Statement" or "Demand Letter"),
confidence (number from 0 to 1),
metadata (object of string values; include keys such as accountNumber, startDate, endDate, parties, provider when the document states them),
summary (one sentence).
No markdown, no extra keys.

File name: %s
MIME type: %s

Document:
%s`, docCtx.FileName, docCtx.MimeType, snippet)
}
