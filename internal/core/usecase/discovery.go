package usecase

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/casewise/docintel/internal/core/domain"
	"github.com/casewise/docintel/internal/core/ports"
)

// Scoring weights for one document against one discovery request. The
// signals are independent and capped, then the sum is clamped to 100.
const (
	categoryExactScore   = 40
	categoryPartialScore = 25
	subtypeHitScore      = 10
	subtypeScoreCap      = 20
	filenameHitScore     = 5
	filenameScoreCap     = 15
	metadataHitScore     = 3
	metadataScoreCap     = 15
	dateRangeScore       = 10
	maxMatchScore        = 100

	// completeScore is the single-document score that satisfies a request
	// outright; defaultMinScore is the floor below which a document is not
	// reported at all.
	completeScore   = 70
	defaultMinScore = 30

	// categoryDetectionFloor is the summed keyword length a category must
	// exceed before detection trusts it. Filters out lone 3-letter
	// substring hits like "irs" inside "first".
	categoryDetectionFloor = 3
)

//go:embed lexicon.yaml
var lexiconYAML []byte

type CategoryLexicon struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type lexicon struct {
	Categories []CategoryLexicon `yaml:"categories"`
	Stopwords  []string          `yaml:"stopwords"`
}

// Request texts mention a period either as a preposition leading to a year
// ("from January 2024", "between 2020 and 2022") or as a bare month-year.
var (
	periodPrepositionRe = regexp.MustCompile(`(?i)\b(from|between|since|during|after|before|through|until)\b[^.;]{0,80}?\b(19|20)\d{2}\b`)
	monthYearRe         = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b[\s,.]{0,3}(19|20)\d{2}\b`)
)

// dateMetadataKeys are metadata fields that carry dates. They feed the
// date-range signal and are excluded from keyword overlap so a year inside
// a date value cannot double count.
var dateMetadataKeys = map[string]struct{}{
	"date":         {},
	"startdate":    {},
	"enddate":      {},
	"documentdate": {},
	"filingdate":   {},
	"servicedate":  {},
}

// Matcher scores case documents against discovery requests. It is pure and
// deterministic: no I/O, no clock, no randomness, so the same inputs always
// produce the same report.
type Matcher struct {
	categories []CategoryLexicon
	stopwords  map[string]struct{}
}

func NewMatcher() (*Matcher, error) {
	var lex lexicon
	if err := yaml.Unmarshal(lexiconYAML, &lex); err != nil {
		return nil, fmt.Errorf("parse embedded lexicon: %w", err)
	}
	if len(lex.Categories) == 0 {
		return nil, errors.New("embedded lexicon has no categories")
	}

	stop := make(map[string]struct{}, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	for i := range lex.Categories {
		for j, kw := range lex.Categories[i].Keywords {
			lex.Categories[i].Keywords[j] = strings.ToLower(kw)
		}
	}
	return &Matcher{categories: lex.Categories, stopwords: stop}, nil
}

// ExtractKeywords lowercases the request text and keeps distinct tokens
// longer than two runes that are not stopwords, in first-seen order.
func (m *Matcher) ExtractKeywords(text string) []string {
	tokens := tokenizeMixed(text)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, stop := m.stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// DetectCategory picks the category whose keywords cover the most request
// text, weighting each hit by keyword length so longer, more specific
// keywords dominate. Ties keep the earlier lexicon entry. Returns "" when
// nothing clears the detection floor.
func (m *Matcher) DetectCategory(text string) string {
	lowered := strings.ToLower(text)
	bestName := ""
	bestScore := 0
	for _, cat := range m.categories {
		score := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(lowered, kw) {
				score += len(kw)
			}
		}
		if score > bestScore {
			bestScore = score
			bestName = cat.Name
		}
	}
	if bestScore <= categoryDetectionFloor {
		return ""
	}
	return bestName
}

// signalPoints is one scored signal; the slice order in Score doubles as
// the tie-break priority when picking the dominant signal.
type signalPoints struct {
	signal domain.MatchSignal
	points int
	reason string
}

// Score rates one classified document against one request on a 0-100 scale
// and names the dominant signal behind the number.
func (m *Matcher) Score(req domain.DiscoveryRequest, doc *domain.Document) (int, domain.MatchSignal, string) {
	keywords := m.ExtractKeywords(req.Text)
	wantCategory := strings.TrimSpace(req.CategoryHint)
	if wantCategory == "" {
		wantCategory = m.DetectCategory(req.Text)
	}

	signals := make([]signalPoints, 0, 6)
	signals = append(signals, m.scoreCategory(wantCategory, doc))
	signals = append(signals, m.scoreSubtype(keywords, doc))
	signals = append(signals, m.scoreFilename(keywords, doc))
	signals = append(signals, m.scoreMetadata(keywords, doc))
	signals = append(signals, m.scoreDateRange(req.Text, doc))

	total := 0
	best := signalPoints{signal: domain.SignalNone}
	for _, s := range signals {
		total += s.points
		if s.points > best.points {
			best = s
		}
	}
	if total > maxMatchScore {
		total = maxMatchScore
	}
	return total, best.signal, best.reason
}

func (m *Matcher) scoreCategory(wantCategory string, doc *domain.Document) signalPoints {
	if wantCategory == "" || doc.Category == "" {
		return signalPoints{signal: domain.SignalNone}
	}
	if strings.EqualFold(doc.Category, wantCategory) {
		return signalPoints{
			signal: domain.SignalCategoryExact,
			points: categoryExactScore,
			reason: fmt.Sprintf("category %q matches the request", doc.Category),
		}
	}
	have := strings.ToLower(doc.Category)
	want := strings.ToLower(wantCategory)
	if strings.Contains(have, want) || strings.Contains(want, have) {
		return signalPoints{
			signal: domain.SignalCategoryPartial,
			points: categoryPartialScore,
			reason: fmt.Sprintf("category %q partially matches %q", doc.Category, wantCategory),
		}
	}
	return signalPoints{signal: domain.SignalNone}
}

// scoreSubtype counts subtype tokens that appear verbatim in the request
// keywords.
func (m *Matcher) scoreSubtype(keywords []string, doc *domain.Document) signalPoints {
	if doc.Subtype == "" || len(keywords) == 0 {
		return signalPoints{signal: domain.SignalNone}
	}
	kwSet := toSet(keywords)
	hits := 0
	for _, tok := range tokenizeMixed(doc.Subtype) {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, ok := kwSet[tok]; ok {
			hits++
		}
	}
	points := capped(hits*subtypeHitScore, subtypeScoreCap)
	if points == 0 {
		return signalPoints{signal: domain.SignalNone}
	}
	return signalPoints{
		signal: domain.SignalSubtype,
		points: points,
		reason: fmt.Sprintf("subtype %q shares %d keyword(s) with the request", doc.Subtype, hits),
	}
}

// scoreFilename tokenizes the filename, splitting camelCase and digit
// boundaries, and counts tokens that overlap a keyword in either
// direction, so "jan" in a filename still matches "january" in a request.
func (m *Matcher) scoreFilename(keywords []string, doc *domain.Document) signalPoints {
	if doc.FileName == "" || len(keywords) == 0 {
		return signalPoints{signal: domain.SignalNone}
	}
	hits := 0
	for _, tok := range tokenizeMixed(doc.FileName) {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
				hits++
				break
			}
		}
	}
	points := capped(hits*filenameHitScore, filenameScoreCap)
	if points == 0 {
		return signalPoints{signal: domain.SignalNone}
	}
	return signalPoints{
		signal: domain.SignalFilename,
		points: points,
		reason: fmt.Sprintf("filename %q shares %d keyword(s) with the request", doc.FileName, hits),
	}
}

// scoreMetadata counts request keywords appearing in non-date metadata
// values or the summary.
func (m *Matcher) scoreMetadata(keywords []string, doc *domain.Document) signalPoints {
	if len(keywords) == 0 {
		return signalPoints{signal: domain.SignalNone}
	}
	docTokens := make(map[string]struct{})
	for key, value := range doc.Metadata {
		if _, isDate := dateMetadataKeys[strings.ToLower(key)]; isDate {
			continue
		}
		for _, tok := range tokenizeMixed(value) {
			docTokens[tok] = struct{}{}
		}
	}
	for _, tok := range tokenizeMixed(doc.Summary) {
		docTokens[tok] = struct{}{}
	}

	hits := 0
	for _, kw := range keywords {
		if _, ok := docTokens[kw]; ok {
			hits++
		}
	}
	points := capped(hits*metadataHitScore, metadataScoreCap)
	if points == 0 {
		return signalPoints{signal: domain.SignalNone}
	}
	return signalPoints{
		signal: domain.SignalMetadata,
		points: points,
		reason: fmt.Sprintf("document metadata shares %d keyword(s) with the request", hits),
	}
}

// scoreDateRange fires when the request names a time period and the
// document carries any date metadata. It does not verify the dates
// actually overlap; that is review work, not matching.
func (m *Matcher) scoreDateRange(requestText string, doc *domain.Document) signalPoints {
	if !mentionsPeriod(requestText) || !hasDateMetadata(doc) {
		return signalPoints{signal: domain.SignalNone}
	}
	return signalPoints{
		signal: domain.SignalDateRange,
		points: dateRangeScore,
		reason: "request names a time period and the document carries date metadata",
	}
}

func mentionsPeriod(text string) bool {
	return periodPrepositionRe.MatchString(text) || monthYearRe.MatchString(text)
}

func hasDateMetadata(doc *domain.Document) bool {
	for key, value := range doc.Metadata {
		if _, isDate := dateMetadataKeys[strings.ToLower(key)]; isDate && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

// MatchOne evaluates a single request against the case documents.
// Unclassified documents never match. Any single document at or above the
// complete threshold satisfies the request; otherwise the best match sets
// the completion percentage.
func (m *Matcher) MatchOne(req domain.DiscoveryRequest, docs []domain.Document, minScore int) domain.MatchResult {
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	matches := make([]domain.MatchedDocument, 0, 4)
	for i := range docs {
		doc := &docs[i]
		if !doc.Classified() {
			continue
		}
		score, signal, reason := m.Score(req, doc)
		if score < minScore {
			continue
		}
		matches = append(matches, domain.MatchedDocument{
			DocumentID:  doc.ID,
			FileName:    doc.FileName,
			Category:    doc.Category,
			Subtype:     doc.Subtype,
			Confidence:  doc.Confidence,
			MatchScore:  score,
			Signal:      signal,
			MatchReason: reason,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].DocumentID < matches[j].DocumentID
	})

	result := domain.MatchResult{
		Request:           req,
		Status:            domain.MatchIncomplete,
		MatchingDocuments: matches,
	}
	if len(matches) == 0 {
		return result
	}
	if matches[0].MatchScore >= completeScore {
		result.Status = domain.MatchComplete
		result.CompletionPercentage = 100
		return result
	}
	result.Status = domain.MatchPartial
	result.CompletionPercentage = matches[0].MatchScore
	return result
}

// MatchMany evaluates each request independently; one document may satisfy
// several requests.
func (m *Matcher) MatchMany(requests []domain.DiscoveryRequest, docs []domain.Document, minScore int) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(requests))
	for _, req := range requests {
		results = append(results, m.MatchOne(req, docs, minScore))
	}
	return results
}

// ComplianceStats folds match results into a demand-level report. The
// overall score is the mean completion percentage, rounded to one decimal.
func (m *Matcher) ComplianceStats(results []domain.MatchResult, totalDocuments int) domain.ComplianceStats {
	stats := domain.ComplianceStats{TotalRequests: len(results)}

	matchedDocs := make(map[string]struct{})
	sum := 0
	for _, res := range results {
		switch res.Status {
		case domain.MatchComplete:
			stats.Complete++
		case domain.MatchPartial:
			stats.Partial++
		default:
			stats.Incomplete++
		}
		sum += res.CompletionPercentage
		for _, match := range res.MatchingDocuments {
			matchedDocs[match.DocumentID] = struct{}{}
		}
	}

	if len(results) > 0 {
		stats.OverallComplianceScore = math.Round(float64(sum)/float64(len(results))*10) / 10
	}
	stats.DocumentsWithMatches = len(matchedDocs)
	if totalDocuments > len(matchedDocs) {
		stats.UnmatchedDocuments = totalDocuments - len(matchedDocs)
	}
	return stats
}

// tokenizeMixed lowercases and splits on anything that is not a letter or
// digit, then further splits letter-digit boundaries so "Jan2024" yields
// both "jan" and "2024".
func tokenizeMixed(text string) []string {
	rough := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(rough))
	for _, tok := range rough {
		start := 0
		runes := []rune(tok)
		for i := 1; i < len(runes); i++ {
			if unicode.IsDigit(runes[i]) != unicode.IsDigit(runes[i-1]) {
				out = append(out, string(runes[start:i]))
				start = i
			}
		}
		out = append(out, string(runes[start:]))
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func capped(points, limit int) int {
	if points > limit {
		return limit
	}
	return points
}

// DiscoveryUseCase binds the pure matcher to the document repository so the
// API can evaluate a demand against a live case.
type DiscoveryUseCase struct {
	docs    ports.DocumentRepository
	matcher *Matcher
}

func NewDiscoveryUseCase(docs ports.DocumentRepository, matcher *Matcher) *DiscoveryUseCase {
	return &DiscoveryUseCase{docs: docs, matcher: matcher}
}

func (uc *DiscoveryUseCase) MatchCase(ctx context.Context, caseID string, requests []domain.DiscoveryRequest, minScore int) ([]domain.MatchResult, error) {
	results, _, err := uc.ComplianceForCase(ctx, caseID, requests, minScore)
	return results, err
}

func (uc *DiscoveryUseCase) ComplianceForCase(ctx context.Context, caseID string, requests []domain.DiscoveryRequest, minScore int) ([]domain.MatchResult, domain.ComplianceStats, error) {
	if caseID == "" {
		return nil, domain.ComplianceStats{}, domain.WrapError(domain.ErrInvalidInput, "match case", errors.New("case id is required"))
	}
	for i, req := range requests {
		if err := validateRequest(req); err != nil {
			return nil, domain.ComplianceStats{}, domain.WrapError(domain.ErrInvalidInput, "match case", fmt.Errorf("request %d: %w", i+1, err))
		}
	}

	docs, err := uc.docs.ListByCase(ctx, caseID)
	if err != nil {
		return nil, domain.ComplianceStats{}, fmt.Errorf("list case documents: %w", err)
	}

	results := uc.matcher.MatchMany(requests, docs, minScore)
	stats := uc.matcher.ComplianceStats(results, len(docs))
	return results, stats, nil
}

func validateRequest(req domain.DiscoveryRequest) error {
	if req.Type != domain.RequestRFP && req.Type != domain.RequestInterrogatory {
		return fmt.Errorf("unknown request type %q", req.Type)
	}
	if req.Number <= 0 {
		return errors.New("request number must be positive")
	}
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("request text is required")
	}
	return nil
}
