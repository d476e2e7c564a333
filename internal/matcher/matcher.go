package matcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/intent"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

// smartFallbackMinLength is the category length (in runes) above which
// an empty fast-path result triggers the model-assisted fallback.
const smartFallbackMinLength = 3

var externalIDPattern = regexp.MustCompile(`^ext-\d+-\d+$`)

type SchemeStore interface {
	FilterSchemes(ctx context.Context, keyword, category string, limit int) ([]models.Scheme, error)
	SearchSchemesRanked(ctx context.Context, query string, limit int) ([]models.Scheme, error)
	SearchSchemesByLanguage(ctx context.Context, keyword, language string) ([]models.Scheme, error)
	GetScheme(ctx context.Context, id string) (*models.Scheme, error)
}

type QueryAnalyzer interface {
	AnalyzeQuery(ctx context.Context, text string) (*intent.QueryAnalysis, intent.Status)
}

// StubTemplates is the boilerplate for the stand-in record synthesized
// when a per-language search finds nothing. "{keyword}" is replaced
// with the original search text.
type StubTemplates struct {
	Name            string
	NameHI          string
	NameTA          string
	Description     string
	DescriptionHI   string
	DescriptionTA   string
	EligibilityNote string
}

// Matcher resolves keyword/category queries into scheme records, with
// a model-assisted fallback when direct matching fails.
type Matcher struct {
	store        SchemeStore
	analyzer     QueryAnalyzer
	defaultLimit int
	stub         StubTemplates
}

func New(store SchemeStore, analyzer QueryAnalyzer, defaultLimit int, stub StubTemplates) *Matcher {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Matcher{
		store:        store,
		analyzer:     analyzer,
		defaultLimit: defaultLimit,
		stub:         stub,
	}
}

// GetSchemes runs the fast containment filter and, when it comes back
// empty for a category longer than three characters, retries with
// model-extracted keywords against the ranked text search. The second
// return value reports whether the smart fallback was attempted; any
// failure inside the fallback is swallowed and logged, and the caller
// gets whatever the fast path produced.
func (m *Matcher) GetSchemes(ctx context.Context, keyword, category, language string, limit int) ([]models.Scheme, bool, error) {
	if limit <= 0 {
		limit = m.defaultLimit
	}

	schemes, err := m.store.FilterSchemes(ctx, keyword, category, limit)
	if err != nil {
		return nil, false, fmt.Errorf("scheme filter failed: %w", err)
	}

	if len(schemes) > 0 || category == "" || utf8.RuneCountInString(category) <= smartFallbackMinLength {
		return schemes, false, nil
	}

	logger.Info("Direct match empty, attempting smart search",
		zap.String("category", category),
		zap.String("language", language),
	)

	analysis, status := m.analyzer.AnalyzeQuery(ctx, category)
	if analysis == nil || len(analysis.Keywords) == 0 {
		return schemes, true, nil
	}
	if status == intent.StatusFallback {
		logger.Debug("Smart search using degraded keyword extraction")
	}

	ranked, err := m.store.SearchSchemesRanked(ctx, strings.Join(analysis.Keywords, " "), limit)
	if err != nil {
		logger.Warn("Smart search failed, returning fast-path results", zap.Error(err))
		return schemes, true, nil
	}
	if len(ranked) == 0 {
		return schemes, true, nil
	}

	return ranked, true, nil
}

// SearchWithLanguage restricts matching to one language's fields and
// never returns an empty list for a non-empty keyword: when nothing
// matches locally it synthesizes exactly one external stand-in record.
func (m *Matcher) SearchWithLanguage(ctx context.Context, keyword, language string) ([]models.Scheme, error) {
	results, err := m.store.SearchSchemesByLanguage(ctx, keyword, language)
	if err != nil {
		logger.Warn("Language search failed, synthesizing external stub", zap.Error(err))
		results = nil
	}

	if len(results) > 0 {
		return results, nil
	}

	return []models.Scheme{m.externalStub(keyword)}, nil
}

// SchemeDetails is the single-language projection of a scheme.
type SchemeDetails struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Category    string                   `json:"category"`
	Eligibility string                   `json:"eligibility"`
	Benefits    []string                 `json:"benefits"`
	Documents   []string                 `json:"documents"`
	Steps       []models.ApplicationStep `json:"steps"`
	IsExternal  bool                     `json:"isExternal"`
	Language    string                   `json:"language"`
}

// GetSchemeDetails projects one scheme into the requested language,
// falling back to the English field when localized text is absent.
// External ids resolve to boilerplate; unknown ids yield
// storage.ErrNotFound.
func (m *Matcher) GetSchemeDetails(ctx context.Context, id, language string) (*SchemeDetails, error) {
	if IsExternalID(id) {
		stub := m.externalStub("your search")
		return &SchemeDetails{
			ID:          id,
			Name:        LocalizedName(&stub, language),
			Description: LocalizedDescription(&stub, language),
			Eligibility: stub.Eligibility,
			Category:    "External",
			Benefits:    []string{},
			Documents:   []string{},
			Steps:       []models.ApplicationStep{},
			IsExternal:  true,
			Language:    language,
		}, nil
	}

	scheme, err := m.store.GetScheme(ctx, id)
	if err != nil {
		return nil, err
	}

	return &SchemeDetails{
		ID:          scheme.ID,
		Name:        LocalizedName(scheme, language),
		Description: LocalizedDescription(scheme, language),
		Category:    localized(scheme.Category, scheme.CategoryHI, scheme.CategoryTA, language),
		Eligibility: localized(scheme.Eligibility, scheme.EligibilityHI, scheme.EligibilityTA, language),
		Benefits:    scheme.Benefits,
		Documents:   scheme.Documents,
		Steps:       scheme.Steps,
		IsExternal:  scheme.IsExternal,
		Language:    language,
	}, nil
}

func IsExternalID(id string) bool {
	return externalIDPattern.MatchString(id)
}

func (m *Matcher) externalStub(keyword string) models.Scheme {
	interpolate := func(template string) string {
		return strings.ReplaceAll(template, "{keyword}", keyword)
	}

	now := time.Now()
	return models.Scheme{
		ID:            fmt.Sprintf("ext-%d-1", now.UnixMilli()),
		Name:          interpolate(m.stub.Name),
		NameHI:        interpolate(m.stub.NameHI),
		NameTA:        interpolate(m.stub.NameTA),
		Description:   interpolate(m.stub.Description),
		DescriptionHI: interpolate(m.stub.DescriptionHI),
		DescriptionTA: interpolate(m.stub.DescriptionTA),
		Category:      "External",
		Eligibility:   m.stub.EligibilityNote,
		Benefits:      []string{},
		Documents:     []string{},
		Steps:         []models.ApplicationStep{},
		Source:        "external_api",
		IsExternal:    true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func LocalizedName(s *models.Scheme, language string) string {
	return localized(s.Name, s.NameHI, s.NameTA, language)
}

func LocalizedDescription(s *models.Scheme, language string) string {
	return localized(s.Description, s.DescriptionHI, s.DescriptionTA, language)
}

func localized(en, hi, ta, language string) string {
	switch language {
	case "hi":
		if hi != "" {
			return hi
		}
	case "ta":
		if ta != "" {
			return ta
		}
	}
	return en
}
