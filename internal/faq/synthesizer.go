package faq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/llm"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

const maxRelatedShown = 2

type Store interface {
	TopQueryRecords(ctx context.Context, n int) ([]models.QueryRecord, error)
	InsertFAQ(ctx context.Context, faq *models.FAQ) (bool, error)
	ListFAQs(ctx context.Context, offset, limit int) ([]models.FAQ, error)
	CountFAQs(ctx context.Context) (int, error)
}

type Generator interface {
	GenerateFAQs(ctx context.Context, contextBlock string, count int) (string, error)
}

// Locker serializes concurrent generation runs. May be nil when no
// cache backend is configured; the store's unique question constraint
// still prevents duplicate entries.
type Locker interface {
	AcquireFAQLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseFAQLock(ctx context.Context) error
}

type Config struct {
	TopQueries     int
	GeneratedCount int
	LockTTL        time.Duration
}

// Synthesizer converts the most popular tracked queries into FAQ
// entries, via the model when possible and a deterministic template
// otherwise.
type Synthesizer struct {
	store  Store
	llm    Generator
	locker Locker
	cfg    Config
}

func NewSynthesizer(store Store, generator Generator, locker Locker, cfg Config) *Synthesizer {
	if cfg.TopQueries <= 0 {
		cfg.TopQueries = 4
	}
	if cfg.GeneratedCount <= 0 {
		cfg.GeneratedCount = 3
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &Synthesizer{store: store, llm: generator, locker: locker, cfg: cfg}
}

// GenerationResult reports which path produced the FAQs and which
// entries were actually new.
type GenerationResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Method  string       `json:"method,omitempty"`
	NewFAQs []models.FAQ `json:"newFaqs"`
}

type candidate struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// GenerateSmart builds FAQ entries from the top tracked queries. FAQs
// whose question already exists verbatim are skipped.
func (s *Synthesizer) GenerateSmart(ctx context.Context) (*GenerationResult, error) {
	if s.locker != nil {
		acquired, err := s.locker.AcquireFAQLock(ctx, s.cfg.LockTTL)
		if err != nil {
			logger.Warn("FAQ lock unavailable, relying on unique constraint", zap.Error(err))
		} else if !acquired {
			return &GenerationResult{
				Success: false,
				Message: "FAQ generation is already in progress",
				NewFAQs: []models.FAQ{},
			}, nil
		} else {
			defer func() {
				if err := s.locker.ReleaseFAQLock(ctx); err != nil {
					logger.Warn("Failed to release FAQ lock", zap.Error(err))
				}
			}()
		}
	}

	top, err := s.store.TopQueryRecords(ctx, s.cfg.TopQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to read top queries: %w", err)
	}
	if len(top) == 0 {
		return &GenerationResult{
			Success: true,
			Message: "No tracked searches yet, nothing to generate",
			NewFAQs: []models.FAQ{},
		}, nil
	}

	candidates, method := s.modelCandidates(ctx, top)
	if len(candidates) == 0 {
		candidates = fallbackCandidates(top)
		method = "fallback"
	}

	now := time.Now()
	inserted := make([]models.FAQ, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Question) == "" {
			continue
		}

		entry := models.FAQ{
			ID:              uuid.New().String(),
			Question:        c.Question,
			Answer:          c.Answer,
			Category:        c.Category,
			IsAutoGenerated: true,
			CreatedAt:       now,
		}

		ok, err := s.store.InsertFAQ(ctx, &entry)
		if err != nil {
			logger.Warn("Failed to insert FAQ", zap.String("question", c.Question), zap.Error(err))
			continue
		}
		if ok {
			inserted = append(inserted, entry)
		}
	}

	logger.Info("FAQ generation completed",
		zap.String("method", method),
		zap.Int("new_faqs", len(inserted)),
	)

	return &GenerationResult{
		Success: true,
		Message: fmt.Sprintf("%d new FAQs added", len(inserted)),
		Method:  method,
		NewFAQs: inserted,
	}, nil
}

// modelCandidates attempts the model path; any transport or parse
// failure returns no candidates so the caller falls back.
func (s *Synthesizer) modelCandidates(ctx context.Context, top []models.QueryRecord) ([]candidate, string) {
	var block strings.Builder
	for _, rec := range top {
		fmt.Fprintf(&block, "- %q searched %d %s", rec.OriginalText, rec.SearchCount, pluralSearches(rec.SearchCount))
		if related := firstN(rec.RelatedQueries, maxRelatedShown); len(related) > 0 {
			fmt.Fprintf(&block, " (also asked as: %s)", strings.Join(related, ", "))
		}
		block.WriteString("\n")
	}

	content, err := s.llm.GenerateFAQs(ctx, block.String(), s.cfg.GeneratedCount)
	if err != nil {
		logger.Warn("FAQ model generation failed, using fallback", zap.Error(err))
		return nil, ""
	}

	payload := llm.ExtractJSON(content)
	if payload == "" {
		logger.Warn("FAQ model output contained no JSON, using fallback")
		return nil, ""
	}

	var candidates []candidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		logger.Warn("FAQ model output malformed, using fallback", zap.Error(err))
		return nil, ""
	}
	if len(candidates) == 0 {
		return nil, ""
	}

	return candidates, "ai"
}

// fallbackCandidates renders one templated FAQ per top-3 query.
func fallbackCandidates(top []models.QueryRecord) []candidate {
	if len(top) > 3 {
		top = top[:3]
	}

	candidates := make([]candidate, 0, len(top))
	for _, rec := range top {
		answer := fmt.Sprintf("Citizens have made %d %s for %q recently.",
			rec.SearchCount, pluralSearches(rec.SearchCount), rec.OriginalText)
		if related := firstN(rec.RelatedQueries, maxRelatedShown); len(related) > 0 {
			answer += fmt.Sprintf(" Related searches: %s.", strings.Join(related, ", "))
		}
		answer += " Use the scheme search to see matching programs and their application steps."

		candidates = append(candidates, candidate{
			Question: fmt.Sprintf("What schemes or information are available for %q?", rec.OriginalText),
			Answer:   answer,
			Category: "Popular",
		})
	}
	return candidates
}

func pluralSearches(n int) string {
	if n == 1 {
		return "search"
	}
	return "searches"
}

func firstN(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// Page is one page of FAQs with pagination metadata.
type Page struct {
	FAQs       []models.FAQ `json:"faqs"`
	Pagination Pagination   `json:"pagination"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalFaqs   int  `json:"totalFaqs"`
	HasMore     bool `json:"hasMore"`
}

// List returns FAQs sorted by creation descending.
func (s *Synthesizer) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	total, err := s.store.CountFAQs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count FAQs: %w", err)
	}

	faqs, err := s.store.ListFAQs(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list FAQs: %w", err)
	}
	if faqs == nil {
		faqs = []models.FAQ{}
	}

	return &Page{
		FAQs: faqs,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  (total + limit - 1) / limit,
			TotalFaqs:   total,
			HasMore:     (page-1)*limit+len(faqs) < total,
		},
	}, nil
}
