package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/cache/redis"
	"github.com/scheme-sahayak/backend/internal/guidance"
	"github.com/scheme-sahayak/backend/internal/matcher"
	"github.com/scheme-sahayak/backend/internal/metrics"
	"github.com/scheme-sahayak/backend/internal/querystats"
	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
	"github.com/scheme-sahayak/backend/pkg/utils"
)

type SearchHandler struct {
	matcher  *matcher.Matcher
	tracker  *querystats.Tracker
	planner  *guidance.Planner
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewSearchHandler wires the scheme read path. cache may be nil, in
// which case every request hits the store.
func NewSearchHandler(m *matcher.Matcher, tracker *querystats.Tracker, planner *guidance.Planner, cache *redis.Client, cacheTTL time.Duration) *SearchHandler {
	return &SearchHandler{
		matcher:  m,
		tracker:  tracker,
		planner:  planner,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

type SchemeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsExternal  bool   `json:"isExternal,omitempty"`
}

type SearchResponse struct {
	Schemes     []SchemeSummary `json:"schemes"`
	Count       int             `json:"count"`
	Language    string          `json:"language"`
	SmartSearch bool            `json:"smartSearch"`
}

// ListSchemes handles GET /api/v1/schemes. Storage failures degrade to
// an empty result set rather than an error status.
func (h *SearchHandler) ListSchemes(c *fiber.Ctx) error {
	keyword := c.Query("keyword")
	category := c.Query("category")
	language := defaultLanguage(c.Query("language"))
	limit := c.QueryInt("limit", 0)

	cacheKey := utils.HashString(utils.CacheKey(keyword, category, language, strconv.Itoa(limit)))
	if h.cache != nil {
		var cached SearchResponse
		hit, err := h.cache.GetSearchResults(c.Context(), cacheKey, &cached)
		if err != nil {
			logger.Warn("Search cache lookup failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("search").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("search").Inc()
	}

	h.trackSearch(c, keyword, category, language)

	start := time.Now()
	schemes, smartUsed, err := h.matcher.GetSchemes(c.Context(), keyword, category, language, limit)
	if err != nil {
		logger.Error("Scheme search failed, returning empty result", zap.Error(err))
		schemes = nil
	}

	path := "fast"
	if smartUsed {
		path = "smart"
	}
	metrics.SearchTotal.WithLabelValues(path).Inc()
	metrics.SearchDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	response := SearchResponse{
		Schemes:     summarize(schemes, language),
		Count:       len(schemes),
		Language:    language,
		SmartSearch: smartUsed,
	}

	if h.cache != nil && err == nil {
		if err := h.cache.SetSearchResults(c.Context(), cacheKey, response, h.cacheTTL); err != nil {
			logger.Warn("Failed to cache search response", zap.Error(err))
		}
	}

	return c.JSON(response)
}

// SearchByLanguage handles GET /api/v1/schemes/search, the voice-search
// path restricted to one language's fields. A non-empty keyword always
// yields at least one result (possibly an external placeholder).
func (h *SearchHandler) SearchByLanguage(c *fiber.Ctx) error {
	keyword := c.Query("keyword")
	if keyword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "keyword is required",
		})
	}
	language := defaultLanguage(c.Query("language"))

	h.trackSearch(c, keyword, "", language)

	schemes, err := h.matcher.SearchWithLanguage(c.Context(), keyword, language)
	if err != nil {
		logger.Error("Language search failed", zap.Error(err))
		schemes = nil
	}

	for _, s := range schemes {
		if s.IsExternal {
			metrics.ExternalStubs.Inc()
		}
	}

	return c.JSON(SearchResponse{
		Schemes:  summarize(schemes, language),
		Count:    len(schemes),
		Language: language,
	})
}

// GetScheme handles GET /api/v1/schemes/:id.
func (h *SearchHandler) GetScheme(c *fiber.Ctx) error {
	id := c.Params("id")
	language := defaultLanguage(c.Query("language"))

	details, err := h.matcher.GetSchemeDetails(c.Context(), id, language)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Scheme not found",
			})
		}
		logger.Error("Failed to load scheme details", zap.String("scheme_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load scheme",
		})
	}

	return c.JSON(details)
}

// GetSchemeSteps handles GET /api/v1/schemes/:id/steps.
func (h *SearchHandler) GetSchemeSteps(c *fiber.Ctx) error {
	id := c.Params("id")
	language := defaultLanguage(c.Query("language"))

	plan, err := h.planner.PlanSteps(c.Context(), id, language)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Scheme not found",
			})
		}
		logger.Error("Failed to plan scheme steps", zap.String("scheme_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load application steps",
		})
	}

	return c.JSON(plan)
}

// trackSearch records the query for popularity tracking. Tracking
// failures never fail the request.
func (h *SearchHandler) trackSearch(c *fiber.Ctx, keyword, category, language string) {
	term := keyword
	if term == "" {
		term = category
	}
	if term == "" {
		return
	}

	if err := h.tracker.Track(c.Context(), term, language); err != nil {
		logger.Warn("Failed to track search query", zap.String("term", term), zap.Error(err))
		return
	}
	metrics.QueriesTracked.Inc()
}

func summarize(schemes []models.Scheme, language string) []SchemeSummary {
	summaries := make([]SchemeSummary, 0, len(schemes))
	for i := range schemes {
		s := &schemes[i]
		summaries = append(summaries, SchemeSummary{
			ID:          s.ID,
			Name:        matcher.LocalizedName(s, language),
			Description: matcher.LocalizedDescription(s, language),
			Category:    s.Category,
			IsExternal:  s.IsExternal,
		})
	}
	return summaries
}

func defaultLanguage(language string) string {
	switch language {
	case "en", "hi", "ta":
		return language
	default:
		return "en"
	}
}
