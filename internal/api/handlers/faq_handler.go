package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/faq"
	"github.com/scheme-sahayak/backend/internal/metrics"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

type FAQHandler struct {
	synthesizer *faq.Synthesizer
}

func NewFAQHandler(synthesizer *faq.Synthesizer) *FAQHandler {
	return &FAQHandler{synthesizer: synthesizer}
}

// ListFAQs handles GET /api/v1/faqs. A storage failure degrades to an
// empty page rather than an error status.
func (h *FAQHandler) ListFAQs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	result, err := h.synthesizer.List(c.Context(), page, limit)
	if err != nil {
		logger.Error("Failed to list FAQs, returning empty page", zap.Error(err))
		result = &faq.Page{
			FAQs: []models.FAQ{},
			Pagination: faq.Pagination{
				CurrentPage: page,
			},
		}
	}

	return c.JSON(result)
}

// GenerateFAQs handles POST /api/v1/faqs/generate. Failures report
// success=false in the body; the status stays 200.
func (h *FAQHandler) GenerateFAQs(c *fiber.Ctx) error {
	result, err := h.synthesizer.GenerateSmart(c.Context())
	if err != nil {
		logger.Error("FAQ generation failed", zap.Error(err))
		return c.JSON(faq.GenerationResult{
			Success: false,
			Message: "FAQ generation failed, please try again later",
			NewFAQs: []models.FAQ{},
		})
	}

	if result.Method != "" {
		metrics.FAQGeneration.WithLabelValues(result.Method).Inc()
	}

	return c.JSON(result)
}
