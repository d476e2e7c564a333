package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/cache/redis"
	"github.com/scheme-sahayak/backend/internal/ingest"
	"github.com/scheme-sahayak/backend/internal/metrics"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

type ImportHandler struct {
	importer *ingest.Importer
	cache    *redis.Client
}

func NewImportHandler(importer *ingest.Importer, cache *redis.Client) *ImportHandler {
	return &ImportHandler{importer: importer, cache: cache}
}

// ImportSchemes handles POST /api/v1/admin/schemes/import with a CSV
// body. Cached search responses are invalidated after a successful
// import so stale results do not outlive the data change.
func (h *ImportHandler) ImportSchemes(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "CSV body is required",
		})
	}

	report, err := h.importer.ImportCSV(c.Context(), bytes.NewReader(body))
	if err != nil {
		logger.Error("Scheme import failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	metrics.SchemesImported.Add(float64(report.Imported))

	if h.cache != nil && report.Imported > 0 {
		if err := h.cache.InvalidateSearchCache(c.Context()); err != nil {
			logger.Warn("Failed to invalidate search cache after import", zap.Error(err))
		}
	}

	return c.JSON(report)
}
