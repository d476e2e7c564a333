package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|delete\s+from|exec\s|<script)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxTextLength       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware validates chat and eligibility request bodies before they
// reach the handlers. The text field is required and must be free of
// markup injection; handlers receive the sanitized body via Locals.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTextLength == 0 {
		cfg.MaxTextLength = 2000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data", "text/csv"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/chat") || strings.Contains(path, "/api/v1/eligibility") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			text, ok := req["text"].(string)
			if !ok || strings.TrimSpace(text) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Text is required and must be a non-empty string",
				})
			}

			if len(text) > cfg.MaxTextLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Text exceeds maximum length",
				})
			}

			if sqlInjectionPattern.MatchString(text) || xssPattern.MatchString(text) {
				cfg.Logger.Warn("Rejected suspicious request text",
					zap.String("ip", c.IP()),
					zap.String("path", path),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid text content",
				})
			}

			req["text"] = sanitizeString(text)
			c.Locals("sanitized_body", req)
		}

		return c.Next()
	}
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
