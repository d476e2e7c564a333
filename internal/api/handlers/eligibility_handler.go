package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scheme-sahayak/backend/internal/eligibility"
	"github.com/scheme-sahayak/backend/internal/metrics"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/internal/storage/sqlite"
)

type EligibilityHandler struct {
	store *sqlite.Client
}

func NewEligibilityHandler(store *sqlite.Client) *EligibilityHandler {
	return &EligibilityHandler{store: store}
}

type eligibilityRequest struct {
	Text    string `json:"text"`
	UserID  string `json:"userId"`
	Profile *struct {
		Age    *int     `json:"age"`
		Income *float64 `json:"income"`
		State  string   `json:"state"`
		Gender string   `json:"gender"`
	} `json:"profile"`
}

// CheckEligibility handles POST /api/v1/eligibility. The profile comes
// inline or via userId lookup; either may be absent, in which case the
// rules treat every field as unknown. Never returns an error status
// beyond input validation.
func (h *EligibilityHandler) CheckEligibility(c *fiber.Ctx) error {
	var req eligibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Text is required",
		})
	}

	var profile *models.UserProfile
	if req.Profile != nil {
		profile = &models.UserProfile{
			Age:    req.Profile.Age,
			Income: req.Profile.Income,
			State:  req.Profile.State,
			Gender: req.Profile.Gender,
		}
	} else if req.UserID != "" {
		profile = lookupProfile(c.Context(), h.store, req.UserID)
	}

	result := eligibility.Check(req.Text, profile)
	metrics.EligibilityVerdicts.WithLabelValues(string(result.Eligible)).Inc()

	return c.JSON(result)
}
