package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/eligibility"
	"github.com/scheme-sahayak/backend/internal/guidance"
	"github.com/scheme-sahayak/backend/internal/intent"
	"github.com/scheme-sahayak/backend/internal/matcher"
	"github.com/scheme-sahayak/backend/internal/metrics"
	"github.com/scheme-sahayak/backend/internal/querystats"
	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/internal/storage/sqlite"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

const (
	// directMatchLimit caps the fast database path for a chat turn.
	directMatchLimit = 5

	// historyWindow is how many prior turns feed the analyzer.
	historyWindow = 5

	// longConversationTurns marks when the recap offer kicks in.
	longConversationTurns = 4
)

type ChatHandler struct {
	store    *sqlite.Client
	tracker  *querystats.Tracker
	matcher  *matcher.Matcher
	analyzer *intent.Analyzer
	planner  *guidance.Planner
}

func NewChatHandler(store *sqlite.Client, tracker *querystats.Tracker, m *matcher.Matcher, analyzer *intent.Analyzer, planner *guidance.Planner) *ChatHandler {
	return &ChatHandler{
		store:    store,
		tracker:  tracker,
		matcher:  m,
		analyzer: analyzer,
		planner:  planner,
	}
}

type ChatRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// ChatResponse carries either direct scheme matches or analyzed intent
// data, never both. Source reports which path answered.
type ChatResponse struct {
	Transcript     string              `json:"transcript"`
	Language       string              `json:"language"`
	Source         string              `json:"source"`
	MatchedSchemes []SchemeSummary     `json:"matchedSchemes,omitempty"`
	IntentData     *intent.Result      `json:"intentData,omitempty"`
	Eligibility    *eligibility.Result `json:"eligibility,omitempty"`
	NavigationStep string              `json:"navigationStep,omitempty"`
}

// HandleChat handles POST /api/v1/chat. Apart from input validation the
// endpoint never returns an error status; internal failures degrade to
// a usable fallback payload.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest
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

	return c.JSON(h.ProcessTurn(c.Context(), &req))
}

// ProcessTurn runs one conversational turn end to end: track the query,
// try the direct database match, fall through to intent analysis, and
// persist the exchange. Every internal failure is absorbed into a
// degraded but well-formed response.
func (h *ChatHandler) ProcessTurn(ctx context.Context, req *ChatRequest) *ChatResponse {
	start := time.Now()
	text := strings.TrimSpace(req.Text)
	language := defaultLanguage(req.Language)

	if err := h.tracker.Track(ctx, text, language); err != nil {
		logger.Warn("Failed to track chat query", zap.Error(err))
	} else {
		metrics.QueriesTracked.Inc()
	}

	profile := lookupProfile(ctx, h.store, req.UserID)

	matches, _, err := h.matcher.GetSchemes(ctx, text, "", language, directMatchLimit)
	if err != nil {
		logger.Warn("Direct match failed, continuing with intent analysis", zap.Error(err))
		matches = nil
	}

	var resp *ChatResponse
	if len(matches) > 0 {
		resp = h.databaseResponse(ctx, text, language, matches, profile)
	} else {
		resp = h.intentResponse(ctx, text, language, req, profile)
	}

	h.persistTurn(ctx, req, text, resp.Transcript)

	metrics.ChatTotal.WithLabelValues(resp.Source).Inc()
	metrics.ChatDuration.WithLabelValues(resp.Source).Observe(time.Since(start).Seconds())

	return resp
}

// databaseResponse answers from direct scheme matches without a model
// round trip.
func (h *ChatHandler) databaseResponse(ctx context.Context, text, language string, matches []models.Scheme, profile *models.UserProfile) *ChatResponse {
	summaries := summarize(matches, language)

	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, s.Name)
	}

	resp := &ChatResponse{
		Transcript:     fmt.Sprintf(foundPhrase(language), len(names), strings.Join(names, ", ")),
		Language:       language,
		Source:         "database",
		MatchedSchemes: summaries,
	}

	verdict := eligibility.Check(text, profile)
	metrics.EligibilityVerdicts.WithLabelValues(string(verdict.Eligible)).Inc()
	if verdict.Eligible != eligibility.Unknown {
		resp.Eligibility = &verdict
	}

	if !matches[0].IsExternal {
		resp.NavigationStep = h.planner.FirstInstruction(ctx, matches[0].ID, language)
	}

	return resp
}

// intentResponse runs the analyzer over the recent history. The
// analyzer already degrades internally, so this path always yields a
// well-formed result.
func (h *ChatHandler) intentResponse(ctx context.Context, text, language string, req *ChatRequest, profile *models.UserProfile) *ChatResponse {
	var history []models.ConversationTurn
	if req.SessionID != "" || req.UserID != "" {
		var err error
		history, err = h.store.RecentConversationTurns(ctx, req.SessionID, req.UserID, historyWindow)
		if err != nil {
			logger.Warn("Failed to load conversation history", zap.Error(err))
			history = nil
		}
	}
	isLong := len(history) >= longConversationTurns

	result, status := h.analyzer.AnalyzeIntent(ctx, text, history, nil, isLong)
	metrics.AnalyzerStatus.WithLabelValues("intent", status.String()).Inc()
	metrics.IntentConfidence.Observe(result.Confidence)

	transcript := result.Explanation
	if result.FollowUpQuestion != "" {
		transcript = strings.TrimSpace(transcript + " " + result.FollowUpQuestion)
	}

	resp := &ChatResponse{
		Transcript: transcript,
		Language:   language,
		Source:     "ai",
		IntentData: result,
	}

	topic := result.Intent
	if topic == "" || topic == "UNKNOWN" {
		topic = text
	}
	verdict := eligibility.Check(topic, profile)
	metrics.EligibilityVerdicts.WithLabelValues(string(verdict.Eligible)).Inc()
	if verdict.Eligible != eligibility.Unknown {
		resp.Eligibility = &verdict
	}

	if result.NavigationStep != nil {
		resp.NavigationStep = *result.NavigationStep
	}

	return resp
}

func lookupProfile(ctx context.Context, store *sqlite.Client, userID string) *models.UserProfile {
	if userID == "" {
		return nil
	}

	profile, err := store.GetUserProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return profile
}

func (h *ChatHandler) persistTurn(ctx context.Context, req *ChatRequest, question, answer string) {
	if req.SessionID == "" && req.UserID == "" {
		return
	}

	turn := &models.ConversationTurn{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	if err := h.store.AppendConversationTurn(ctx, turn); err != nil {
		logger.Warn("Failed to persist conversation turn", zap.Error(err))
	}
}

func foundPhrase(language string) string {
	switch language {
	case "hi":
		return "आपके अनुरोध से मेल खाती %d योजनाएं मिलीं: %s"
	case "ta":
		return "உங்கள் கோரிக்கைக்கு பொருந்தும் %d திட்டங்கள் கிடைத்தன: %s"
	default:
		return "I found %d schemes matching your request: %s"
	}
}
