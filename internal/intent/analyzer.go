package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/llm"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

// historyWindow caps how many prior turns feed the model context.
const historyWindow = 5

type Completer interface {
	AnalyzeSearchQuery(ctx context.Context, text string) (string, error)
	AnalyzeConversationIntent(ctx context.Context, utterance, transcript, schemesJSON string) (string, error)
}

// Analyzer turns utterances into structured intents, tolerating
// malformed model output by falling back to deterministic defaults.
type Analyzer struct {
	llm Completer
}

func NewAnalyzer(completer Completer) *Analyzer {
	return &Analyzer{llm: completer}
}

// AnalyzeQuery classifies a search utterance and extracts English
// keywords. Transport or parse failures degrade to a whitespace split
// of the original text.
func (a *Analyzer) AnalyzeQuery(ctx context.Context, text string) (*QueryAnalysis, Status) {
	content, err := a.llm.AnalyzeSearchQuery(ctx, text)
	if err != nil {
		logger.Warn("Query analysis call failed, using fallback", zap.Error(err))
		return fallbackQueryAnalysis(text), StatusFallback
	}

	payload := llm.ExtractJSON(content)
	if payload == "" {
		logger.Warn("Query analysis returned no JSON, using fallback")
		return fallbackQueryAnalysis(text), StatusFallback
	}

	var qa QueryAnalysis
	if err := json.Unmarshal([]byte(payload), &qa); err != nil {
		logger.Warn("Query analysis JSON malformed, using fallback", zap.Error(err))
		return fallbackQueryAnalysis(text), StatusFallback
	}

	if qa.Intent != "scheme_search" && qa.Intent != "general_doubt" {
		qa.Intent = "scheme_search"
	}
	if len(qa.Keywords) == 0 {
		qa.Keywords = strings.Fields(text)
	}
	if qa.Language == "" {
		qa.Language = "en"
	}

	return &qa, StatusOK
}

func fallbackQueryAnalysis(text string) *QueryAnalysis {
	return &QueryAnalysis{
		Intent:   "scheme_search",
		Keywords: strings.Fields(text),
		Language: "en",
	}
}

// AnalyzeIntent reads one conversational turn against up to five prior
// turns and any directly matched schemes, then enforces the confidence
// and memory policy on whatever the model produced.
func (a *Analyzer) AnalyzeIntent(ctx context.Context, text string, history []models.ConversationTurn, matches []models.Scheme, isLongConversation bool) (*Result, Status) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	content, err := a.llm.AnalyzeConversationIntent(ctx, text, formatTranscript(history), schemesContext(matches))
	if err != nil {
		logger.Warn("Intent analysis call failed, using fallback", zap.Error(err))
		return fallbackIntentResult(isLongConversation), StatusFallback
	}

	payload := llm.ExtractJSON(content)
	if payload == "" {
		logger.Warn("Intent analysis returned no JSON, using fallback")
		return fallbackIntentResult(isLongConversation), StatusFallback
	}

	var res Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		logger.Warn("Intent analysis JSON malformed, using fallback", zap.Error(err))
		return fallbackIntentResult(isLongConversation), StatusFallback
	}

	if res.MissingFields == nil {
		res.MissingFields = []string{}
	}
	if res.SuggestedSchemes == nil {
		res.SuggestedSchemes = []string{}
	}

	return enforce(&res, history, text, isLongConversation), StatusOK
}

func fallbackIntentResult(isLongConversation bool) *Result {
	res := &Result{
		Intent:           "UNKNOWN",
		MissingFields:    []string{},
		Confidence:       0,
		SuggestedSchemes: []string{},
		FollowUpQuestion: "Could you tell me a bit more about the scheme or benefit you are looking for?",
		Explanation:      "I could not fully understand that. Please rephrase your question about government schemes.",
		NavigationStep:   nil,
	}
	if isLongConversation {
		appendSummarySuffix(res)
	}
	return res
}

func formatTranscript(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return "(no prior conversation)"
	}

	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Question, turn.Answer)
	}
	return b.String()
}

func schemesContext(matches []models.Scheme) string {
	if len(matches) == 0 {
		return "[]"
	}

	type summary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Eligibility string `json:"eligibility"`
	}

	summaries := make([]summary, 0, len(matches))
	for _, s := range matches {
		summaries = append(summaries, summary{
			ID:          s.ID,
			Name:        s.Name,
			Category:    s.Category,
			Eligibility: s.Eligibility,
		})
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return "[]"
	}
	return string(data)
}
