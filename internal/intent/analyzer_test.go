package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scheme-sahayak/backend/internal/storage/models"
)

type fakeCompleter struct {
	queryResponse  string
	queryErr       error
	intentResponse string
	intentErr      error

	lastTranscript string
	lastSchemes    string
}

func (f *fakeCompleter) AnalyzeSearchQuery(_ context.Context, _ string) (string, error) {
	return f.queryResponse, f.queryErr
}

func (f *fakeCompleter) AnalyzeConversationIntent(_ context.Context, _, transcript, schemesJSON string) (string, error) {
	f.lastTranscript = transcript
	f.lastSchemes = schemesJSON
	return f.intentResponse, f.intentErr
}

func TestAnalyzeQuerySuccess(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{
		queryResponse: "```json\n{\"intent\":\"general_doubt\",\"keywords\":[\"pension\",\"age\"],\"language\":\"hi\"}\n```",
	})

	qa, status := analyzer.AnalyzeQuery(context.Background(), "pension kya hai")

	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "general_doubt", qa.Intent)
	assert.Equal(t, []string{"pension", "age"}, qa.Keywords)
	assert.Equal(t, "hi", qa.Language)
}

func TestAnalyzeQueryTransportFailureFallsBack(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{queryErr: errors.New("timeout")})

	qa, status := analyzer.AnalyzeQuery(context.Background(), "old age pension")

	assert.Equal(t, StatusFallback, status)
	assert.Equal(t, "scheme_search", qa.Intent)
	assert.Equal(t, []string{"old", "age", "pension"}, qa.Keywords)
	assert.Equal(t, "en", qa.Language)
}

func TestAnalyzeQueryMalformedJSONFallsBack(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{queryResponse: "sorry, I cannot help with that"})

	qa, status := analyzer.AnalyzeQuery(context.Background(), "health card")

	assert.Equal(t, StatusFallback, status)
	assert.Equal(t, []string{"health", "card"}, qa.Keywords)
}

func TestAnalyzeQueryCoercesUnknownIntent(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{
		queryResponse: `{"intent":"something_else","keywords":["health"],"language":"en"}`,
	})

	qa, status := analyzer.AnalyzeQuery(context.Background(), "health")

	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "scheme_search", qa.Intent)
}

func TestAnalyzeIntentHighConfidencePassesThrough(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{
		intentResponse: `{"intent":"pension_enquiry","missing_fields":[],"confidence":0.95,"suggested_schemes":["Senior Citizen Pension"],"follow_up_question":"","explanation":"You qualify for the senior pension."}`,
	})

	res, status := analyzer.AnalyzeIntent(context.Background(), "I am 65, pension please", nil, nil, false)

	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "pension_enquiry", res.Intent)
	assert.Equal(t, "You qualify for the senior pension.", res.Explanation)
	assert.Empty(t, res.FollowUpQuestion)
}

func TestAnalyzeIntentLowConfidenceRedirects(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{
		intentResponse: `{"intent":"pension_enquiry","confidence":0.3,"explanation":"not sure"}`,
	})

	res, status := analyzer.AnalyzeIntent(context.Background(), "pension maybe", nil, nil, false)

	assert.Equal(t, StatusOK, status)
	assert.Contains(t, res.Explanation, OfficialChannel)
	assert.LessOrEqual(t, res.Confidence, 0.5)
}

func TestAnalyzeIntentMidConfidenceAsksConfirmation(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{
		intentResponse: `{"intent":"housing_enquiry","confidence":0.75,"explanation":"Housing schemes vary."}`,
	})

	res, _ := analyzer.AnalyzeIntent(context.Background(), "house scheme in kerala", nil, nil, false)

	assert.Contains(t, res.FollowUpQuestion, "Let me confirm:")
	assert.Contains(t, res.FollowUpQuestion, "housing enquiry")
	assert.Contains(t, res.FollowUpQuestion, "Kerala")
}

func TestAnalyzeIntentParseFailureFallback(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{intentResponse: "no json here"})

	res, status := analyzer.AnalyzeIntent(context.Background(), "anything", nil, nil, false)

	assert.Equal(t, StatusFallback, status)
	assert.Equal(t, "UNKNOWN", res.Intent)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.MissingFields)
	assert.Empty(t, res.SuggestedSchemes)
	assert.NotEmpty(t, res.FollowUpQuestion)
	assert.Nil(t, res.NavigationStep)
}

func TestAnalyzeIntentFallbackLongConversationSuffix(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{intentErr: errors.New("boom")})

	res, status := analyzer.AnalyzeIntent(context.Background(), "anything", nil, nil, true)

	assert.Equal(t, StatusFallback, status)
	assert.Contains(t, res.Explanation, summarySuffix)
	assert.NotContains(t, res.FollowUpQuestion, summarySuffix)
}

func TestAnalyzeIntentTruncatesHistory(t *testing.T) {
	completer := &fakeCompleter{
		intentResponse: `{"intent":"pension_enquiry","confidence":0.95,"explanation":"ok"}`,
	}
	analyzer := NewAnalyzer(completer)

	history := []models.ConversationTurn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
		{Question: "q5", Answer: "a5"},
		{Question: "q6", Answer: "a6"},
	}

	analyzer.AnalyzeIntent(context.Background(), "next", history, nil, true)

	assert.NotContains(t, completer.lastTranscript, "q1")
	assert.Contains(t, completer.lastTranscript, "q2")
	assert.Contains(t, completer.lastTranscript, "q6")
}

func TestAnalyzeIntentSchemesContext(t *testing.T) {
	completer := &fakeCompleter{
		intentResponse: `{"intent":"pension_enquiry","confidence":0.95,"explanation":"ok"}`,
	}
	analyzer := NewAnalyzer(completer)

	matches := []models.Scheme{{ID: "s1", Name: "Senior Citizen Pension", Category: "pension"}}
	analyzer.AnalyzeIntent(context.Background(), "pension", nil, matches, false)

	assert.Contains(t, completer.lastSchemes, "Senior Citizen Pension")

	analyzer.AnalyzeIntent(context.Background(), "pension", nil, nil, false)
	assert.Equal(t, "[]", completer.lastSchemes)
}
