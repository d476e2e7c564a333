package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scheme-sahayak/backend/internal/storage/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		confirmed  bool
		outOfScope bool
		want       Action
	}{
		{"low confidence redirects", 0.5, false, false, Redirect},
		{"out of scope redirects even when confident", 0.95, false, true, Redirect},
		{"mid confidence unconfirmed asks", 0.7, false, false, AskConfirmation},
		{"mid confidence confirmed answers", 0.7, true, false, AnswerDirectly},
		{"high confidence answers without confirmation", 0.95, false, false, AnswerDirectly},
		{"boundary 0.60 asks, not redirects", 0.60, false, false, AskConfirmation},
		{"boundary 0.90 answers", 0.90, false, false, AnswerDirectly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.confidence, tt.confirmed, tt.outOfScope))
		})
	}
}

func TestEnforceRedirect(t *testing.T) {
	follow := "What is your age?"
	nav := "Go to the portal"
	res := &Result{
		Intent:           "pension_enquiry",
		Confidence:       0.4,
		Explanation:      "model text",
		FollowUpQuestion: follow,
		NavigationStep:   &nav,
	}

	out := enforce(res, nil, "pension help", false)

	assert.Contains(t, out.Explanation, "pension enquiry")
	assert.Contains(t, out.Explanation, OfficialChannel)
	assert.LessOrEqual(t, out.Confidence, 0.5)
	assert.Empty(t, out.FollowUpQuestion)
	assert.Nil(t, out.NavigationStep)
}

func TestEnforceRedirectClampsConfidence(t *testing.T) {
	res := &Result{Intent: "out_of_scope", Confidence: 0.99}

	out := enforce(res, nil, "book a train ticket", false)

	assert.Contains(t, out.Explanation, OfficialChannel)
	assert.LessOrEqual(t, out.Confidence, 0.5)
}

func TestEnforceAskConfirmation(t *testing.T) {
	res := &Result{Intent: "pension_enquiry", Confidence: 0.75}

	out := enforce(res, nil, "pension rules in tamil nadu", false)

	assert.Equal(t,
		"Let me confirm: you are asking about pension enquiry in Tamil Nadu. Is that correct?",
		out.FollowUpQuestion)
}

func TestEnforceConfirmedSkipsConfirmation(t *testing.T) {
	history := []models.ConversationTurn{
		{Question: "pension help", Answer: "Let me confirm: you are asking about pension enquiry in Kerala. Is that correct?"},
		{Question: "yes", Answer: "Great, tell me your age."},
	}
	res := &Result{Intent: "pension_enquiry", Confidence: 0.75, FollowUpQuestion: "How old are you?"}

	out := enforce(res, history, "what next", false)

	assert.Equal(t, "How old are you?", out.FollowUpQuestion)
}

func TestEnforceAppendsSummarySuffixToExplanationOnly(t *testing.T) {
	res := &Result{Intent: "pension_enquiry", Confidence: 0.95, Explanation: "Here are the rules.", FollowUpQuestion: "Anything else?"}

	out := enforce(res, nil, "pension", true)

	assert.Contains(t, out.Explanation, summarySuffix)
	assert.NotContains(t, out.FollowUpQuestion, summarySuffix)

	// Re-applying must not duplicate the suffix.
	appendSummarySuffix(out)
	assert.Equal(t, 1, countOccurrences(out.Explanation, summarySuffix))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestFilterKnownFields(t *testing.T) {
	history := []models.ConversationTurn{
		{Question: "I am 65 years old and my annual income is two lakh", Answer: "Noted your age."},
	}

	kept := filterKnownFields([]string{"age", "state", "annual_income"}, history)

	assert.Equal(t, []string{"state"}, kept)
}

func TestFilterKnownFieldsEmptyHistory(t *testing.T) {
	kept := filterKnownFields([]string{"age", "income"}, nil)
	assert.Equal(t, []string{"age", "income"}, kept)
}

func TestIntentConfirmed(t *testing.T) {
	confirmQuestion := "Let me confirm: you are asking about pension enquiry in Kerala. Is that correct?"

	confirmed := []models.ConversationTurn{
		{Question: "pension", Answer: confirmQuestion},
		{Question: "Yes, that is right", Answer: "Great."},
	}
	assert.True(t, intentConfirmed(confirmed))

	denied := []models.ConversationTurn{
		{Question: "pension", Answer: confirmQuestion},
		{Question: "no, about housing", Answer: "Understood."},
	}
	assert.False(t, intentConfirmed(denied))

	neverAsked := []models.ConversationTurn{
		{Question: "pension", Answer: "Here are the pension rules."},
		{Question: "yes", Answer: "ok"},
	}
	assert.False(t, intentConfirmed(neverAsked))
}

func TestIsAffirmativeMultilingual(t *testing.T) {
	assert.True(t, isAffirmative("yes"))
	assert.True(t, isAffirmative("Haan, bilkul"))
	assert.True(t, isAffirmative("हाँ"))
	assert.True(t, isAffirmative("ஆம்"))
	assert.False(t, isAffirmative("no"))
	assert.False(t, isAffirmative("yesterday was fine"))
}

func TestDetectState(t *testing.T) {
	assert.Equal(t, "Tamil Nadu", detectState(nil, "schemes in Tamil Nadu"))

	history := []models.ConversationTurn{
		{Question: "I live in kerala", Answer: "Noted."},
	}
	assert.Equal(t, "Kerala", detectState(history, "what about pension"))

	assert.Equal(t, "your state", detectState(nil, "pension rules"))
}
