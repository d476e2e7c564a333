package intent

import (
	"fmt"
	"strings"

	"github.com/scheme-sahayak/backend/internal/storage/models"
)

// Action is the deterministic outcome of the confidence gate. The
// prompt asks the model to behave this way, but model compliance is not
// guaranteed, so the calling code enforces the decision on whatever the
// model returns.
type Action int

const (
	AnswerDirectly Action = iota
	AskConfirmation
	Redirect
)

const (
	lowConfidenceCutoff  = 0.60
	highConfidenceCutoff = 0.90

	// OfficialChannel is the fixed redirect target for requests the
	// assistant cannot answer definitively.
	OfficialChannel = "your nearest Common Service Centre or the national helpline 1800-11-1555"

	confirmPrefix = "Let me confirm:"
	summarySuffix = "Would you like a quick summary of what we discussed so far?"
)

// Decide maps a reported confidence and conversation state to the
// action the response must take.
func Decide(confidence float64, intentConfirmed, outOfScope bool) Action {
	if outOfScope || confidence < lowConfidenceCutoff {
		return Redirect
	}
	if !intentConfirmed && confidence < highConfidenceCutoff {
		return AskConfirmation
	}
	return AnswerDirectly
}

// enforce rewrites a model-produced result so it obeys the confirmation
// gate, the low-confidence redirect, the memory rule and the
// long-conversation suffix, regardless of what the model returned.
func enforce(res *Result, history []models.ConversationTurn, utterance string, isLong bool) *Result {
	res.MissingFields = filterKnownFields(res.MissingFields, history)

	outOfScope := res.Intent == "out_of_scope"
	confirmed := intentConfirmed(history)

	switch Decide(res.Confidence, confirmed, outOfScope) {
	case Redirect:
		res.Explanation = fmt.Sprintf(
			"Here is what I understood: you are asking about %s. I cannot give you a definitive answer on this. Please contact %s.",
			topicOf(res.Intent), OfficialChannel)
		if res.Confidence > 0.5 {
			res.Confidence = 0.5
		}
		res.FollowUpQuestion = ""
		res.NavigationStep = nil
	case AskConfirmation:
		res.FollowUpQuestion = fmt.Sprintf("%s you are asking about %s in %s. Is that correct?",
			confirmPrefix, topicOf(res.Intent), detectState(history, utterance))
	}

	if isLong {
		appendSummarySuffix(res)
	}

	return res
}

// appendSummarySuffix adds the recap offer to the explanation, never to
// the follow-up question.
func appendSummarySuffix(res *Result) {
	if strings.Contains(res.Explanation, summarySuffix) {
		return
	}
	if res.Explanation != "" {
		res.Explanation += " "
	}
	res.Explanation += summarySuffix
}

// filterKnownFields drops missing-field entries whose subject the user
// already provided earlier in the conversation.
func filterKnownFields(fields []string, history []models.ConversationTurn) []string {
	if len(fields) == 0 {
		return []string{}
	}

	var joined strings.Builder
	for _, turn := range history {
		joined.WriteString(strings.ToLower(turn.Question))
		joined.WriteString(" ")
		joined.WriteString(strings.ToLower(turn.Answer))
		joined.WriteString(" ")
	}
	historyText := joined.String()

	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		needle := strings.ReplaceAll(strings.ToLower(f), "_", " ")
		if needle != "" && strings.Contains(historyText, needle) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// intentConfirmed reports whether the user already answered an earlier
// confirmation question affirmatively in this conversation.
func intentConfirmed(history []models.ConversationTurn) bool {
	pending := false
	for _, turn := range history {
		if pending && isAffirmative(turn.Question) {
			return true
		}
		pending = strings.Contains(turn.Answer, confirmPrefix)
	}
	return false
}

var affirmatives = []string{"yes", "yeah", "yep", "haan", "ok", "okay", "sure", "correct", "right", "हाँ", "हां", "ஆம்"}

func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, a := range affirmatives {
		if t == a || strings.HasPrefix(t, a+" ") || strings.HasPrefix(t, a+",") || strings.HasPrefix(t, a+".") {
			return true
		}
	}
	return false
}

func topicOf(intentName string) string {
	if intentName == "" || intentName == "UNKNOWN" {
		return "government schemes"
	}
	return strings.ReplaceAll(strings.ToLower(intentName), "_", " ")
}

var knownStates = []string{
	"andhra pradesh", "arunachal pradesh", "assam", "bihar", "chhattisgarh",
	"goa", "gujarat", "haryana", "himachal pradesh", "jharkhand", "karnataka",
	"kerala", "madhya pradesh", "maharashtra", "manipur", "meghalaya",
	"mizoram", "nagaland", "odisha", "punjab", "rajasthan", "sikkim",
	"tamil nadu", "telangana", "tripura", "uttar pradesh", "uttarakhand",
	"west bengal", "delhi",
}

// detectState finds the most recently mentioned Indian state in the
// utterance or history, defaulting to a neutral placeholder.
func detectState(history []models.ConversationTurn, utterance string) string {
	texts := []string{strings.ToLower(utterance)}
	for i := len(history) - 1; i >= 0; i-- {
		texts = append(texts, strings.ToLower(history[i].Question))
	}

	for _, text := range texts {
		for _, state := range knownStates {
			if strings.Contains(text, state) {
				return titleCase(state)
			}
		}
	}
	return "your state"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
