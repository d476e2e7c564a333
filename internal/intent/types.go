package intent

// Status reports how a model-backed analysis was produced, so callers
// can distinguish "degraded but usable" from a clean result without
// inspecting errors.
type Status int

const (
	StatusOK Status = iota
	StatusFallback
)

func (s Status) String() string {
	if s == StatusFallback {
		return "fallback"
	}
	return "ok"
}

// QueryAnalysis is the structured reading of a raw search utterance.
type QueryAnalysis struct {
	Intent   string   `json:"intent"`
	Keywords []string `json:"keywords"`
	Language string   `json:"language"`
}

// Result is the structured intent for one conversational turn, after
// policy enforcement.
type Result struct {
	Intent           string   `json:"intent"`
	MissingFields    []string `json:"missing_fields"`
	Confidence       float64  `json:"confidence"`
	SuggestedSchemes []string `json:"suggested_schemes"`
	FollowUpQuestion string   `json:"follow_up_question"`
	Explanation      string   `json:"explanation"`
	NavigationStep   *string  `json:"navigation_step"`
}
