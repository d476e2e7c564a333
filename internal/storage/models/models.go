package models

import "time"

// Scheme is a government benefit program record. English fields are
// mandatory; Hindi/Tamil fields are optional and fall back to English
// when absent.
type Scheme struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	NameHI        string            `json:"name_hi,omitempty"`
	NameTA        string            `json:"name_ta,omitempty"`
	Description   string            `json:"description"`
	DescriptionHI string            `json:"description_hi,omitempty"`
	DescriptionTA string            `json:"description_ta,omitempty"`
	Category      string            `json:"category"`
	CategoryHI    string            `json:"category_hi,omitempty"`
	CategoryTA    string            `json:"category_ta,omitempty"`
	Eligibility   string            `json:"eligibility"`
	EligibilityHI string            `json:"eligibility_hi,omitempty"`
	EligibilityTA string            `json:"eligibility_ta,omitempty"`
	Criteria      Criteria          `json:"criteria"`
	Benefits      []string          `json:"benefits"`
	Documents     []string          `json:"documents"`
	Steps         []ApplicationStep `json:"steps"`
	Source        string            `json:"source,omitempty"`
	IsExternal    bool              `json:"isExternal"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Criteria holds the structured eligibility bounds attached to a scheme.
// Nil pointers mean the bound is not part of the scheme's rules, as
// opposed to a zero bound.
type Criteria struct {
	MinAge        *int     `json:"min_age,omitempty"`
	MaxAge        *int     `json:"max_age,omitempty"`
	MaxIncome     *float64 `json:"max_income,omitempty"`
	RequiresBPL   bool     `json:"requires_bpl"`
	Disability    bool     `json:"disability"`
	Student       bool     `json:"student"`
	Veteran       bool     `json:"veteran"`
	HouseholdType string   `json:"household_type,omitempty"`
	ExcludesCar   bool     `json:"excludes_car_owners"`
}

// ApplicationStep is one ordered step in a scheme's application process.
type ApplicationStep struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Action        string `json:"action"`
	Location      string `json:"location"`
	Rationale     string `json:"rationale,omitempty"`
	EstimatedTime string `json:"estimated_time,omitempty"`
}

// QueryRecord tracks how often a normalized search phrasing has been
// observed. NormalizedForm is the unique key; RelatedQueries holds
// distinct original phrasings folded into this record by the similarity
// rule. Records are never deleted by normal operation.
type QueryRecord struct {
	NormalizedForm string    `json:"normalized_form"`
	OriginalText   string    `json:"original_text"`
	SearchCount    int       `json:"search_count"`
	Language       string    `json:"language"`
	RelatedQueries []string  `json:"related_queries"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationTurn is one question/answer exchange. At least one of
// SessionID or UserID is set. Append-only.
type ConversationTurn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// FAQ is a stored question/answer pair. Question is the dedup key.
type FAQ struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	Category        string    `json:"category"`
	IsAutoGenerated bool      `json:"isAutoGenerated"`
	CreatedAt       time.Time `json:"created_at"`
}

// UserProfile is the read-only projection consumed by the eligibility
// evaluator. Nil Age/Income mean "unknown", never zero.
type UserProfile struct {
	ID     string   `json:"id"`
	Age    *int     `json:"age,omitempty"`
	Income *float64 `json:"income,omitempty"`
	State  string   `json:"state,omitempty"`
	Gender string   `json:"gender,omitempty"`
}
