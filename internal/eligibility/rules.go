package eligibility

import (
	"strings"

	"github.com/scheme-sahayak/backend/internal/storage/models"
)

// Verdict is the four-valued eligibility outcome. Eligible and
// NotEligible marshal as JSON booleans; Maybe and Unknown marshal as
// strings. Callers must never collapse this to a plain boolean.
type Verdict string

const (
	Eligible    Verdict = "true"
	NotEligible Verdict = "false"
	Maybe       Verdict = "maybe"
	Unknown     Verdict = "unknown"
)

func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case Eligible:
		return []byte("true"), nil
	case NotEligible:
		return []byte("false"), nil
	default:
		return []byte(`"` + string(v) + `"`), nil
	}
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*v = Eligible
	case "false":
		*v = NotEligible
	case "maybe":
		*v = Maybe
	default:
		*v = Unknown
	}
	return nil
}

// Result is the outcome of one rule evaluation.
type Result struct {
	Eligible Verdict `json:"eligible"`
	Scheme   string  `json:"scheme,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Details  string  `json:"details"`
}

const (
	pensionMinAge       = 60
	pensionIncomeLimit  = 200000
	educationMinAge     = 18
	educationMaxAge     = 35
	healthIncomeCeiling = 300000
)

// Check maps an intent string and a user profile to a deterministic
// eligibility verdict. Topics are tested in fixed priority order and
// the first matching branch wins, so an utterance naming both pension
// and health is judged on the pension rules only. No external calls.
func Check(intentText string, profile *models.UserProfile) Result {
	if profile == nil {
		profile = &models.UserProfile{}
	}
	text := strings.ToLower(intentText)

	switch {
	case containsAny(text, "pension", "old age"):
		return checkPension(profile)
	case containsAny(text, "education", "student", "scholarship"):
		return checkEducation(profile)
	case containsAny(text, "health", "medical", "insurance"):
		return checkHealth(profile)
	case containsAny(text, "house", "home", "awas"):
		return Result{
			Eligible: Maybe,
			Scheme:   "Pradhan Mantri Awas Yojana",
			Reason:   "Housing eligibility depends on income group, location and current home ownership. Please share those details.",
			Details:  "Subsidized housing and interest subsidy on home loans for eligible families.",
		}
	default:
		return Result{
			Eligible: Unknown,
			Reason:   "Please tell me which kind of benefit you are asking about, for example pension, education, health or housing.",
			Details:  "No rule matched the request.",
		}
	}
}

func checkPension(profile *models.UserProfile) Result {
	// Missing income defaults to 0 for this comparison; missing age
	// stays unknown and fails the minimum-age requirement.
	income := 0.0
	if profile.Income != nil {
		income = *profile.Income
	}

	if profile.Age == nil || *profile.Age < pensionMinAge {
		return Result{
			Eligible: NotEligible,
			Scheme:   "Senior Citizen Pension",
			Reason:   "Minimum age is 60.",
			Details:  "Old-age pension requires the applicant to be at least 60 years old.",
		}
	}
	if income >= pensionIncomeLimit {
		return Result{
			Eligible: NotEligible,
			Scheme:   "Senior Citizen Pension",
			Reason:   "Annual income must be below ₹2,00,000.",
			Details:  "The pension is limited to senior citizens below the income ceiling.",
		}
	}
	return Result{
		Eligible: Eligible,
		Scheme:   "Senior Citizen Pension",
		Details:  "Monthly pension for citizens aged 60 and above with annual income below ₹2,00,000. Apply at your local panchayat or municipal office.",
	}
}

func checkEducation(profile *models.UserProfile) Result {
	if profile.Age == nil || *profile.Age < educationMinAge || *profile.Age > educationMaxAge {
		return Result{
			Eligible: NotEligible,
			Scheme:   "National Scholarship",
			Reason:   "Age must be between 18 and 35.",
			Details:  "Student scholarships cover applicants aged 18 to 35.",
		}
	}
	return Result{
		Eligible: Eligible,
		Scheme:   "National Scholarship",
		Details:  "Scholarship support for students aged 18 to 35. Apply through the National Scholarship Portal with your enrollment proof.",
	}
}

func checkHealth(profile *models.UserProfile) Result {
	income := 0.0
	if profile.Income != nil {
		income = *profile.Income
	}

	if income >= healthIncomeCeiling {
		return Result{
			Eligible: NotEligible,
			Scheme:   "Ayushman Bharat",
			Reason:   "Annual income must be below ₹3,00,000. You may still claim tax benefits on health insurance premiums under Section 80D.",
			Details:  "The health cover targets families below the income ceiling.",
		}
	}
	return Result{
		Eligible: Eligible,
		Scheme:   "Ayushman Bharat",
		Details:  "Health cover of up to ₹5,00,000 per family per year for families with annual income below ₹3,00,000.",
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
