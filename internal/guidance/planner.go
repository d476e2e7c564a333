package guidance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/matcher"
	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

type SchemeStore interface {
	GetScheme(ctx context.Context, id string) (*models.Scheme, error)
}

// Planner renders a scheme's application steps as ordered navigation
// instructions in the requested language.
type Planner struct {
	store SchemeStore
}

func NewPlanner(store SchemeStore) *Planner {
	return &Planner{store: store}
}

type NavigationPlan struct {
	SchemeID   string           `json:"schemeId"`
	SchemeName string           `json:"schemeName"`
	Language   string           `json:"language"`
	Steps      []NavigationStep `json:"steps"`
}

type NavigationStep struct {
	Number        int    `json:"number"`
	Instruction   string `json:"instruction"`
	Location      string `json:"location,omitempty"`
	Rationale     string `json:"rationale,omitempty"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
}

// phrases holds the per-language framing used around the English step
// content. Step titles and actions are stored in English; the framing
// keeps the instruction readable for hi/ta users.
type phrases struct {
	stepLabel string
	visit     string
	fallback  string
}

var phrasebook = map[string]phrases{
	"en": {
		stepLabel: "Step %d: %s",
		visit:     "Visit %s.",
		fallback:  "Visit your nearest Common Service Centre with your Aadhaar card and ask about this scheme.",
	},
	"hi": {
		stepLabel: "चरण %d: %s",
		visit:     "%s पर जाएं।",
		fallback:  "अपने नज़दीकी जन सेवा केंद्र पर आधार कार्ड के साथ जाएं और इस योजना के बारे में पूछें।",
	},
	"ta": {
		stepLabel: "படி %d: %s",
		visit:     "%s சென்று விண்ணப்பிக்கவும்.",
		fallback:  "உங்கள் அருகிலுள்ள பொது சேவை மையத்திற்கு ஆதார் அட்டையுடன் சென்று இந்தத் திட்டம் பற்றி கேளுங்கள்.",
	},
}

func phrasesFor(language string) phrases {
	if p, ok := phrasebook[language]; ok {
		return p
	}
	return phrasebook["en"]
}

// PlanSteps loads the scheme and renders its application steps in
// order. External ids and schemes with no recorded steps get a single
// generic walk-in instruction instead of an empty plan.
func (p *Planner) PlanSteps(ctx context.Context, schemeID, language string) (*NavigationPlan, error) {
	if matcher.IsExternalID(schemeID) {
		return p.genericPlan(schemeID, "", language), nil
	}

	scheme, err := p.store.GetScheme(ctx, schemeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load scheme for guidance: %w", err)
	}

	if len(scheme.Steps) == 0 {
		logger.Debug("Scheme has no recorded steps, using generic plan",
			zap.String("scheme_id", schemeID))
		return p.genericPlan(schemeID, matcher.LocalizedName(scheme, language), language), nil
	}

	ph := phrasesFor(language)
	steps := make([]NavigationStep, 0, len(scheme.Steps))
	for _, s := range scheme.Steps {
		steps = append(steps, NavigationStep{
			Number:        s.Number,
			Instruction:   renderInstruction(ph, s),
			Location:      s.Location,
			Rationale:     s.Rationale,
			EstimatedTime: s.EstimatedTime,
		})
	}

	return &NavigationPlan{
		SchemeID:   scheme.ID,
		SchemeName: matcher.LocalizedName(scheme, language),
		Language:   language,
		Steps:      steps,
	}, nil
}

// FirstInstruction returns the opening navigation instruction for a
// scheme, for use as the single next-step hint in chat responses. An
// empty string means no guidance is available.
func (p *Planner) FirstInstruction(ctx context.Context, schemeID, language string) string {
	plan, err := p.PlanSteps(ctx, schemeID, language)
	if err != nil || len(plan.Steps) == 0 {
		return ""
	}
	return plan.Steps[0].Instruction
}

func renderInstruction(ph phrases, s models.ApplicationStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, ph.stepLabel, s.Number, s.Title)
	if s.Action != "" {
		b.WriteString(" ")
		b.WriteString(s.Action)
		if !strings.HasSuffix(s.Action, ".") {
			b.WriteString(".")
		}
	}
	if s.Location != "" {
		b.WriteString(" ")
		fmt.Fprintf(&b, ph.visit, s.Location)
	}
	return b.String()
}

func (p *Planner) genericPlan(schemeID, schemeName, language string) *NavigationPlan {
	ph := phrasesFor(language)
	return &NavigationPlan{
		SchemeID:   schemeID,
		SchemeName: schemeName,
		Language:   language,
		Steps: []NavigationStep{
			{Number: 1, Instruction: ph.fallback},
		},
	}
}
