package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
	"github.com/scheme-sahayak/backend/pkg/utils"
)

type SchemeStore interface {
	UpsertScheme(ctx context.Context, scheme *models.Scheme) error
}

// Importer loads scheme records from CSV exports of government portal
// data. Free-text columns are frequently pasted as HTML fragments, so
// they are stripped down to plain text before storage.
type Importer struct {
	store SchemeStore
}

func NewImporter(store SchemeStore) *Importer {
	return &Importer{store: store}
}

type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

const maxReportedErrors = 20

// listSeparator splits multi-valued cells (benefits, documents).
const listSeparator = "|"

var whitespaceRun = regexp.MustCompile(`\s+`)

// ImportCSV reads scheme rows from r and upserts each one. The first
// row must be a header; unknown columns are ignored so portal exports
// with extra fields import cleanly. Rows without a name are skipped.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("CSV header is missing required column %q", "name")
	}

	report := &ImportReport{Errors: []string{}}
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Skipped++
			report.addError(fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		scheme, err := im.rowToScheme(columns, row)
		if err != nil {
			report.Skipped++
			report.addError(fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if err := im.store.UpsertScheme(ctx, scheme); err != nil {
			report.Skipped++
			report.addError(fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		report.Imported++
	}

	logger.Info("Scheme import finished",
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}

func (im *Importer) rowToScheme(columns map[string]int, row []string) (*models.Scheme, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	name := cell("name")
	if name == "" {
		return nil, fmt.Errorf("row has no scheme name")
	}

	id := cell("id")
	if id == "" {
		id = utils.HashString(strings.ToLower(name))
	}

	criteria, err := parseCriteria(cell)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	scheme := &models.Scheme{
		ID:            id,
		Name:          name,
		NameHI:        cell("name_hi"),
		NameTA:        cell("name_ta"),
		Description:   CleanText(cell("description")),
		DescriptionHI: CleanText(cell("description_hi")),
		DescriptionTA: CleanText(cell("description_ta")),
		Category:      cell("category"),
		CategoryHI:    cell("category_hi"),
		CategoryTA:    cell("category_ta"),
		Eligibility:   CleanText(cell("eligibility")),
		EligibilityHI: CleanText(cell("eligibility_hi")),
		EligibilityTA: CleanText(cell("eligibility_ta")),
		Criteria:      criteria,
		Benefits:      splitList(cell("benefits")),
		Documents:     splitList(cell("documents")),
		Steps:         []models.ApplicationStep{},
		Source:        defaultString(cell("source"), "import"),
		IsExternal:    false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return scheme, nil
}

func parseCriteria(cell func(string) string) (models.Criteria, error) {
	var c models.Criteria

	if v := cell("min_age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid min_age %q", v)
		}
		c.MinAge = &n
	}
	if v := cell("max_age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid max_age %q", v)
		}
		c.MaxAge = &n
	}
	if v := cell("max_income"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("invalid max_income %q", v)
		}
		c.MaxIncome = &f
	}

	c.RequiresBPL = parseBool(cell("requires_bpl"))
	c.Disability = parseBool(cell("requires_disability"))
	c.Student = parseBool(cell("requires_student"))
	c.Veteran = parseBool(cell("requires_veteran"))
	c.HouseholdType = cell("household_type")
	c.ExcludesCar = parseBool(cell("excludes_car"))

	return c, nil
}

// CleanText strips HTML markup from a free-text cell and collapses
// whitespace. Plain text passes through unchanged apart from the
// whitespace normalization.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.Contains(raw, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
				s.Remove()
			})
			text = doc.Text()
		}
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (r *ImportReport) addError(msg string) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}
