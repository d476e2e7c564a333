package querystats

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

// DefaultSimilarityThreshold is the Jaccard score at which two
// differently-phrased queries are folded into one record.
const DefaultSimilarityThreshold = 0.7

type Store interface {
	GetQueryRecord(ctx context.Context, normalizedForm string) (*models.QueryRecord, error)
	ListQueryRecords(ctx context.Context) ([]models.QueryRecord, error)
	InsertQueryRecord(ctx context.Context, rec *models.QueryRecord) error
	UpdateQueryRecord(ctx context.Context, rec *models.QueryRecord) error
}

// Tracker maintains the deduplicated, count-weighted record of user
// search phrasings that drives FAQ synthesis. Track is called from
// every search entry point.
type Tracker struct {
	store     Store
	threshold float64
}

func NewTracker(store Store, threshold float64) *Tracker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Tracker{store: store, threshold: threshold}
}

// Track observes one search. Exact normalized match increments the
// record; a similar record absorbs the new phrasing into its related
// queries; otherwise a fresh record starts at count 1.
func (t *Tracker) Track(ctx context.Context, text, language string) error {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	now := time.Now()

	rec, err := t.store.GetQueryRecord(ctx, normalized)
	if err == nil {
		rec.SearchCount++
		rec.LastSeenAt = now
		return t.store.UpdateQueryRecord(ctx, rec)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	records, err := t.store.ListQueryRecords(ctx)
	if err != nil {
		return err
	}

	for i := range records {
		if !AreSimilar(records[i].NormalizedForm, normalized, t.threshold) {
			continue
		}

		similar := records[i]
		if !containsString(similar.RelatedQueries, text) {
			similar.RelatedQueries = append(similar.RelatedQueries, text)
		}
		similar.SearchCount++
		similar.LastSeenAt = now

		logger.Debug("Query folded into similar record",
			zap.String("phrase", text),
			zap.String("record", similar.NormalizedForm),
		)
		return t.store.UpdateQueryRecord(ctx, &similar)
	}

	return t.store.InsertQueryRecord(ctx, &models.QueryRecord{
		NormalizedForm: normalized,
		OriginalText:   text,
		SearchCount:    1,
		Language:       language,
		RelatedQueries: []string{},
		LastSeenAt:     now,
		CreatedAt:      now,
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
