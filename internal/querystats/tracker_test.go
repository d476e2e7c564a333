package querystats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
)

type fakeQueryStore struct {
	records map[string]*models.QueryRecord
}

func newFakeQueryStore() *fakeQueryStore {
	return &fakeQueryStore{records: make(map[string]*models.QueryRecord)}
}

func (f *fakeQueryStore) GetQueryRecord(_ context.Context, normalizedForm string) (*models.QueryRecord, error) {
	rec, ok := f.records[normalizedForm]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeQueryStore) ListQueryRecords(_ context.Context) ([]models.QueryRecord, error) {
	out := make([]models.QueryRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeQueryStore) InsertQueryRecord(_ context.Context, rec *models.QueryRecord) error {
	copied := *rec
	f.records[rec.NormalizedForm] = &copied
	return nil
}

func (f *fakeQueryStore) UpdateQueryRecord(_ context.Context, rec *models.QueryRecord) error {
	copied := *rec
	f.records[rec.NormalizedForm] = &copied
	return nil
}

func TestTrackCreatesNewRecord(t *testing.T) {
	store := newFakeQueryStore()
	tracker := NewTracker(store, 0.7)

	require.NoError(t, tracker.Track(context.Background(), "Pension Scheme", "en"))

	rec, ok := store.records["pension scheme"]
	require.True(t, ok)
	assert.Equal(t, "Pension Scheme", rec.OriginalText)
	assert.Equal(t, 1, rec.SearchCount)
	assert.Equal(t, "en", rec.Language)
	assert.Empty(t, rec.RelatedQueries)
}

func TestTrackIncrementsExactMatch(t *testing.T) {
	store := newFakeQueryStore()
	tracker := NewTracker(store, 0.7)
	ctx := context.Background()

	require.NoError(t, tracker.Track(ctx, "pension scheme", "en"))
	require.NoError(t, tracker.Track(ctx, "  Pension   Scheme! ", "en"))

	require.Len(t, store.records, 1)
	assert.Equal(t, 2, store.records["pension scheme"].SearchCount)
}

func TestTrackFoldsSimilarPhrasing(t *testing.T) {
	store := newFakeQueryStore()
	tracker := NewTracker(store, 0.7)
	ctx := context.Background()

	require.NoError(t, tracker.Track(ctx, "free health care", "en"))
	require.NoError(t, tracker.Track(ctx, "free health care scheme", "en"))

	require.Len(t, store.records, 1)
	rec := store.records["free health care"]
	assert.Equal(t, 2, rec.SearchCount)
	assert.Equal(t, []string{"free health care scheme"}, rec.RelatedQueries)

	// Repeating the folded phrasing increments but does not duplicate.
	require.NoError(t, tracker.Track(ctx, "free health care scheme", "en"))
	rec = store.records["free health care"]
	assert.Equal(t, 3, rec.SearchCount)
	assert.Equal(t, []string{"free health care scheme"}, rec.RelatedQueries)
}

func TestTrackDissimilarCreatesSeparateRecords(t *testing.T) {
	store := newFakeQueryStore()
	tracker := NewTracker(store, 0.7)
	ctx := context.Background()

	require.NoError(t, tracker.Track(ctx, "pension scheme", "en"))
	require.NoError(t, tracker.Track(ctx, "housing loan subsidy", "en"))

	assert.Len(t, store.records, 2)
}

func TestTrackIgnoresEmptyText(t *testing.T) {
	store := newFakeQueryStore()
	tracker := NewTracker(store, 0.7)

	require.NoError(t, tracker.Track(context.Background(), "  ?! ", "en"))
	assert.Empty(t, store.records)
}
