package faq

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheme-sahayak/backend/internal/storage/models"
)

type fakeFAQStore struct {
	top       []models.QueryRecord
	topErr    error
	questions map[string]bool
	faqs      []models.FAQ
}

func newFakeFAQStore(top ...models.QueryRecord) *fakeFAQStore {
	return &fakeFAQStore{top: top, questions: make(map[string]bool)}
}

func (f *fakeFAQStore) TopQueryRecords(_ context.Context, n int) ([]models.QueryRecord, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	if len(f.top) > n {
		return f.top[:n], nil
	}
	return f.top, nil
}

func (f *fakeFAQStore) InsertFAQ(_ context.Context, faq *models.FAQ) (bool, error) {
	if f.questions[faq.Question] {
		return false, nil
	}
	f.questions[faq.Question] = true
	f.faqs = append(f.faqs, *faq)
	return true, nil
}

func (f *fakeFAQStore) ListFAQs(_ context.Context, offset, limit int) ([]models.FAQ, error) {
	if offset >= len(f.faqs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.faqs) {
		end = len(f.faqs)
	}
	return f.faqs[offset:end], nil
}

func (f *fakeFAQStore) CountFAQs(_ context.Context) (int, error) {
	return len(f.faqs), nil
}

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateFAQs(_ context.Context, _ string, _ int) (string, error) {
	return f.response, f.err
}

type fakeLocker struct {
	available bool
	released  bool
}

func (f *fakeLocker) AcquireFAQLock(_ context.Context, _ time.Duration) (bool, error) {
	return f.available, nil
}

func (f *fakeLocker) ReleaseFAQLock(_ context.Context) error {
	f.released = true
	return nil
}

func record(original string, count int, related ...string) models.QueryRecord {
	if related == nil {
		related = []string{}
	}
	return models.QueryRecord{
		NormalizedForm: original,
		OriginalText:   original,
		SearchCount:    count,
		RelatedQueries: related,
	}
}

func TestGenerateSmartNoData(t *testing.T) {
	s := NewSynthesizer(newFakeFAQStore(), &fakeGenerator{}, nil, Config{})

	res, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.NewFAQs)
	assert.Empty(t, res.Method)
	assert.NotEmpty(t, res.Message)
}

func TestGenerateSmartModelPath(t *testing.T) {
	store := newFakeFAQStore(record("pension scheme", 12))
	gen := &fakeGenerator{
		response: "```json\n[" +
			`{"question":"Q1?","answer":"A1","category":"Pension"},` +
			`{"question":"Q2?","answer":"A2","category":"Health"},` +
			`{"question":"Q3?","answer":"A3","category":"Housing"}` +
			"]\n```",
	}
	s := NewSynthesizer(store, gen, nil, Config{})

	res, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ai", res.Method)
	require.Len(t, res.NewFAQs, 3)
	for _, f := range res.NewFAQs {
		assert.True(t, f.IsAutoGenerated)
		assert.NotEmpty(t, f.ID)
	}
}

func TestGenerateSmartModelFailureUsesTemplate(t *testing.T) {
	store := newFakeFAQStore(
		record("pension scheme", 5, "old age pension", "senior pension", "pension money"),
		record("health card", 1),
		record("housing loan", 3),
		record("scholarship", 2),
	)
	s := NewSynthesizer(store, &fakeGenerator{err: errors.New("model down")}, nil, Config{})

	res, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "fallback", res.Method)
	require.Len(t, res.NewFAQs, 3, "template fallback covers the top three queries only")

	first := res.NewFAQs[0]
	assert.Equal(t, `What schemes or information are available for "pension scheme"?`, first.Question)
	assert.Contains(t, first.Answer, "5 searches")
	assert.Contains(t, first.Answer, "old age pension, senior pension")
	assert.NotContains(t, first.Answer, "pension money", "only two related phrasings are shown")
	assert.Equal(t, "Popular", first.Category)

	second := res.NewFAQs[1]
	assert.Contains(t, second.Answer, "1 search ", "singular count must not be pluralized")
}

func TestGenerateSmartMalformedModelOutputUsesTemplate(t *testing.T) {
	store := newFakeFAQStore(record("pension scheme", 2))
	s := NewSynthesizer(store, &fakeGenerator{response: "I would suggest asking about pensions."}, nil, Config{})

	res, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Method)
	require.Len(t, res.NewFAQs, 1)
}

func TestGenerateSmartDeduplicatesQuestions(t *testing.T) {
	store := newFakeFAQStore(record("pension scheme", 2))
	store.questions[`What schemes or information are available for "pension scheme"?`] = true
	s := NewSynthesizer(store, &fakeGenerator{err: errors.New("down")}, nil, Config{})

	res, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.NewFAQs, "existing questions are skipped, not duplicated")
}

func TestGenerateSmartLockHeld(t *testing.T) {
	store := newFakeFAQStore(record("pension scheme", 2))
	locker := &fakeLocker{available: false}
	s := NewSynthesizer(store, &fakeGenerator{}, locker, Config{})

	res, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.NewFAQs)
	assert.False(t, locker.released, "a lock we did not acquire must not be released")
}

func TestGenerateSmartReleasesLock(t *testing.T) {
	store := newFakeFAQStore(record("pension scheme", 2))
	locker := &fakeLocker{available: true}
	s := NewSynthesizer(store, &fakeGenerator{err: errors.New("down")}, locker, Config{})

	_, err := s.GenerateSmart(context.Background())

	require.NoError(t, err)
	assert.True(t, locker.released)
}

func TestListPagination(t *testing.T) {
	store := newFakeFAQStore()
	for i := 0; i < 10; i++ {
		store.faqs = append(store.faqs, models.FAQ{ID: fmt.Sprintf("f%d", i), Question: fmt.Sprintf("Q%d", i)})
	}
	s := NewSynthesizer(store, &fakeGenerator{}, nil, Config{})
	ctx := context.Background()

	page1, err := s.List(ctx, 1, 4)
	require.NoError(t, err)
	assert.Len(t, page1.FAQs, 4)
	assert.Equal(t, 1, page1.Pagination.CurrentPage)
	assert.Equal(t, 3, page1.Pagination.TotalPages)
	assert.Equal(t, 10, page1.Pagination.TotalFaqs)
	assert.True(t, page1.Pagination.HasMore)

	page3, err := s.List(ctx, 3, 4)
	require.NoError(t, err)
	assert.Len(t, page3.FAQs, 2)
	assert.False(t, page3.Pagination.HasMore)
}

func TestListDefaults(t *testing.T) {
	s := NewSynthesizer(newFakeFAQStore(), &fakeGenerator{}, nil, Config{})

	page, err := s.List(context.Background(), 0, -1)

	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.NotNil(t, page.FAQs)
	assert.Empty(t, page.FAQs)
	assert.Zero(t, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasMore)
}
