package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheme-sahayak/backend/internal/intent"
	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
)

type fakeSchemeStore struct {
	filterResult []models.Scheme
	filterErr    error
	rankedResult []models.Scheme
	rankedErr    error
	rankedQuery  string
	langResult   []models.Scheme
	langErr      error
	scheme       *models.Scheme
}

func (f *fakeSchemeStore) FilterSchemes(_ context.Context, _, _ string, _ int) ([]models.Scheme, error) {
	return f.filterResult, f.filterErr
}

func (f *fakeSchemeStore) SearchSchemesRanked(_ context.Context, query string, _ int) ([]models.Scheme, error) {
	f.rankedQuery = query
	return f.rankedResult, f.rankedErr
}

func (f *fakeSchemeStore) SearchSchemesByLanguage(_ context.Context, _, _ string) ([]models.Scheme, error) {
	return f.langResult, f.langErr
}

func (f *fakeSchemeStore) GetScheme(_ context.Context, id string) (*models.Scheme, error) {
	if f.scheme == nil || f.scheme.ID != id {
		return nil, storage.ErrNotFound
	}
	return f.scheme, nil
}

type fakeAnalyzer struct {
	analysis *intent.QueryAnalysis
	status   intent.Status
	called   bool
}

func (f *fakeAnalyzer) AnalyzeQuery(_ context.Context, _ string) (*intent.QueryAnalysis, intent.Status) {
	f.called = true
	return f.analysis, f.status
}

func testStub() StubTemplates {
	return StubTemplates{
		Name:            `Schemes related to "{keyword}"`,
		NameHI:          `"{keyword}" योजनाएं`,
		NameTA:          `"{keyword}" திட்டங்கள்`,
		Description:     `No local match for "{keyword}".`,
		DescriptionHI:   `"{keyword}" नहीं मिला।`,
		DescriptionTA:   `"{keyword}" இல்லை.`,
		EligibilityNote: "Please check the official government website for eligibility details.",
	}
}

func scheme(id, name string) models.Scheme {
	return models.Scheme{ID: id, Name: name}
}

func TestGetSchemesFastPath(t *testing.T) {
	store := &fakeSchemeStore{filterResult: []models.Scheme{scheme("s1", "Pension")}}
	analyzer := &fakeAnalyzer{}
	m := New(store, analyzer, 50, testStub())

	schemes, smart, err := m.GetSchemes(context.Background(), "pension", "", "en", 10)

	require.NoError(t, err)
	assert.False(t, smart)
	assert.Len(t, schemes, 1)
	assert.False(t, analyzer.called, "fallback must not run when the fast path has results")
}

func TestGetSchemesNoFallbackForShortCategory(t *testing.T) {
	store := &fakeSchemeStore{}
	analyzer := &fakeAnalyzer{}
	m := New(store, analyzer, 50, testStub())

	// Three runes is at the boundary and must not trigger the fallback.
	schemes, smart, err := m.GetSchemes(context.Background(), "", "xyz", "en", 10)

	require.NoError(t, err)
	assert.False(t, smart)
	assert.Empty(t, schemes)
	assert.False(t, analyzer.called)
}

func TestGetSchemesNoFallbackWithoutCategory(t *testing.T) {
	store := &fakeSchemeStore{}
	analyzer := &fakeAnalyzer{}
	m := New(store, analyzer, 50, testStub())

	schemes, smart, err := m.GetSchemes(context.Background(), "no such keyword", "", "en", 10)

	require.NoError(t, err)
	assert.False(t, smart)
	assert.Empty(t, schemes)
	assert.False(t, analyzer.called)
}

func TestGetSchemesSmartFallback(t *testing.T) {
	store := &fakeSchemeStore{
		rankedResult: []models.Scheme{scheme("s2", "Kisan Samman Nidhi")},
	}
	analyzer := &fakeAnalyzer{
		analysis: &intent.QueryAnalysis{Intent: "scheme_search", Keywords: []string{"farmer", "income", "support"}, Language: "en"},
		status:   intent.StatusOK,
	}
	m := New(store, analyzer, 50, testStub())

	schemes, smart, err := m.GetSchemes(context.Background(), "", "help for farmers", "en", 10)

	require.NoError(t, err)
	assert.True(t, smart)
	assert.Len(t, schemes, 1)
	assert.Equal(t, "farmer income support", store.rankedQuery)
}

func TestGetSchemesFallbackFailureSwallowed(t *testing.T) {
	store := &fakeSchemeStore{rankedErr: errors.New("search down")}
	analyzer := &fakeAnalyzer{
		analysis: &intent.QueryAnalysis{Keywords: []string{"farmer"}},
		status:   intent.StatusFallback,
	}
	m := New(store, analyzer, 50, testStub())

	schemes, smart, err := m.GetSchemes(context.Background(), "", "help for farmers", "en", 10)

	require.NoError(t, err, "fallback failures must be swallowed")
	assert.True(t, smart)
	assert.Empty(t, schemes)
}

func TestGetSchemesFallbackEmptyKeywords(t *testing.T) {
	store := &fakeSchemeStore{}
	analyzer := &fakeAnalyzer{analysis: &intent.QueryAnalysis{Keywords: nil}}
	m := New(store, analyzer, 50, testStub())

	schemes, smart, err := m.GetSchemes(context.Background(), "", "help for farmers", "en", 10)

	require.NoError(t, err)
	assert.True(t, smart)
	assert.Empty(t, schemes)
}

func TestGetSchemesFastPathErrorPropagates(t *testing.T) {
	store := &fakeSchemeStore{filterErr: errors.New("db closed")}
	m := New(store, &fakeAnalyzer{}, 50, testStub())

	_, _, err := m.GetSchemes(context.Background(), "pension", "", "en", 10)

	assert.Error(t, err)
}

func TestSearchWithLanguagePassesThroughResults(t *testing.T) {
	store := &fakeSchemeStore{langResult: []models.Scheme{scheme("s1", "Pension")}}
	m := New(store, &fakeAnalyzer{}, 50, testStub())

	schemes, err := m.SearchWithLanguage(context.Background(), "pension", "en")

	require.NoError(t, err)
	require.Len(t, schemes, 1)
	assert.False(t, schemes[0].IsExternal)
}

func TestSearchWithLanguageSynthesizesStub(t *testing.T) {
	store := &fakeSchemeStore{}
	m := New(store, &fakeAnalyzer{}, 50, testStub())

	schemes, err := m.SearchWithLanguage(context.Background(), "quantum farming", "en")

	require.NoError(t, err)
	require.Len(t, schemes, 1, "non-empty keyword must never yield zero results")

	stub := schemes[0]
	assert.True(t, stub.IsExternal)
	assert.Equal(t, "external_api", stub.Source)
	assert.True(t, IsExternalID(stub.ID), "stub id %q must match the external pattern", stub.ID)
	assert.Contains(t, stub.Name, "quantum farming")
	assert.Contains(t, stub.NameHI, "quantum farming")
	assert.Contains(t, stub.NameTA, "quantum farming")
}

func TestSearchWithLanguageStoreErrorDegradesToStub(t *testing.T) {
	store := &fakeSchemeStore{langErr: errors.New("db closed")}
	m := New(store, &fakeAnalyzer{}, 50, testStub())

	schemes, err := m.SearchWithLanguage(context.Background(), "pension", "hi")

	require.NoError(t, err)
	require.Len(t, schemes, 1)
	assert.True(t, schemes[0].IsExternal)
}

func TestGetSchemeDetailsExternalID(t *testing.T) {
	m := New(&fakeSchemeStore{}, &fakeAnalyzer{}, 50, testStub())

	details, err := m.GetSchemeDetails(context.Background(), "ext-1712345678901-1", "en")

	require.NoError(t, err)
	assert.True(t, details.IsExternal)
	assert.Equal(t, "ext-1712345678901-1", details.ID)
	assert.NotEmpty(t, details.Name)
}

func TestGetSchemeDetailsNotFound(t *testing.T) {
	m := New(&fakeSchemeStore{}, &fakeAnalyzer{}, 50, testStub())

	_, err := m.GetSchemeDetails(context.Background(), "missing", "en")

	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetSchemeDetailsLocalization(t *testing.T) {
	store := &fakeSchemeStore{scheme: &models.Scheme{
		ID:          "s1",
		Name:        "Senior Citizen Pension",
		NameHI:      "वरिष्ठ नागरिक पेंशन",
		Description: "Monthly pension.",
		Eligibility: "Age 60+",
	}}
	m := New(store, &fakeAnalyzer{}, 50, testStub())

	hi, err := m.GetSchemeDetails(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "वरिष्ठ नागरिक पेंशन", hi.Name)
	assert.Equal(t, "Monthly pension.", hi.Description, "missing localized text falls back to English")

	ta, err := m.GetSchemeDetails(context.Background(), "s1", "ta")
	require.NoError(t, err)
	assert.Equal(t, "Senior Citizen Pension", ta.Name)
}

func TestIsExternalID(t *testing.T) {
	assert.True(t, IsExternalID("ext-1712345678901-1"))
	assert.False(t, IsExternalID("ext-abc-1"))
	assert.False(t, IsExternalID("s1"))
	assert.False(t, IsExternalID("prefix-ext-1712345678901-1"))
}
