package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchResults() CandidateSet {
	return CandidateSet{
		Relevant: []Candidate{
			{ID: "100", Title: "Guía de despliegue"},
			{ID: "101", Title: "Runbook de base de datos"},
			{ID: "102", Title: "Plan de capacidad Q3"},
		},
		Filtered: []Candidate{
			{ID: "200", Title: "Sprint Planning 2024-05"},
		},
	}
}

func TestResolveOptionNumber(t *testing.T) {
	resolved, err := Resolve("opción 2", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "101", resolved.Candidate.ID)
	assert.Equal(t, 2, resolved.Index)
	assert.False(t, resolved.WasFiltered)
}

func TestResolveOptionNumberIsIdempotent(t *testing.T) {
	candidates := searchResults()
	first, err := Resolve("opción 2", candidates)
	require.NoError(t, err)
	second, err := Resolve("opción 2", candidates)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveNumberPrefersRelevantSubset(t *testing.T) {
	// 3 relevant + 1 filtered: "2" must mean the 2nd relevant item,
	// never the 4th overall.
	resolved, err := Resolve("2", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "101", resolved.Candidate.ID)
	assert.False(t, resolved.WasFiltered)
}

func TestResolveNumberFallsBackToCombinedList(t *testing.T) {
	resolved, err := Resolve("opción 4", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "200", resolved.Candidate.ID)
	assert.True(t, resolved.WasFiltered)
}

func TestResolveNumberOutOfRange(t *testing.T) {
	_, err := Resolve("opción 9", searchResults())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveNumericVariants(t *testing.T) {
	for _, text := range []string{"numero 1", "número 1", "#1", "ítem 1", "item 1", "1"} {
		resolved, err := Resolve(text, searchResults())
		require.NoError(t, err, "input %q", text)
		assert.Equal(t, "100", resolved.Candidate.ID, "input %q", text)
	}
}

func TestResolveOrdinals(t *testing.T) {
	cases := map[string]string{
		"la primera":  "100",
		"el segundo":  "101",
		"la tercera":  "102",
	}
	for text, wantID := range cases {
		resolved, err := Resolve(text, searchResults())
		require.NoError(t, err, "input %q", text)
		assert.Equal(t, wantID, resolved.Candidate.ID, "input %q", text)
	}
}

func TestResolveLast(t *testing.T) {
	resolved, err := Resolve("el último", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "200", resolved.Candidate.ID)
	assert.True(t, resolved.WasFiltered)
}

func TestResolveSubstringBidirectional(t *testing.T) {
	// Reference contains title fragment.
	resolved, err := Resolve("abre el runbook de base de datos por favor", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "101", resolved.Candidate.ID)

	// Title contains reference.
	resolved, err = Resolve("plan de capacidad q3", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "102", resolved.Candidate.ID)
}

func TestResolveFilteredByOtherPhrase(t *testing.T) {
	resolved, err := Resolve("muéstrame la otra", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "200", resolved.Candidate.ID)
	assert.True(t, resolved.WasFiltered)
}

func TestResolveFilteredByFullTitle(t *testing.T) {
	resolved, err := Resolve("abre la página sprint planning 2024-05", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "200", resolved.Candidate.ID)
	assert.True(t, resolved.WasFiltered)
}

func TestResolveFilteredByTitleSubstring(t *testing.T) {
	// A partial title falls through to the substring rule, which still
	// reaches the filtered subset after the relevant one.
	resolved, err := Resolve("sprint planning", searchResults())
	require.NoError(t, err)
	assert.Equal(t, "200", resolved.Candidate.ID)
	assert.True(t, resolved.WasFiltered)
}

func TestResolveSharedWordDoesNotHijackRelevant(t *testing.T) {
	candidates := CandidateSet{
		Relevant: []Candidate{
			{ID: "100", Title: "Guía de despliegue"},
		},
		Filtered: []Candidate{
			{ID: "200", Title: "Despliegue Sprint Review"},
		},
	}

	// "despliegue" appears in both titles; naming the relevant page must
	// resolve to it, not to the filtered one.
	resolved, err := Resolve("la guía de despliegue", candidates)
	require.NoError(t, err)
	assert.Equal(t, "100", resolved.Candidate.ID)
	assert.False(t, resolved.WasFiltered)

	// Naming the filtered page in full still selects it.
	resolved, err = Resolve("abre despliegue sprint review", candidates)
	require.NoError(t, err)
	assert.Equal(t, "200", resolved.Candidate.ID)
	assert.True(t, resolved.WasFiltered)
}

func TestResolveNoMatch(t *testing.T) {
	_, err := Resolve("algo completamente distinto", searchResults())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveEmptySet(t *testing.T) {
	_, err := Resolve("opción 1", CandidateSet{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveEmptyReference(t *testing.T) {
	_, err := Resolve("   ", searchResults())
	assert.ErrorIs(t, err, ErrNotFound)
}
