package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

func TestParseSuggestionsWellFormed(t *testing.T) {
	raw := []byte(`{"suggestions":[
		{"type":"qa","front":"What is X?","back":"Y","pageRefs":[1,2],"confidence":0.8,"difficulty":"easy"},
		{"type":"cloze","front":"X is {{c1::Y}}","back":"Y","pageRefs":[3],"difficulty":"hard"}
	]}`)

	payload, err := ParseSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, payload.Suggestions, 2)

	first := payload.Suggestions[0]
	assert.Equal(t, models.CardTypeQA, first.Type)
	assert.Equal(t, []int{1, 2}, first.PageRefs)
	require.NotNil(t, first.Confidence)
	assert.Equal(t, 0.8, *first.Confidence)
	assert.Equal(t, DifficultyEasy, first.Difficulty)

	assert.Equal(t, models.CardTypeCloze, payload.Suggestions[1].Type)
}

func TestCoerceDefaults(t *testing.T) {
	s, ok := Coerce(RawSuggestion{
		Type:     "multiple-choice",
		Front:    "  front  ",
		Back:     "back",
		PageRefs: []float64{2.9},
	})
	require.True(t, ok)
	assert.Equal(t, models.CardTypeQA, s.Type)
	assert.Equal(t, "front", s.Front)
	assert.Equal(t, DifficultyMedium, s.Difficulty)
	assert.Equal(t, []int{2}, s.PageRefs)
	assert.Nil(t, s.Confidence)
}

func TestCoercePageRefsFloorAndClamp(t *testing.T) {
	s, ok := Coerce(RawSuggestion{
		Front:    "f",
		Back:     "b",
		PageRefs: []float64{0, -3, 1.7, 4.2},
	})
	require.True(t, ok)
	assert.Equal(t, []int{1, 1, 1, 4}, s.PageRefs)
}

func TestCoerceConfidenceClamp(t *testing.T) {
	high := 1.4
	s, ok := Coerce(RawSuggestion{Front: "f", Back: "b", PageRefs: []float64{1}, Confidence: &high})
	require.True(t, ok)
	require.NotNil(t, s.Confidence)
	assert.Equal(t, 1.0, *s.Confidence)

	low := -0.2
	s, ok = Coerce(RawSuggestion{Front: "f", Back: "b", PageRefs: []float64{1}, Confidence: &low})
	require.True(t, ok)
	assert.Equal(t, 0.0, *s.Confidence)
}

func TestCoerceRejectsUnusable(t *testing.T) {
	_, ok := Coerce(RawSuggestion{Front: "", Back: "b", PageRefs: []float64{1}})
	assert.False(t, ok)
	_, ok = Coerce(RawSuggestion{Front: "f", Back: "   ", PageRefs: []float64{1}})
	assert.False(t, ok)
	_, ok = Coerce(RawSuggestion{Front: "f", Back: "b"})
	assert.False(t, ok)
}

func TestParseSuggestionsDropsBadEntriesKeepsGood(t *testing.T) {
	raw := []byte(`{"suggestions":[
		{"front":"","back":"b","pageRefs":[1]},
		{"front":"good","back":"card","pageRefs":[2]}
	]}`)
	payload, err := ParseSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, payload.Suggestions, 1)
	assert.Equal(t, "good", payload.Suggestions[0].Front)
}

func TestParseSuggestionsFailsWholeBatch(t *testing.T) {
	cases := map[string][]byte{
		"not json":      []byte(`suggestions: nope`),
		"empty array":   []byte(`{"suggestions":[]}`),
		"missing field": []byte(`{}`),
		"all unusable":  []byte(`{"suggestions":[{"front":"f","back":"b"}]}`),
	}
	for name, raw := range cases {
		_, err := ParseSuggestions(raw)
		require.Error(t, err, name)
		assert.True(t, core.IsValidationError(err), name)
	}
}
