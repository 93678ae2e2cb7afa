package generation

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

// Difficulty labels attached to suggestions and card tags.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Suggestion is a validated candidate flashcard.
type Suggestion struct {
	Type       string   `json:"type"`
	Front      string   `json:"front"`
	Back       string   `json:"back"`
	PageRefs   []int    `json:"pageRefs"`
	Confidence *float64 `json:"confidence,omitempty"`
	Difficulty string   `json:"difficulty"`
}

// SuggestionsPayload is the document a model call must produce.
type SuggestionsPayload struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// RawSuggestion mirrors the loose shape models (and the remote worker)
// actually emit, before field coercion.
type RawSuggestion struct {
	Type       string    `json:"type"`
	Front      string    `json:"front"`
	Back       string    `json:"back"`
	PageRefs   []float64 `json:"pageRefs"`
	Confidence *float64  `json:"confidence"`
	Difficulty string    `json:"difficulty"`
}

type rawPayload struct {
	Suggestions []RawSuggestion `json:"suggestions"`
}

// Coerce normalizes one raw entry. Defaults: type qa, difficulty medium.
// Page refs are floored and clamped to 1. Confidence is clamped to [0,1].
// Returns false when the entry is unusable (empty front/back, no page refs).
func Coerce(raw RawSuggestion) (Suggestion, bool) {
	s := Suggestion{
		Front:      strings.TrimSpace(raw.Front),
		Back:       strings.TrimSpace(raw.Back),
		Type:       raw.Type,
		Difficulty: raw.Difficulty,
	}
	if s.Front == "" || s.Back == "" {
		return Suggestion{}, false
	}
	if s.Type != models.CardTypeCloze {
		s.Type = models.CardTypeQA
	}
	switch s.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		s.Difficulty = DifficultyMedium
	}
	if len(raw.PageRefs) == 0 {
		return Suggestion{}, false
	}
	s.PageRefs = make([]int, 0, len(raw.PageRefs))
	for _, ref := range raw.PageRefs {
		n := int(math.Floor(ref))
		if n < 1 {
			n = 1
		}
		s.PageRefs = append(s.PageRefs, n)
	}
	if raw.Confidence != nil {
		c := math.Min(1, math.Max(0, *raw.Confidence))
		s.Confidence = &c
	}
	return s, true
}

// ParseSuggestions parses and type-checks a model's raw output. Entries
// that can be coerced survive; entries that cannot are dropped without
// aborting the batch. The batch itself fails only when the overall shape is
// wrong or no usable suggestion remains.
func ParseSuggestions(raw []byte) (*SuggestionsPayload, error) {
	var payload rawPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &core.ValidationError{Reason: err.Error()}
	}
	if len(payload.Suggestions) == 0 {
		return nil, &core.ValidationError{Reason: "suggestions array is empty"}
	}

	out := make([]Suggestion, 0, len(payload.Suggestions))
	for _, raw := range payload.Suggestions {
		if s, ok := Coerce(raw); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, &core.ValidationError{Reason: "no usable suggestions after coercion"}
	}
	return &SuggestionsPayload{Suggestions: out}, nil
}
