package generation

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/models"
)

// SRS defaults for a freshly created card.
const (
	DefaultEase     = 2.5
	DefaultInterval = 0
)

// DeckNameFromFile strips the extension from an upload's file name; an
// empty result falls back to a generic deck name.
func DeckNameFromFile(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled Deck"
	}
	return name
}

// NewCardFromSuggestion converts one accepted suggestion into a card,
// tagging it with its difficulty and recording pdf provenance.
func NewCardFromSuggestion(userID, deckID, uploadID string, s Suggestion) *models.Card {
	return &models.Card{
		ID:           uuid.NewString(),
		UserID:       userID,
		DeckID:       deckID,
		Type:         s.Type,
		Front:        s.Front,
		Back:         s.Back,
		Tags:         []string{"difficulty:" + s.Difficulty},
		ProvSource:   "pdf",
		ProvUploadID: &uploadID,
		ProvPageRefs: s.PageRefs,
	}
}

// NewPendingSuggestion stores a validated candidate that was not turned
// into a card, keeping it around for manual review.
func NewPendingSuggestion(userID, uploadID, deckID string, s Suggestion) *models.Suggestion {
	return &models.Suggestion{
		ID:         uuid.NewString(),
		UserID:     userID,
		UploadID:   uploadID,
		DeckID:     &deckID,
		Type:       s.Type,
		Front:      s.Front,
		Back:       s.Back,
		PageRefs:   s.PageRefs,
		Confidence: s.Confidence,
		Difficulty: s.Difficulty,
		Status:     models.SuggestionNew,
	}
}

// NewSRSState is the defaulted scheduling record created with every card.
// No card created by the pipeline exists without one.
func NewSRSState(cardID string, now time.Time) *models.SRSState {
	today := DateOnly(now)
	return &models.SRSState{
		CardID:       cardID,
		Ease:         DefaultEase,
		IntervalDays: DefaultInterval,
		Due:          &today,
		LastReviewed: &today,
	}
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
