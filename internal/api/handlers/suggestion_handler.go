package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/core/generation"
	"github.com/markdave123-py/braindeck/internal/models"
)

// SuggestionHandler exposes the review workflow for candidate cards
// produced by the async pipeline: list, edit, accept into a deck, or
// discard.
type SuggestionHandler struct {
	dbclient core.DbClient
}

func NewSuggestionHandler(dbclient core.DbClient) *SuggestionHandler {
	return &SuggestionHandler{dbclient: dbclient}
}

func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := core.SuggestionFilter{
		UserID:   userID,
		UploadID: r.URL.Query().Get("uploadId"),
		Status:   r.URL.Query().Get("status"),
	}
	suggestions, err := h.dbclient.ListSuggestions(r.Context(), filter)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type suggestionPatch struct {
	Front  *string `json:"front"`
	Back   *string `json:"back"`
	Status *string `json:"status"`
}

func (h *SuggestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var patch suggestionPatch
	if err := decodeBody(r, &patch); err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.SuggestionNew, models.SuggestionEdited, models.SuggestionDiscarded:
		default:
			writeErrJSON(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	s, err := h.ownedSuggestion(r, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if patch.Front != nil {
		s.Front = *patch.Front
	}
	if patch.Back != nil {
		s.Back = *patch.Back
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	} else if patch.Front != nil || patch.Back != nil {
		s.Status = models.SuggestionEdited
	}

	if err := h.dbclient.UpdateSuggestion(r.Context(), s); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestion": s})
}

type acceptRequest struct {
	DeckID string `json:"deckId"`
}

// Accept turns a reviewed suggestion into a durable card with a fresh
// scheduling record, then marks the suggestion accepted.
func (h *SuggestionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req acceptRequest
	if err := decodeBody(r, &req); err != nil || req.DeckID == "" {
		writeErrJSON(w, http.StatusBadRequest, "deckId is required")
		return
	}

	s, err := h.ownedSuggestion(r, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.Status == models.SuggestionAccepted {
		writeErrJSON(w, http.StatusConflict, "suggestion already accepted")
		return
	}

	deck, err := h.dbclient.GetDeckByID(r.Context(), req.DeckID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deck == nil || deck.UserID != userID {
		writeErrJSON(w, http.StatusNotFound, "deck not found")
		return
	}

	card := &models.Card{
		ID:           uuid.NewString(),
		UserID:       userID,
		DeckID:       req.DeckID,
		Type:         s.Type,
		Front:        s.Front,
		Back:         s.Back,
		Tags:         []string{"difficulty:" + s.Difficulty},
		ProvSource:   "pdf",
		ProvUploadID: &s.UploadID,
		ProvPageRefs: s.PageRefs,
	}
	if err := h.dbclient.CreateCard(r.Context(), card); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.dbclient.CreateSRSState(r.Context(), generation.NewSRSState(card.ID, time.Now())); err != nil {
		log.Printf("[suggestions] srs init failed for card %s: %v", card.ID, err)
	}

	s.Status = models.SuggestionAccepted
	s.DeckID = &req.DeckID
	if err := h.dbclient.UpdateSuggestion(r.Context(), s); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"card": card})
}

func (h *SuggestionHandler) ownedSuggestion(r *http.Request, userID string) (*models.Suggestion, error) {
	id := chi.URLParam(r, "id")
	s, err := h.dbclient.GetSuggestionByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UserID != userID {
		return nil, core.ErrNotFound
	}
	return s, nil
}
