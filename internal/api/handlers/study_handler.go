package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/core/srs"
)

// StudyHandler drives review sessions: fetch what is due, record grades.
type StudyHandler struct {
	dbclient core.DbClient
}

func NewStudyHandler(dbclient core.DbClient) *StudyHandler {
	return &StudyHandler{dbclient: dbclient}
}

// Due lists the cards in a deck whose scheduled date has arrived.
func (h *StudyHandler) Due(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deckID := chi.URLParam(r, "deckId")
	deck, err := h.dbclient.GetDeckByID(r.Context(), deckID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deck == nil || deck.UserID != userID {
		writeErrJSON(w, http.StatusNotFound, "deck not found")
		return
	}

	cards, err := h.dbclient.ListDueCards(r.Context(), deckID, time.Now().UTC())
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

type reviewRequest struct {
	CardID string `json:"cardId"`
	Grade  int    `json:"grade"`
}

// Review records one recall attempt and reschedules the card.
func (h *StudyHandler) Review(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFrom(r); !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req reviewRequest
	if err := decodeBody(r, &req); err != nil || req.CardID == "" {
		writeErrJSON(w, http.StatusBadRequest, "cardId is required")
		return
	}
	grade, err := srs.ParseGrade(req.Grade)
	if err != nil {
		writeErrJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.dbclient.GetSRSStateByCard(r.Context(), req.CardID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if state == nil {
		writeErrJSON(w, http.StatusNotFound, "card has no review state")
		return
	}

	prev := srs.ReviewState{
		Ease:         state.Ease,
		IntervalDays: state.IntervalDays,
	}
	if state.Due != nil {
		prev.Due = *state.Due
	}
	if state.LastReviewed != nil {
		prev.LastReviewed = *state.LastReviewed
	}

	next := srs.Apply(prev, grade, time.Now())

	state.Ease = next.Ease
	state.IntervalDays = next.IntervalDays
	due := next.Due
	last := next.LastReviewed
	state.Due = &due
	state.LastReviewed = &last

	if err := h.dbclient.UpdateSRSState(r.Context(), state); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"srs": state})
}
