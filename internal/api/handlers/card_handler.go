package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

type CardHandler struct {
	dbclient core.DbClient
}

func NewCardHandler(dbclient core.DbClient) *CardHandler {
	return &CardHandler{dbclient: dbclient}
}

func (h *CardHandler) ListByDeck(w http.ResponseWriter, r *http.Request) {
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

	cards, err := h.dbclient.ListCardsByDeck(r.Context(), deckID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

type cardPatch struct {
	Type  *string   `json:"type"`
	Front *string   `json:"front"`
	Back  *string   `json:"back"`
	Tags  *[]string `json:"tags"`
}

// Update edits a card's content. Provenance fields stay as created.
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var patch cardPatch
	if err := decodeBody(r, &patch); err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	if patch.Type != nil {
		switch *patch.Type {
		case models.CardTypeQA, models.CardTypeCloze:
		default:
			writeErrJSON(w, http.StatusBadRequest, "invalid type")
			return
		}
	}

	card, err := h.dbclient.GetCardByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if card == nil || card.UserID != userID {
		writeErrJSON(w, http.StatusNotFound, "card not found")
		return
	}

	if patch.Type != nil {
		card.Type = *patch.Type
	}
	if patch.Front != nil {
		card.Front = *patch.Front
	}
	if patch.Back != nil {
		card.Back = *patch.Back
	}
	if patch.Tags != nil {
		card.Tags = *patch.Tags
	}

	if err := h.dbclient.UpdateCard(r.Context(), card); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card": card})
}

func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.dbclient.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
