package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

type DeckHandler struct {
	dbclient core.DbClient
}

func NewDeckHandler(dbclient core.DbClient) *DeckHandler {
	return &DeckHandler{dbclient: dbclient}
}

type createDeckRequest struct {
	Name      string  `json:"name"`
	SubjectID *string `json:"subjectId"`
}

func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createDeckRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		writeErrJSON(w, http.StatusBadRequest, "name is required")
		return
	}

	deck := &models.Deck{
		ID:        uuid.NewString(),
		UserID:    userID,
		SubjectID: req.SubjectID,
		Name:      req.Name,
	}
	if err := h.dbclient.CreateDeck(r.Context(), deck); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"deck": deck})
}

func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	decks, err := h.dbclient.ListDecks(r.Context(), core.DeckFilter{
		UserID:    userID,
		SubjectID: r.URL.Query().Get("subjectId"),
	})
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

// Delete removes a deck and, through the schema's cascade, its cards and
// their scheduling state.
func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	deck, err := h.dbclient.GetDeckByID(r.Context(), id)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deck == nil || deck.UserID != userID {
		writeErrJSON(w, http.StatusNotFound, "deck not found")
		return
	}

	if err := h.dbclient.DeleteDeck(r.Context(), id); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
