package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

type SubjectHandler struct {
	dbclient core.DbClient
}

func NewSubjectHandler(dbclient core.DbClient) *SubjectHandler {
	return &SubjectHandler{dbclient: dbclient}
}

type createSubjectRequest struct {
	Name string `json:"name"`
}

func (h *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createSubjectRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeErrJSON(w, http.StatusBadRequest, "name is required")
		return
	}

	subject := &models.Subject{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   strings.TrimSpace(req.Name),
	}
	if err := h.dbclient.CreateSubject(r.Context(), subject); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"subject": subject})
}

func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	subjects, err := h.dbclient.ListSubjectsByUser(r.Context(), userID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}
