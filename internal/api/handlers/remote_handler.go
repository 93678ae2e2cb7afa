package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/core/generation"
	"github.com/markdave123-py/braindeck/internal/core/remote"
	"github.com/markdave123-py/braindeck/internal/models"
)

type RemoteHandler struct {
	dbclient       core.DbClient
	dispatcher     *remote.Dispatcher
	callbackSecret string
}

func NewRemoteHandler(dbclient core.DbClient, dispatcher *remote.Dispatcher, callbackSecret string) *RemoteHandler {
	return &RemoteHandler{dbclient: dbclient, dispatcher: dispatcher, callbackSecret: callbackSecret}
}

// Dispatch hands the whole job to the remote worker. 202 means the worker
// acknowledged receipt, not that generation finished.
func (h *RemoteHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil || req.UploadID == "" {
		writeErrJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	log.Printf("[dispatch] uploadId: %s target: %d vision: %t", req.UploadID, req.TargetCount, req.PreferVision)

	err := h.dispatcher.Dispatch(r.Context(), remote.DispatchRequest{
		UploadID:     req.UploadID,
		SubjectID:    req.SubjectID,
		TargetCount:  req.TargetCount,
		PreferVision: req.PreferVision,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

// Callback receives the worker's result. The shared-secret check runs
// before anything in the payload is touched.
func (h *RemoteHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-callback-secret") != h.callbackSecret {
		log.Printf("[callback] forbidden: bad secret")
		writeErrJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	var payload remote.CallbackPayload
	if err := decodeBody(r, &payload); err != nil || payload.JobID == "" {
		writeErrJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	log.Printf("[callback] jobId: %s error: %q suggestions: %d", payload.JobID, payload.Error, len(payload.Suggestions))

	ctx := r.Context()

	if payload.Error != "" {
		if err := h.dbclient.SetJobStatus(ctx, payload.JobID, models.StatusError, payload.Error); err != nil {
			log.Printf("[callback] status write failed for %s: %v", payload.JobID, err)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	upload, err := h.dbclient.GetUploadByID(ctx, payload.JobID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if upload == nil {
		writeErrJSON(w, http.StatusNotFound, "upload not found")
		return
	}

	deckName := ""
	var subjectID *string
	if payload.Deck != nil {
		deckName = payload.Deck.Name
		subjectID = payload.Deck.SubjectID
	}
	if deckName == "" {
		deckName = generation.DeckNameFromFile(upload.FileName)
	}
	if subjectID == nil {
		subjectID = upload.SubjectID
	}

	deck := &models.Deck{
		ID:        uuid.NewString(),
		UserID:    upload.UserID,
		SubjectID: subjectID,
		Name:      deckName,
	}
	if err := h.dbclient.CreateDeck(ctx, deck); err != nil {
		h.failJob(ctx, payload.JobID, fmt.Sprintf("deck insert: %v", err))
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Card conversion matches the in-process path: same coercion, same
	// defaulted scheduling state. Already-inserted cards are not rolled
	// back when a later insert fails.
	for _, raw := range payload.Suggestions {
		s, ok := generation.Coerce(raw)
		if !ok {
			continue
		}
		card := generation.NewCardFromSuggestion(upload.UserID, deck.ID, upload.ID, s)
		if err := h.dbclient.CreateCard(ctx, card); err != nil {
			h.failJob(ctx, payload.JobID, fmt.Sprintf("cards insert: %v", err))
			writeErrJSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := h.dbclient.CreateSRSState(ctx, generation.NewSRSState(card.ID, time.Now())); err != nil {
			log.Printf("[callback] srs init failed for card %s: %v", card.ID, err)
		}
	}

	if err := h.dbclient.SetJobStatus(ctx, payload.JobID, models.StatusDone, ""); err != nil {
		log.Printf("[callback] done-status write failed for %s: %v", payload.JobID, err)
	}

	log.Printf("[callback] done deckId: %s", deck.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deckId": deck.ID})
}

func (h *RemoteHandler) failJob(ctx context.Context, uploadID, msg string) {
	if err := h.dbclient.SetJobStatus(ctx, uploadID, models.StatusError, msg); err != nil {
		log.Printf("[callback] error-status write failed for %s: %v", uploadID, err)
	}
}
