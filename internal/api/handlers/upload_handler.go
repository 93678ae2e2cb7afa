package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/config"
	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

type UploadHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	cfg          *config.Config
}

func NewUploadHandler(dbclient core.DbClient, objectclient core.ObjectClient, cfg *config.Config) *UploadHandler {
	return &UploadHandler{dbclient: dbclient, objectclient: objectclient, cfg: cfg}
}

// Create handles file upload: the binary goes to object storage, then an
// uploads row and its queued generation job are created together.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	var subjectID *string
	if s := r.FormValue("subject_id"); s != "" {
		subjectID = &s
	}

	// Sanitize filename to prevent path traversal or invalid characters
	cleanFilename := filepath.Base(header.Filename)
	uploadID := uuid.NewString()
	key := fmt.Sprintf("%s/%s-%s", userID, uploadID, cleanFilename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if _, err := h.objectclient.UploadFile(uploadCtx, h.cfg.BucketName, key, file, contentType); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, fmt.Sprintf("upload failed: %v", err))
		return
	}

	upload := &models.Upload{
		ID:          uploadID,
		UserID:      userID,
		SubjectID:   subjectID,
		FileName:    header.Filename,
		StoragePath: key,
		SizeBytes:   header.Size,
		Status:      models.StatusQueued,
	}
	if err := h.dbclient.CreateUpload(uploadCtx, upload); err != nil {
		log.Printf("[uploads] insert failed for %s: %v", uploadID, err)
		writeErrJSON(w, http.StatusInternalServerError, "failed to store upload metadata")
		return
	}

	job := &models.GenerationJob{
		UploadID: upload.ID,
		UserID:   userID,
		Status:   models.StatusQueued,
		Priority: 0,
	}
	if err := h.dbclient.CreateGenerationJob(uploadCtx, job); err != nil {
		log.Printf("[uploads] job insert failed for %s: %v", uploadID, err)
		writeErrJSON(w, http.StatusInternalServerError, "failed to create generation job")
		return
	}

	writeJSON(w, http.StatusCreated, upload)
}

func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	uploads, err := h.dbclient.ListUploadsByUser(r.Context(), userID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}

// Delete removes the stored binary, then the upload row; the job row goes
// with it via the foreign key.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeErrJSON(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}
	id := chi.URLParam(r, "id")

	upload, err := h.dbclient.GetUploadByID(r.Context(), id)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if upload == nil || upload.UserID != userID {
		writeErrJSON(w, http.StatusNotFound, "upload not found")
		return
	}

	if upload.StoragePath != "" {
		if err := h.objectclient.DeleteFile(r.Context(), h.cfg.BucketName, upload.StoragePath); err != nil {
			log.Printf("[uploads] object delete failed for %s: %v", id, err)
		}
	}

	if err := h.dbclient.DeleteUpload(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
