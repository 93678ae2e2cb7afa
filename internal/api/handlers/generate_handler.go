package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/core/generation"
	"github.com/markdave123-py/braindeck/internal/models"
)

type GenerateHandler struct {
	dbclient core.DbClient
	queue    *generation.Queue
}

func NewGenerateHandler(dbclient core.DbClient, queue *generation.Queue) *GenerateHandler {
	return &GenerateHandler{dbclient: dbclient, queue: queue}
}

type generateRequest struct {
	UploadID     string  `json:"uploadId"`
	SubjectID    *string `json:"subjectId"`
	TargetCount  int     `json:"targetCount"`
	PreferVision bool    `json:"preferVL"`
}

// GenerateLocal queues a generation run against the local inference
// backend. The call returns as soon as the job is queued; callers poll
// Status for completion.
func (h *GenerateHandler) GenerateLocal(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, generation.EngineLocal, 50)
}

// GenerateGemini queues a generation run against the cloud backend.
func (h *GenerateHandler) GenerateGemini(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, generation.EngineGemini, 40)
}

func (h *GenerateHandler) enqueue(w http.ResponseWriter, r *http.Request, engine generation.Engine, defaultTarget int) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil || req.UploadID == "" {
		writeErrJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TargetCount <= 0 {
		req.TargetCount = defaultTarget
	}

	upload, err := h.dbclient.GetUploadByID(r.Context(), req.UploadID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if upload == nil {
		writeErrJSON(w, http.StatusNotFound, "upload not found")
		return
	}

	h.queue.Enqueue(generation.GenerateRequest{
		UploadID:     req.UploadID,
		SubjectID:    req.SubjectID,
		TargetCount:  req.TargetCount,
		PreferVision: req.PreferVision,
		Engine:       engine,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "uploadId": req.UploadID})
}

type statusResponse struct {
	Upload          statusUpload `json:"upload"`
	Job             *statusJob   `json:"job"`
	CardsCreated    int          `json:"cardsCreated"`
	DurationSeconds *int         `json:"durationSeconds,omitempty"`
	DurationMinutes *float64     `json:"durationMinutes,omitempty"`
}

type statusUpload struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	Status    string    `json:"status"`
	PageCount *int      `json:"pageCount"`
	CreatedAt time.Time `json:"createdAt"`
}

type statusJob struct {
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Error      *string    `json:"error"`
}

// Status reports job progress for a polling caller.
func (h *GenerateHandler) Status(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("uploadId")
	if uploadID == "" {
		writeErrJSON(w, http.StatusBadRequest, "missing uploadId")
		return
	}

	upload, err := h.dbclient.GetUploadByID(r.Context(), uploadID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if upload == nil {
		writeErrJSON(w, http.StatusNotFound, "upload not found")
		return
	}

	job, err := h.dbclient.GetJobByUploadID(r.Context(), uploadID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := h.dbclient.CountCardsByUpload(r.Context(), uploadID)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := statusResponse{
		Upload: statusUpload{
			ID:        upload.ID,
			FileName:  upload.FileName,
			Status:    upload.Status,
			PageCount: upload.PageCount,
			CreatedAt: upload.CreatedAt,
		},
		CardsCreated: created,
	}
	if job != nil {
		resp.Job = &statusJob{
			Status:     job.Status,
			StartedAt:  job.StartedAt,
			FinishedAt: job.FinishedAt,
			Error:      job.Error,
		}
		if job.StartedAt != nil && job.Status == models.StatusProcessing {
			secs := int(time.Since(*job.StartedAt).Seconds())
			mins := math.Round(float64(secs)/60*10) / 10
			resp.DurationSeconds = &secs
			resp.DurationMinutes = &mins
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
