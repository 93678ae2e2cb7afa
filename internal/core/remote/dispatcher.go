// Package remote hands a whole generation job to an external worker
// process instead of iterating chunks locally. The worker reports back via
// an authenticated callback.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

// DispatcherConfig carries the three secrets the remote strategy requires.
// Missing any of them is a fail-fast configuration error.
type DispatcherConfig struct {
	WorkerURL      string
	WorkerToken    string
	CallbackSecret string
	BaseURL        string
	SignedURLTTL   time.Duration
	RequestTimeout time.Duration
}

type Dispatcher struct {
	db      core.DbClient
	storage core.ObjectClient
	bucket  string
	cfg     DispatcherConfig
	http    *http.Client
}

type DispatchRequest struct {
	UploadID     string
	SubjectID    *string
	TargetCount  int
	PreferVision bool
}

func NewDispatcher(db core.DbClient, storage core.ObjectClient, bucket string, cfg DispatcherConfig) *Dispatcher {
	if cfg.SignedURLTTL == 0 {
		cfg.SignedURLTTL = 30 * time.Minute
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Dispatcher{
		db:      db,
		storage: storage,
		bucket:  bucket,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Dispatch signs a read URL for the source document and posts the job
// descriptor to the worker. It returns once the worker acknowledges
// receipt; completion arrives later on the callback. The dispatcher never
// retries on its own — retry policy belongs to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) error {
	if err := d.checkConfig(); err != nil {
		return err
	}
	if req.TargetCount <= 0 {
		req.TargetCount = 50
	}

	upload, err := d.db.GetUploadByID(ctx, req.UploadID)
	if err != nil {
		return fmt.Errorf("load upload: %w", err)
	}
	if upload == nil {
		return fmt.Errorf("upload %s: %w", req.UploadID, core.ErrNotFound)
	}

	signedURL, err := d.storage.SignedGetURL(ctx, d.bucket, upload.StoragePath, d.cfg.SignedURLTTL)
	if err != nil {
		return fmt.Errorf("sign document url: %w", err)
	}

	if err := d.db.SetJobStatus(ctx, upload.ID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	payload := JobDescriptor{
		JobID: upload.ID,
		Upload: JobUpload{
			SignedURL: signedURL,
			FileName:  upload.FileName,
		},
		SubjectID:      req.SubjectID,
		TargetCount:    req.TargetCount,
		PreferVL:       req.PreferVision,
		CallbackURL:    strings.TrimRight(d.cfg.BaseURL, "/") + "/api/remote/callback",
		CallbackSecret: d.cfg.CallbackSecret,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job descriptor: %w", err)
	}

	endpoint := strings.TrimRight(d.cfg.WorkerURL, "/") + "/v1/jobs"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.cfg.WorkerToken)

	resp, err := d.http.Do(httpReq)
	if err != nil {
		msg := fmt.Sprintf("cannot reach worker at %s: %v (check REMOTE_WORKER_URL and that the worker is running)", d.cfg.WorkerURL, err)
		d.failJob(ctx, upload.ID, msg)
		return fmt.Errorf("%s: %w", msg, core.ErrUnreachable)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("worker %d %s", resp.StatusCode, string(respBody))
		d.failJob(ctx, upload.ID, msg)
		return fmt.Errorf("%s: %w", msg, core.ErrUnreachable)
	}

	return nil
}

func (d *Dispatcher) checkConfig() error {
	if d.cfg.WorkerURL == "" {
		return &core.ConfigError{Key: "REMOTE_WORKER_URL"}
	}
	if d.cfg.WorkerToken == "" {
		return &core.ConfigError{Key: "REMOTE_WORKER_TOKEN"}
	}
	if d.cfg.CallbackSecret == "" {
		return &core.ConfigError{Key: "CALLBACK_SECRET"}
	}
	return nil
}

// failJob records the diagnostic without letting a status-write failure
// mask the dispatch error.
func (d *Dispatcher) failJob(ctx context.Context, uploadID, msg string) {
	if err := d.db.SetJobStatus(ctx, uploadID, models.StatusError, msg); err != nil {
		log.Printf("[dispatch] error-status write failed for %s: %v", uploadID, err)
	}
}
