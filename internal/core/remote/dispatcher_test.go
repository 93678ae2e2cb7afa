package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

type fakeDB struct {
	core.DbClient
	mu       sync.Mutex
	uploads  map[string]*models.Upload
	statuses []string
	lastErr  string
}

func (f *fakeDB) GetUploadByID(_ context.Context, id string) (*models.Upload, error) {
	return f.uploads[id], nil
}

func (f *fakeDB) SetJobStatus(_ context.Context, _, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if errMsg != "" {
		f.lastErr = errMsg
	}
	return nil
}

type fakeStorage struct {
	core.ObjectClient
}

func (fakeStorage) SignedGetURL(context.Context, string, string, time.Duration) (string, error) {
	return "https://bucket.s3.example/signed?sig=abc", nil
}

func dispatchUpload() *models.Upload {
	return &models.Upload{
		ID:          "up-9",
		UserID:      "user-1",
		FileName:    "notes.pdf",
		StoragePath: "user-1/up-9-notes.pdf",
	}
}

func validConfig(workerURL string) DispatcherConfig {
	return DispatcherConfig{
		WorkerURL:      workerURL,
		WorkerToken:    "worker-token",
		CallbackSecret: "hush",
		BaseURL:        "http://localhost:8080/",
	}
}

func TestDispatchMissingConfigFailsFast(t *testing.T) {
	db := &fakeDB{uploads: map[string]*models.Upload{"up-9": dispatchUpload()}}

	cases := []struct {
		mutate func(*DispatcherConfig)
		key    string
	}{
		{func(c *DispatcherConfig) { c.WorkerURL = "" }, "REMOTE_WORKER_URL"},
		{func(c *DispatcherConfig) { c.WorkerToken = "" }, "REMOTE_WORKER_TOKEN"},
		{func(c *DispatcherConfig) { c.CallbackSecret = "" }, "CALLBACK_SECRET"},
	}
	for _, tc := range cases {
		cfg := validConfig("http://worker.example")
		tc.mutate(&cfg)
		d := NewDispatcher(db, fakeStorage{}, "bucket", cfg)

		err := d.Dispatch(context.Background(), DispatchRequest{UploadID: "up-9"})
		require.Error(t, err, tc.key)
		var cfgErr *core.ConfigError
		require.ErrorAs(t, err, &cfgErr, tc.key)
		assert.Equal(t, tc.key, cfgErr.Key)
		// Config errors must not touch the job.
		assert.Empty(t, db.statuses)
	}
}

func TestDispatchUnknownUpload(t *testing.T) {
	db := &fakeDB{uploads: map[string]*models.Upload{}}
	d := NewDispatcher(db, fakeStorage{}, "bucket", validConfig("http://worker.example"))

	err := d.Dispatch(context.Background(), DispatchRequest{UploadID: "nope"})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, db.statuses)
}

func TestDispatchPostsJobDescriptor(t *testing.T) {
	var got JobDescriptor
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/jobs", r.URL.Path)
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	db := &fakeDB{uploads: map[string]*models.Upload{"up-9": dispatchUpload()}}
	d := NewDispatcher(db, fakeStorage{}, "bucket", validConfig(srv.URL))

	subject := "subj-1"
	err := d.Dispatch(context.Background(), DispatchRequest{
		UploadID:     "up-9",
		SubjectID:    &subject,
		TargetCount:  25,
		PreferVision: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer worker-token", auth)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "up-9", got.JobID)
	assert.Equal(t, "https://bucket.s3.example/signed?sig=abc", got.Upload.SignedURL)
	assert.Equal(t, "notes.pdf", got.Upload.FileName)
	require.NotNil(t, got.SubjectID)
	assert.Equal(t, "subj-1", *got.SubjectID)
	assert.Equal(t, 25, got.TargetCount)
	assert.True(t, got.PreferVL)
	assert.Equal(t, "http://localhost:8080/api/remote/callback", got.CallbackURL)
	assert.Equal(t, "hush", got.CallbackSecret)

	assert.Equal(t, []string{models.StatusProcessing}, db.statuses)
}

func TestDispatchDefaultsTargetCount(t *testing.T) {
	var got JobDescriptor
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := &fakeDB{uploads: map[string]*models.Upload{"up-9": dispatchUpload()}}
	d := NewDispatcher(db, fakeStorage{}, "bucket", validConfig(srv.URL))

	require.NoError(t, d.Dispatch(context.Background(), DispatchRequest{UploadID: "up-9"}))
	assert.Equal(t, 50, got.TargetCount)
}

func TestDispatchUnreachableWorker(t *testing.T) {
	db := &fakeDB{uploads: map[string]*models.Upload{"up-9": dispatchUpload()}}
	d := NewDispatcher(db, fakeStorage{}, "bucket", validConfig("http://127.0.0.1:1"))

	err := d.Dispatch(context.Background(), DispatchRequest{UploadID: "up-9"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnreachable)
	assert.Contains(t, err.Error(), "cannot reach worker at http://127.0.0.1:1")

	assert.Equal(t, []string{models.StatusProcessing, models.StatusError}, db.statuses)
	assert.Contains(t, db.lastErr, "REMOTE_WORKER_URL")
}

func TestDispatchWorkerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	db := &fakeDB{uploads: map[string]*models.Upload{"up-9": dispatchUpload()}}
	d := NewDispatcher(db, fakeStorage{}, "bucket", validConfig(srv.URL))

	err := d.Dispatch(context.Background(), DispatchRequest{UploadID: "up-9"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnreachable)
	assert.Contains(t, err.Error(), "worker 503")

	assert.Equal(t, []string{models.StatusProcessing, models.StatusError}, db.statuses)
	assert.Contains(t, db.lastErr, "queue full")
}
