package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/markdave123-py/braindeck/internal/models"
)

func (c *DatabaseClient) CreateGenerationJob(ctx context.Context, job *models.GenerationJob) error {
	if job == nil {
		return errors.New("nil job")
	}
	const q = `
		INSERT INTO generation_jobs (upload_id, user_id, status, priority, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err := c.db.ExecContext(ctx, q, job.UploadID, job.UserID, job.Status, job.Priority, nullTime(job.CreatedAt))
	return err
}

func (c *DatabaseClient) GetJobByUploadID(ctx context.Context, uploadID string) (*models.GenerationJob, error) {
	const q = `
		SELECT upload_id, user_id, status, error, priority, started_at, finished_at, created_at
		FROM generation_jobs
		WHERE upload_id = $1
	`
	var j models.GenerationJob
	err := c.db.QueryRowContext(ctx, q, uploadID).Scan(
		&j.UploadID, &j.UserID, &j.Status, &j.Error, &j.Priority, &j.StartedAt, &j.FinishedAt, &j.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// SetJobStatus advances the generation job and mirrors the status onto the
// upload row. The WHERE guard keeps transitions monotonic: once a job is
// done or error it never leaves that state, and re-setting the current
// status only refreshes timestamps. started_at is stamped on the first move
// to processing, finished_at on entering a terminal state.
func (c *DatabaseClient) SetJobStatus(ctx context.Context, uploadID, status, errMsg string) error {
	const q = `
		UPDATE generation_jobs
		SET status = $2,
		    error = NULLIF($3, ''),
		    started_at = CASE
		        WHEN $2 = 'processing' AND started_at IS NULL THEN now()
		        ELSE started_at
		    END,
		    finished_at = CASE
		        WHEN $2 IN ('done', 'error') THEN now()
		        ELSE finished_at
		    END
		WHERE upload_id = $1
		  AND (status NOT IN ('done', 'error') OR status = $2)
	`
	res, err := c.db.ExecContext(ctx, q, uploadID, status, errMsg)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Terminal job, or no row at all: nothing to mirror.
		return nil
	}

	mirrored := models.StatusProcessing
	switch status {
	case models.StatusDone:
		mirrored = models.StatusDone
	case models.StatusError:
		mirrored = models.StatusError
	}
	const uq = `
		UPDATE uploads
		SET status = $2
		WHERE id = $1
		  AND (status NOT IN ('done', 'error') OR status = $2)
	`
	_, err = c.db.ExecContext(ctx, uq, uploadID, mirrored)
	return err
}
