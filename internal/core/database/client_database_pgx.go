package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/braindeck/internal/config"
	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// jsonCol marshals a slice for a JSONB column; nil becomes the empty array.
func jsonCol(v any) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, nullTime(user.CreatedAt))
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Subjects

func (c *DatabaseClient) CreateSubject(ctx context.Context, subject *models.Subject) error {
	if subject == nil {
		return errors.New("nil subject")
	}
	const q = `
		INSERT INTO subjects (id, user_id, name, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	_, err := c.db.ExecContext(ctx, q, subject.ID, subject.UserID, subject.Name, nullTime(subject.CreatedAt))
	return err
}

func (c *DatabaseClient) ListSubjectsByUser(ctx context.Context, userID string) ([]models.Subject, error) {
	const q = `
		SELECT id, user_id, name, created_at
		FROM subjects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Subject
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Uploads

func (c *DatabaseClient) CreateUpload(ctx context.Context, upload *models.Upload) error {
	if upload == nil {
		return errors.New("nil upload")
	}
	const q = `
		INSERT INTO uploads
			(id, user_id, subject_id, file_name, storage_path, size_bytes, page_count, status, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		upload.ID, upload.UserID, upload.SubjectID, upload.FileName, upload.StoragePath,
		upload.SizeBytes, upload.PageCount, upload.Status, nullTime(upload.CreatedAt))
	return err
}

func (c *DatabaseClient) GetUploadByID(ctx context.Context, id string) (*models.Upload, error) {
	const q = `
		SELECT id, user_id, subject_id, file_name, storage_path, size_bytes, page_count, status, created_at
		FROM uploads
		WHERE id = $1
	`
	var u models.Upload
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.UserID, &u.SubjectID, &u.FileName, &u.StoragePath, &u.SizeBytes, &u.PageCount, &u.Status, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) ListUploadsByUser(ctx context.Context, userID string) ([]models.Upload, error) {
	const q = `
		SELECT id, user_id, subject_id, file_name, storage_path, size_bytes, page_count, status, created_at
		FROM uploads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(
			&u.ID, &u.UserID, &u.SubjectID, &u.FileName, &u.StoragePath, &u.SizeBytes, &u.PageCount, &u.Status, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateUploadPageCount(ctx context.Context, id string, pageCount int) error {
	const q = `UPDATE uploads SET page_count = $2 WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id, pageCount)
	return err
}

func (c *DatabaseClient) DeleteUpload(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("upload %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
