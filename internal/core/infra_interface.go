package core

import (
	"context"
	"io"
	"time"

	"github.com/markdave123-py/braindeck/internal/models"
)

// SuggestionFilter narrows ListSuggestions; zero-value fields are ignored.
type SuggestionFilter struct {
	UploadID string
	UserID   string
	Status   string
}

// DeckFilter narrows ListDecks; zero-value fields are ignored.
type DeckFilter struct {
	UserID    string
	SubjectID string
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
// Reads of missing rows return (nil, nil), not an error.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateSubject(ctx context.Context, subject *models.Subject) error
	ListSubjectsByUser(ctx context.Context, userID string) ([]models.Subject, error)

	CreateUpload(ctx context.Context, upload *models.Upload) error
	GetUploadByID(ctx context.Context, id string) (*models.Upload, error)
	ListUploadsByUser(ctx context.Context, userID string) ([]models.Upload, error)
	UpdateUploadPageCount(ctx context.Context, id string, pageCount int) error
	DeleteUpload(ctx context.Context, id string) error

	CreateGenerationJob(ctx context.Context, job *models.GenerationJob) error
	GetJobByUploadID(ctx context.Context, uploadID string) (*models.GenerationJob, error)
	// SetJobStatus advances the job keyed by uploadID and mirrors the status
	// onto the upload row. Terminal states (done, error) are final: a later
	// call with a non-terminal status is a no-op.
	SetJobStatus(ctx context.Context, uploadID, status, errMsg string) error

	CreateDeck(ctx context.Context, deck *models.Deck) error
	GetDeckByID(ctx context.Context, id string) (*models.Deck, error)
	ListDecks(ctx context.Context, f DeckFilter) ([]models.Deck, error)
	DeleteDeck(ctx context.Context, id string) error

	CreateCard(ctx context.Context, card *models.Card) error
	GetCardByID(ctx context.Context, id string) (*models.Card, error)
	UpdateCard(ctx context.Context, card *models.Card) error
	ListCardsByDeck(ctx context.Context, deckID string) ([]models.Card, error)
	CountCardsByUpload(ctx context.Context, uploadID string) (int, error)
	DeleteCard(ctx context.Context, id string) error

	CreateSuggestion(ctx context.Context, s *models.Suggestion) error
	GetSuggestionByID(ctx context.Context, id string) (*models.Suggestion, error)
	ListSuggestions(ctx context.Context, f SuggestionFilter) ([]models.Suggestion, error)
	UpdateSuggestion(ctx context.Context, s *models.Suggestion) error

	CreateSRSState(ctx context.Context, state *models.SRSState) error
	GetSRSStateByCard(ctx context.Context, cardID string) (*models.SRSState, error)
	UpdateSRSState(ctx context.Context, state *models.SRSState) error
	ListDueCards(ctx context.Context, deckID string, due time.Time) ([]models.Card, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be swapped for MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	// SignedGetURL returns a time-limited read URL for a stored object.
	SignedGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// PageExtractor turns an uploaded binary into ordered per-page text.
// Zero pages is a valid outcome (scanned or image-only documents).
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte, contentType string) ([]string, error)
}
