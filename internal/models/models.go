package models

import (
	"time"
)

// Upload / job lifecycle statuses. Transitions are monotonic:
// queued -> processing -> done | error.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Card / suggestion kinds.
const (
	CardTypeQA    = "qa"
	CardTypeCloze = "cloze"
)

// Suggestion review statuses.
const (
	SuggestionNew       = "new"
	SuggestionAccepted  = "accepted"
	SuggestionEdited    = "edited"
	SuggestionDiscarded = "discarded"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Subject groups decks by topic.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Upload is one submitted source document stored in object storage.
type Upload struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SubjectID   *string   `db:"subject_id" json:"subject_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	PageCount   *int      `db:"page_count" json:"page_count"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GenerationJob is the authoritative lifecycle record for generation work,
// one-to-one with an Upload and keyed by the upload id.
type GenerationJob struct {
	UploadID   string     `db:"upload_id" json:"upload_id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Status     string     `db:"status" json:"status"`
	Error      *string    `db:"error" json:"error"`
	Priority   int        `db:"priority" json:"priority"`
	StartedAt  *time.Time `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Deck holds cards generated from one upload or authored by hand.
type Deck struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	SubjectID *string   `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Card is a durable flashcard. Provenance fields never change after creation.
type Card struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	DeckID       string    `db:"deck_id" json:"deck_id"`
	Type         string    `db:"type" json:"type"`
	Front        string    `db:"front" json:"front"`
	Back         string    `db:"back" json:"back"`
	Tags         []string  `db:"tags" json:"tags"`
	ProvSource   string    `db:"prov_source" json:"prov_source"` // "manual" or "pdf"
	ProvUploadID *string   `db:"prov_upload_id" json:"prov_upload_id"`
	ProvPageRefs []int     `db:"prov_page_refs" json:"prov_page_refs"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Suggestion is a candidate flashcard awaiting review in the async workflow.
type Suggestion struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	UploadID   string    `db:"upload_id" json:"upload_id"`
	DeckID     *string   `db:"deck_id" json:"deck_id"`
	Type       string    `db:"type" json:"type"`
	Front      string    `db:"front" json:"front"`
	Back       string    `db:"back" json:"back"`
	PageRefs   []int     `db:"page_refs" json:"page_refs"`
	Confidence *float64  `db:"confidence" json:"confidence"`
	Difficulty string    `db:"difficulty" json:"difficulty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SRSState is the spaced-repetition record, one-to-one with a Card.
// Every card created by the generation pipeline gets one, defaulted.
type SRSState struct {
	CardID       string     `db:"card_id" json:"card_id"`
	Ease         float64    `db:"ease" json:"ease"`
	IntervalDays int        `db:"interval_days" json:"interval_days"`
	Due          *time.Time `db:"due" json:"due"`
	LastReviewed *time.Time `db:"last_reviewed" json:"last_reviewed"`
}
