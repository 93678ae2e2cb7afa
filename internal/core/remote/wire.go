package remote

import "github.com/markdave123-py/braindeck/internal/core/generation"

// JobDescriptor is the body POSTed to {workerURL}/v1/jobs.
type JobDescriptor struct {
	JobID          string    `json:"jobId"`
	Upload         JobUpload `json:"upload"`
	SubjectID      *string   `json:"subjectId"`
	TargetCount    int       `json:"targetCount"`
	PreferVL       bool      `json:"preferVL"`
	CallbackURL    string    `json:"callbackUrl"`
	CallbackSecret string    `json:"callbackSecret"`
}

type JobUpload struct {
	SignedURL string `json:"signedUrl"`
	FileName  string `json:"fileName"`
}

// CallbackPayload is what the worker POSTs back when the job finishes.
// The job is matched purely by JobID; suggestions arrive in the same loose
// shape the models emit and go through the usual coercion.
type CallbackPayload struct {
	JobID       string                     `json:"jobId"`
	Deck        *CallbackDeck              `json:"deck"`
	Suggestions []generation.RawSuggestion `json:"suggestions"`
	Error       string                     `json:"error,omitempty"`
}

type CallbackDeck struct {
	Name      string  `json:"name"`
	SubjectID *string `json:"subjectId"`
}
