package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

// Engine selects which model backend a generation run talks to.
type Engine string

const (
	EngineLocal  Engine = "local"
	EngineGemini Engine = "gemini"
)

// A document whose extracted text is shorter than this despite having
// pages is most likely scanned and should route to a vision model.
const scannedCharThreshold = 400

type GenerateRequest struct {
	UploadID     string
	SubjectID    *string
	TargetCount  int
	PreferVision bool
	Engine       Engine
}

type GenerateResult struct {
	Created  int    `json:"created"`
	DeckID   string `json:"deckId"`
	DeckName string `json:"deckName"`
	Model    string `json:"model"`
}

// GeneratorConfig tunes a Generator.
//
// MaxChars/WindowPages bound the chunker. LocalModel/VisionModel/CloudModel
// name the backends; SignedURLTTL bounds the document read handle.
type GeneratorConfig struct {
	MaxChars     int
	WindowPages  int
	LocalModel   string
	VisionModel  string
	CloudModel   string
	SignedURLTTL time.Duration
}

// Generator owns the ingestion -> generation -> completion lifecycle for
// one upload: it loads the source, chunks it, iterates chunks against a
// model client, validates the output and materializes cards.
type Generator struct {
	db        core.DbClient
	storage   core.ObjectClient
	extractor core.PageExtractor
	local     core.ModelClient
	cloud     core.ModelClient
	bucket    string
	cfg       GeneratorConfig
	fetch     *http.Client
}

func NewGenerator(db core.DbClient, storage core.ObjectClient, extractor core.PageExtractor, local, cloud core.ModelClient, bucket string, cfg GeneratorConfig) *Generator {
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 4000
	}
	if cfg.WindowPages == 0 {
		cfg.WindowPages = 2
	}
	if cfg.SignedURLTTL == 0 {
		cfg.SignedURLTTL = 30 * time.Minute
	}
	return &Generator{
		db:        db,
		storage:   storage,
		extractor: extractor,
		local:     local,
		cloud:     cloud,
		bucket:    bucket,
		cfg:       cfg,
		fetch:     &http.Client{Timeout: 2 * time.Minute},
	}
}

// Run executes one generation job to completion. Any failure after the
// upload is resolved marks the job error with a best-effort status write
// that never masks the original failure.
func (g *Generator) Run(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.TargetCount <= 0 {
		req.TargetCount = 50
	}
	if req.Engine == "" {
		req.Engine = EngineLocal
	}

	upload, err := g.db.GetUploadByID(ctx, req.UploadID)
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	if upload == nil {
		return nil, fmt.Errorf("upload %s: %w", req.UploadID, core.ErrNotFound)
	}

	res, err := g.generate(ctx, upload, req)
	if err != nil {
		if serr := g.db.SetJobStatus(ctx, upload.ID, models.StatusError, err.Error()); serr != nil {
			log.Printf("[generate] error-status write failed for %s: %v", upload.ID, serr)
		}
		return nil, err
	}
	return res, nil
}

func (g *Generator) generate(ctx context.Context, upload *models.Upload, req GenerateRequest) (*GenerateResult, error) {
	if err := g.db.SetJobStatus(ctx, upload.ID, models.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	data, err := g.download(ctx, upload)
	if err != nil {
		return nil, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(upload.FileName))
	pages, err := g.extractor.ExtractPages(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w (scanned document? try the vision toggle)", core.ErrEmptyDocument)
	}
	if err := g.db.UpdateUploadPageCount(ctx, upload.ID, len(pages)); err != nil {
		log.Printf("[generate] page-count write failed for %s: %v", upload.ID, err)
	}

	totalChars := 0
	for _, p := range pages {
		totalChars += len(p)
	}
	looksScanned := totalChars < scannedCharThreshold
	useVision := req.PreferVision || looksScanned

	client, modelName, err := g.pickBackend(req.Engine, useVision)
	if err != nil {
		return nil, err
	}

	chunks, err := ChunkPages(pages, g.cfg.MaxChars, g.cfg.WindowPages)
	if err != nil {
		return nil, err
	}

	subjectID := req.SubjectID
	if subjectID == nil {
		subjectID = upload.SubjectID
	}
	deck := &models.Deck{
		ID:        uuid.NewString(),
		UserID:    upload.UserID,
		SubjectID: subjectID,
		Name:      DeckNameFromFile(upload.FileName),
	}
	if err := g.db.CreateDeck(ctx, deck); err != nil {
		return nil, fmt.Errorf("create deck: %w", err)
	}

	made := 0
	for i := 0; i < len(chunks) && made < req.TargetCount; i++ {
		requested := fairShare(req.TargetCount, made, len(chunks), i)

		raw, err := client.CompleteJSON(ctx, systemPrompt, userPrompt(chunks[i], requested), core.CompletionOptions{
			Model:       modelName,
			Temperature: 0.2,
			NumCtx:      8192,
		})
		if errors.Is(err, core.ErrMalformedOutput) {
			log.Printf("[generate] chunk %d pages %d-%d: %v", i, chunks[i].PageStart, chunks[i].PageEnd, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		payload, err := ParseSuggestions(raw)
		if err != nil {
			// One bad chunk must not abort the whole job.
			log.Printf("[generate] validation failed for chunk %d: %v", i, err)
			continue
		}

		for _, s := range payload.Suggestions {
			if made >= req.TargetCount {
				// Surplus past the target is kept for manual review
				// instead of being thrown away.
				if err := g.db.CreateSuggestion(ctx, NewPendingSuggestion(upload.UserID, upload.ID, deck.ID, s)); err != nil {
					log.Printf("[generate] suggestion insert failed: %v", err)
				}
				continue
			}
			card := NewCardFromSuggestion(upload.UserID, deck.ID, upload.ID, s)
			if err := g.db.CreateCard(ctx, card); err != nil {
				log.Printf("[generate] card insert failed: %v", err)
				continue
			}
			if err := g.db.CreateSRSState(ctx, NewSRSState(card.ID, time.Now())); err != nil {
				log.Printf("[generate] srs init failed for card %s: %v", card.ID, err)
			}
			made++
		}
	}

	// A job that ran but produced nothing is a success with an empty
	// result, not a failure.
	if err := g.db.SetJobStatus(ctx, upload.ID, models.StatusDone, ""); err != nil {
		return nil, fmt.Errorf("mark done: %w", err)
	}

	return &GenerateResult{Created: made, DeckID: deck.ID, DeckName: deck.Name, Model: modelName}, nil
}

// download fetches the source document through a time-limited signed URL.
func (g *Generator) download(ctx context.Context, upload *models.Upload) ([]byte, error) {
	signedURL, err := g.storage.SignedGetURL(ctx, g.bucket, upload.StoragePath, g.cfg.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("sign document url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.fetch.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (g *Generator) pickBackend(engine Engine, useVision bool) (core.ModelClient, string, error) {
	switch engine {
	case EngineGemini:
		if g.cloud == nil {
			return nil, "", &core.ConfigError{Key: "GEMINI_API_KEY"}
		}
		return g.cloud, g.cfg.CloudModel, nil
	default:
		if g.local == nil {
			return nil, "", &core.ConfigError{Key: "OLLAMA_BASE_URL"}
		}
		model := g.cfg.LocalModel
		if useVision {
			model = g.cfg.VisionModel
		}
		return g.local, model, nil
	}
}

// fairShare shrinks the per-chunk ask as the target is approached and
// grows it when earlier chunks under-delivered.
func fairShare(target, made, totalChunks, i int) int {
	remaining := totalChunks - i
	if remaining < 1 {
		remaining = 1
	}
	n := int(math.Ceil(float64(target-made) / float64(remaining)))
	if n < 1 {
		n = 1
	}
	return n
}
