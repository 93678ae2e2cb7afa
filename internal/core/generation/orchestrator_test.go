package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

// fakeDB records every write; unimplemented DbClient methods panic via the
// embedded nil interface, which is fine as the orchestrator must not call them.
type fakeDB struct {
	core.DbClient
	mu sync.Mutex

	uploads     map[string]*models.Upload
	statuses    []string
	lastError   string
	pageCount   int
	decks       []*models.Deck
	cards       []*models.Card
	srs         []*models.SRSState
	suggestions []*models.Suggestion

	failCardInsert bool
}

func newFakeDB(uploads ...*models.Upload) *fakeDB {
	db := &fakeDB{uploads: map[string]*models.Upload{}}
	for _, u := range uploads {
		db.uploads[u.ID] = u
	}
	return db
}

func (f *fakeDB) GetUploadByID(_ context.Context, id string) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[id], nil
}

func (f *fakeDB) SetJobStatus(_ context.Context, _, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if errMsg != "" {
		f.lastError = errMsg
	}
	return nil
}

func (f *fakeDB) UpdateUploadPageCount(_ context.Context, _ string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCount = n
	return nil
}

func (f *fakeDB) CreateDeck(_ context.Context, d *models.Deck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks = append(f.decks, d)
	return nil
}

func (f *fakeDB) CreateCard(_ context.Context, c *models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCardInsert {
		return errors.New("insert failed")
	}
	f.cards = append(f.cards, c)
	return nil
}

func (f *fakeDB) CreateSRSState(_ context.Context, s *models.SRSState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.srs = append(f.srs, s)
	return nil
}

func (f *fakeDB) CreateSuggestion(_ context.Context, s *models.Suggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestions = append(f.suggestions, s)
	return nil
}

// fakeStorage signs URLs against a local test server holding the document.
type fakeStorage struct {
	core.ObjectClient
	url string
}

func (f *fakeStorage) SignedGetURL(context.Context, string, string, time.Duration) (string, error) {
	return f.url, nil
}

type fakeExtractor struct {
	pages []string
}

func (f *fakeExtractor) ExtractPages(context.Context, []byte, string) ([]string, error) {
	return f.pages, nil
}

// scriptedModel replays canned replies in order and records what it was asked.
type scriptedModel struct {
	mu         sync.Mutex
	replies    []reply
	prompts    []string
	modelsUsed []string
}

type reply struct {
	body []byte
	err  error
}

func (m *scriptedModel) CompleteJSON(_ context.Context, _, user string, opts core.CompletionOptions) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, user)
	m.modelsUsed = append(m.modelsUsed, opts.Model)
	if len(m.replies) == 0 {
		return nil, errors.New("unexpected model call")
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.body, r.err
}

func suggestionsJSON(n int, page int) []byte {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"front":"q%d","back":"a%d","pageRefs":[%d]}`, i, i, page)
	}
	return []byte(`{"suggestions":[` + strings.Join(items, ",") + `]}`)
}

func testUpload() *models.Upload {
	return &models.Upload{
		ID:          "up-1",
		UserID:      "user-1",
		FileName:    "linear-algebra.pdf",
		StoragePath: "user-1/up-1-linear-algebra.pdf",
		Status:      models.StatusQueued,
	}
}

func newTestGenerator(t *testing.T, db *fakeDB, ext *fakeExtractor, model *scriptedModel) *Generator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 test bytes"))
	}))
	t.Cleanup(srv.Close)

	return NewGenerator(db, &fakeStorage{url: srv.URL}, ext, model, nil, "bucket", GeneratorConfig{
		LocalModel:  "text-model",
		VisionModel: "vision-model",
	})
}

func manyPages(n, chars int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = strings.Repeat("x", chars)
	}
	return pages
}

func TestRunUnknownUpload(t *testing.T) {
	db := newFakeDB()
	g := newTestGenerator(t, db, &fakeExtractor{}, &scriptedModel{})

	_, err := g.Run(context.Background(), GenerateRequest{UploadID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, db.statuses)
}

func TestRunEmptyDocument(t *testing.T) {
	db := newFakeDB(testUpload())
	g := newTestGenerator(t, db, &fakeExtractor{pages: nil}, &scriptedModel{})

	_, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyDocument)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusError}, db.statuses)
	assert.NotEmpty(t, db.lastError)
}

func TestRunHappyPath(t *testing.T) {
	db := newFakeDB(testUpload())
	model := &scriptedModel{replies: []reply{
		{body: suggestionsJSON(2, 1)},
		{body: suggestionsJSON(2, 3)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(4, 500)}, model)

	res, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Created)
	assert.Equal(t, "linear-algebra", res.DeckName)
	assert.Equal(t, "text-model", res.Model)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusDone}, db.statuses)
	assert.Equal(t, 4, db.pageCount)
	require.Len(t, db.decks, 1)
	assert.Len(t, db.cards, 4)

	for _, card := range db.cards {
		assert.Equal(t, db.decks[0].ID, card.DeckID)
		assert.Equal(t, "pdf", card.ProvSource)
		require.NotNil(t, card.ProvUploadID)
		assert.Equal(t, "up-1", *card.ProvUploadID)
		assert.Contains(t, card.Tags, "difficulty:medium")
	}
}

func TestRunEveryCardGetsSchedulingState(t *testing.T) {
	db := newFakeDB(testUpload())
	model := &scriptedModel{replies: []reply{
		{body: suggestionsJSON(3, 1)},
		{body: suggestionsJSON(3, 3)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(4, 500)}, model)

	_, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 6})
	require.NoError(t, err)

	require.Len(t, db.srs, len(db.cards))
	byCard := map[string]bool{}
	for _, s := range db.srs {
		byCard[s.CardID] = true
		assert.Equal(t, DefaultEase, s.Ease)
		assert.Equal(t, DefaultInterval, s.IntervalDays)
		require.NotNil(t, s.Due)
		require.NotNil(t, s.LastReviewed)
	}
	for _, c := range db.cards {
		assert.True(t, byCard[c.ID], "card %s has no srs row", c.ID)
	}
}

func TestRunFairShareGrowsAfterFailedChunk(t *testing.T) {
	db := newFakeDB(testUpload())
	// 10 pages, window 2 -> 5 chunks. Target 10 asks 2 of the first chunk;
	// after it produces nothing the ask grows to ceil(10/4) = 3.
	model := &scriptedModel{replies: []reply{
		{body: []byte(`{"suggestions":[]}`)},
		{body: suggestionsJSON(3, 3)},
		{body: suggestionsJSON(3, 5)},
		{body: suggestionsJSON(2, 7)},
		{body: suggestionsJSON(2, 9)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(10, 500)}, model)

	res, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Created)

	require.Len(t, model.prompts, 5)
	assert.Contains(t, model.prompts[0], "at most 2 suggestions")
	assert.Contains(t, model.prompts[1], "at most 3 suggestions")
}

func TestRunMalformedChunkSkipped(t *testing.T) {
	db := newFakeDB(testUpload())
	model := &scriptedModel{replies: []reply{
		{err: fmt.Errorf("%w: response is not valid JSON", core.ErrMalformedOutput)},
		{body: suggestionsJSON(2, 3)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(4, 500)}, model)

	res, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusDone}, db.statuses)
}

func TestRunModelFailureAbortsJob(t *testing.T) {
	db := newFakeDB(testUpload())
	model := &scriptedModel{replies: []reply{
		{err: fmt.Errorf("ollama at http://localhost:11434: %w: connection refused", core.ErrUnreachable)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(4, 500)}, model)

	_, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnreachable)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusError}, db.statuses)
}

func TestRunZeroCardsIsStillDone(t *testing.T) {
	db := newFakeDB(testUpload())
	model := &scriptedModel{replies: []reply{
		{body: []byte(`{"suggestions":[]}`)},
		{body: []byte(`not json at all`)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(4, 500)}, model)

	res, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, db.cards)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusDone}, db.statuses)
}

func TestRunStopsAtTargetAndKeepsSurplus(t *testing.T) {
	db := newFakeDB(testUpload())
	model := &scriptedModel{replies: []reply{
		{body: suggestionsJSON(5, 1)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(2, 500)}, model)

	res, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Len(t, db.cards, 3)

	// The two extras survive as reviewable suggestions.
	require.Len(t, db.suggestions, 2)
	for _, s := range db.suggestions {
		assert.Equal(t, models.SuggestionNew, s.Status)
		assert.Equal(t, "up-1", s.UploadID)
	}
}

func TestRunVisionRouting(t *testing.T) {
	cases := []struct {
		name         string
		pages        []string
		preferVision bool
		wantModel    string
	}{
		{"dense text", manyPages(4, 500), false, "text-model"},
		{"sparse text looks scanned", manyPages(4, 10), false, "vision-model"},
		{"explicit preference", manyPages(4, 500), true, "vision-model"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newFakeDB(testUpload())
			model := &scriptedModel{replies: []reply{
				{body: suggestionsJSON(1, 1)},
				{body: suggestionsJSON(1, 3)},
			}}
			g := newTestGenerator(t, db, &fakeExtractor{pages: tc.pages}, model)

			res, err := g.Run(context.Background(), GenerateRequest{
				UploadID:     "up-1",
				TargetCount:  2,
				PreferVision: tc.preferVision,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantModel, res.Model)
			require.NotEmpty(t, model.modelsUsed)
			assert.Equal(t, tc.wantModel, model.modelsUsed[0])
		})
	}
}

func TestRunGeminiWithoutClient(t *testing.T) {
	db := newFakeDB(testUpload())
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(2, 500)}, &scriptedModel{})

	_, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", Engine: EngineGemini})
	require.Error(t, err)
	var cfgErr *core.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusError}, db.statuses)
}

func TestRunCardInsertFailureSkipsCard(t *testing.T) {
	db := newFakeDB(testUpload())
	db.failCardInsert = true
	model := &scriptedModel{replies: []reply{
		{body: suggestionsJSON(2, 1)},
	}}
	g := newTestGenerator(t, db, &fakeExtractor{pages: manyPages(2, 500)}, model)

	res, err := g.Run(context.Background(), GenerateRequest{UploadID: "up-1", TargetCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusDone}, db.statuses)
}

func TestFairShare(t *testing.T) {
	assert.Equal(t, 2, fairShare(10, 0, 5, 0))
	assert.Equal(t, 3, fairShare(10, 0, 4, 0))
	assert.Equal(t, 3, fairShare(10, 0, 5, 1))
	// Always asks for at least one even past the target.
	assert.Equal(t, 1, fairShare(10, 10, 5, 4))
	// Last chunk absorbs the whole remainder.
	assert.Equal(t, 7, fairShare(10, 3, 5, 4))
}
