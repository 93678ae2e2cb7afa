package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/models"
)

// Decks

func (c *DatabaseClient) CreateDeck(ctx context.Context, deck *models.Deck) error {
	if deck == nil {
		return errors.New("nil deck")
	}
	const q = `
		INSERT INTO decks (id, user_id, subject_id, name, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err := c.db.ExecContext(ctx, q, deck.ID, deck.UserID, deck.SubjectID, deck.Name, nullTime(deck.CreatedAt))
	return err
}

func (c *DatabaseClient) GetDeckByID(ctx context.Context, id string) (*models.Deck, error) {
	const q = `SELECT id, user_id, subject_id, name, created_at FROM decks WHERE id = $1`
	var d models.Deck
	err := c.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.UserID, &d.SubjectID, &d.Name, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDecks(ctx context.Context, f core.DeckFilter) ([]models.Deck, error) {
	q := `
		SELECT id, user_id, subject_id, name, created_at
		FROM decks
		WHERE 1=1
	`
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.SubjectID != "" {
		args = append(args, f.SubjectID)
		q += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Deck
	for rows.Next() {
		var d models.Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.SubjectID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteDeck(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM decks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("deck %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// Cards

func (c *DatabaseClient) CreateCard(ctx context.Context, card *models.Card) error {
	if card == nil {
		return errors.New("nil card")
	}
	tags, err := jsonCol(card.Tags)
	if err != nil {
		return err
	}
	refs, err := jsonCol(card.ProvPageRefs)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO cards
			(id, user_id, deck_id, type, front, back, tags, prov_source, prov_upload_id, prov_page_refs, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
	`
	_, err = c.db.ExecContext(ctx, q,
		card.ID, card.UserID, card.DeckID, card.Type, card.Front, card.Back,
		tags, card.ProvSource, card.ProvUploadID, refs, nullTime(card.CreatedAt))
	return err
}

func (c *DatabaseClient) GetCardByID(ctx context.Context, id string) (*models.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	rows, err := c.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanCard(rows)
}

// UpdateCard rewrites the editable fields; provenance is immutable.
func (c *DatabaseClient) UpdateCard(ctx context.Context, card *models.Card) error {
	if card == nil {
		return errors.New("nil card")
	}
	tags, err := jsonCol(card.Tags)
	if err != nil {
		return err
	}
	const q = `
		UPDATE cards
		SET type = $2, front = $3, back = $4, tags = $5
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, card.ID, card.Type, card.Front, card.Back, tags)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("card %s: %w", card.ID, core.ErrNotFound)
	}
	return nil
}

func scanCard(rows *sql.Rows) (*models.Card, error) {
	var (
		card models.Card
		tags []byte
		refs []byte
	)
	if err := rows.Scan(
		&card.ID, &card.UserID, &card.DeckID, &card.Type, &card.Front, &card.Back,
		&tags, &card.ProvSource, &card.ProvUploadID, &refs, &card.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &card.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(refs, &card.ProvPageRefs); err != nil {
		return nil, fmt.Errorf("unmarshal page refs: %w", err)
	}
	return &card, nil
}

const cardColumns = `id, user_id, deck_id, type, front, back, tags, prov_source, prov_upload_id, prov_page_refs, created_at`

func (c *DatabaseClient) ListCardsByDeck(ctx context.Context, deckID string) ([]models.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE deck_id = $1 ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountCardsByUpload(ctx context.Context, uploadID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM cards WHERE prov_upload_id = $1`, uploadID).Scan(&n)
	return n, err
}

func (c *DatabaseClient) DeleteCard(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// Suggestions

func (c *DatabaseClient) CreateSuggestion(ctx context.Context, s *models.Suggestion) error {
	if s == nil {
		return errors.New("nil suggestion")
	}
	refs, err := jsonCol(s.PageRefs)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO suggestions
			(id, user_id, upload_id, deck_id, type, front, back, page_refs, confidence, difficulty, status, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()))
	`
	_, err = c.db.ExecContext(ctx, q,
		s.ID, s.UserID, s.UploadID, s.DeckID, s.Type, s.Front, s.Back,
		refs, s.Confidence, s.Difficulty, s.Status, nullTime(s.CreatedAt))
	return err
}

const suggestionColumns = `id, user_id, upload_id, deck_id, type, front, back, page_refs, confidence, difficulty, status, created_at`

func scanSuggestion(scan func(dest ...any) error) (*models.Suggestion, error) {
	var (
		s    models.Suggestion
		refs []byte
	)
	if err := scan(
		&s.ID, &s.UserID, &s.UploadID, &s.DeckID, &s.Type, &s.Front, &s.Back,
		&refs, &s.Confidence, &s.Difficulty, &s.Status, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refs, &s.PageRefs); err != nil {
		return nil, fmt.Errorf("unmarshal page refs: %w", err)
	}
	return &s, nil
}

func (c *DatabaseClient) GetSuggestionByID(ctx context.Context, id string) (*models.Suggestion, error) {
	q := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE id = $1`
	row := c.db.QueryRowContext(ctx, q, id)
	s, err := scanSuggestion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *DatabaseClient) ListSuggestions(ctx context.Context, f core.SuggestionFilter) ([]models.Suggestion, error) {
	q := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE 1=1`
	var args []any
	if f.UploadID != "" {
		args = append(args, f.UploadID)
		q += fmt.Sprintf(" AND upload_id = $%d", len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateSuggestion(ctx context.Context, s *models.Suggestion) error {
	if s == nil {
		return errors.New("nil suggestion")
	}
	refs, err := jsonCol(s.PageRefs)
	if err != nil {
		return err
	}
	const q = `
		UPDATE suggestions
		SET deck_id = $2, type = $3, front = $4, back = $5, page_refs = $6,
		    confidence = $7, difficulty = $8, status = $9
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		s.ID, s.DeckID, s.Type, s.Front, s.Back, refs, s.Confidence, s.Difficulty, s.Status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("suggestion %s: %w", s.ID, core.ErrNotFound)
	}
	return nil
}

// SRS

func (c *DatabaseClient) CreateSRSState(ctx context.Context, state *models.SRSState) error {
	if state == nil {
		return errors.New("nil srs state")
	}
	const q = `
		INSERT INTO srs (card_id, ease, interval_days, due, last_reviewed)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := c.db.ExecContext(ctx, q, state.CardID, state.Ease, state.IntervalDays, state.Due, state.LastReviewed)
	return err
}

func (c *DatabaseClient) GetSRSStateByCard(ctx context.Context, cardID string) (*models.SRSState, error) {
	const q = `
		SELECT card_id, ease, interval_days, due, last_reviewed
		FROM srs
		WHERE card_id = $1
	`
	var s models.SRSState
	err := c.db.QueryRowContext(ctx, q, cardID).Scan(&s.CardID, &s.Ease, &s.IntervalDays, &s.Due, &s.LastReviewed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) UpdateSRSState(ctx context.Context, state *models.SRSState) error {
	if state == nil {
		return errors.New("nil srs state")
	}
	const q = `
		UPDATE srs
		SET ease = $2, interval_days = $3, due = $4, last_reviewed = $5
		WHERE card_id = $1
	`
	res, err := c.db.ExecContext(ctx, q, state.CardID, state.Ease, state.IntervalDays, state.Due, state.LastReviewed)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("srs state for card %s: %w", state.CardID, core.ErrNotFound)
	}
	return nil
}

func (c *DatabaseClient) ListDueCards(ctx context.Context, deckID string, due time.Time) ([]models.Card, error) {
	q := `
		SELECT ` + cardColumns + `
		FROM cards
		JOIN srs ON srs.card_id = cards.id
		WHERE cards.deck_id = $1 AND (srs.due IS NULL OR srs.due <= $2)
		ORDER BY srs.due ASC NULLS FIRST
	`
	rows, err := c.db.QueryContext(ctx, q, deckID, due)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	return out, rows.Err()
}
