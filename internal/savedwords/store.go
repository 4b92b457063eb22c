package savedwords

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
)

const savedColumns = `sw.id, sw.user_id, sw.word_id, sw.description, sw.box, sw.last_reviewed_on, sw.created_at,
	w.source_text, w.target_text, w.category_id`

type savedRow struct {
	ID             int64       `db:"id"`
	UserID         uuid.UUID   `db:"user_id"`
	WordID         int64       `db:"word_id"`
	Description    string      `db:"description"`
	Box            leitner.Box `db:"box"`
	LastReviewedOn *time.Time  `db:"last_reviewed_on"`
	CreatedAt      time.Time   `db:"created_at"`
	SourceText     string      `db:"source_text"`
	TargetText     string      `db:"target_text"`
	CategoryID     *int64      `db:"category_id"`
}

func (r savedRow) toModel() models.SavedWord {
	return models.SavedWord{
		ID:             r.ID,
		UserID:         r.UserID,
		WordID:         r.WordID,
		Description:    r.Description,
		Box:            r.Box,
		LastReviewedOn: r.LastReviewedOn,
		CreatedAt:      r.CreatedAt,
		Word: &models.Word{
			ID:         r.WordID,
			Source:     r.SourceText,
			Target:     r.TargetText,
			CategoryID: r.CategoryID,
		},
	}
}

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Add saves a word for the learner in box new. A soft-deleted entry for the
// same word is revived and reset; a live one is a conflict.
func (s *Store) Add(ctx context.Context, userID uuid.UUID, wordID int64, description string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(
		`INSERT INTO saved_words (user_id, word_id, description, box)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, word_id) DO UPDATE
		 SET is_deleted = FALSE, box = excluded.box, last_reviewed_on = NULL,
		     description = excluded.description, updated_at = CURRENT_TIMESTAMP
		 WHERE saved_words.is_deleted = TRUE
		 RETURNING id`),
		userID, wordID, description, leitner.BoxNew)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.New(apperr.CodeConflict, "Word is already saved")
	}
	if err != nil {
		return 0, fmt.Errorf("add saved word: %w", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, userID uuid.UUID, id int64) (*models.SavedWord, error) {
	var row savedRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT `+savedColumns+`
		 FROM saved_words sw JOIN words w ON w.id = sw.word_id
		 WHERE sw.id = ? AND sw.user_id = ? AND sw.is_deleted = FALSE AND w.is_deleted = FALSE`),
		id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "Saved word not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get saved word: %w", err)
	}
	sw := row.toModel()
	return &sw, nil
}

func (s *Store) List(ctx context.Context, userID uuid.UUID, f models.SavedWordFilter) ([]models.SavedWord, error) {
	where := []string{"sw.user_id = ?", "sw.is_deleted = FALSE", "w.is_deleted = FALSE"}
	args := []interface{}{userID}

	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		where = append(where, "(LOWER(w.source_text) LIKE ? OR LOWER(w.target_text) LIKE ?)")
		args = append(args, like, like)
	}
	if f.Box != nil {
		where = append(where, "sw.box = ?")
		args = append(args, *f.Box)
	}

	var rows []savedRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT `+savedColumns+`
		 FROM saved_words sw JOIN words w ON w.id = sw.word_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY sw.created_at DESC, sw.id DESC`), args...)
	if err != nil {
		return nil, fmt.Errorf("list saved words: %w", err)
	}

	out := make([]models.SavedWord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Candidates returns the learner's live saved words whose word id is not
// in exclude.
func (s *Store) Candidates(ctx context.Context, userID uuid.UUID, exclude []int64) ([]models.SavedWord, error) {
	notIn, notInArgs := database.NotInClause("sw.word_id", exclude)
	query, args, err := database.Expand(s.db,
		`SELECT `+savedColumns+`
		 FROM saved_words sw JOIN words w ON w.id = sw.word_id
		 WHERE sw.user_id = ? AND sw.is_deleted = FALSE AND w.is_deleted = FALSE`+notIn,
		append([]interface{}{userID}, notInArgs...)...)
	if err != nil {
		return nil, err
	}

	var rows []savedRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("saved word candidates: %w", err)
	}
	out := make([]models.SavedWord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) CountSaved(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(
		`SELECT COUNT(*) FROM saved_words sw JOIN words w ON w.id = sw.word_id
		 WHERE sw.user_id = ? AND sw.is_deleted = FALSE AND w.is_deleted = FALSE`), userID)
	if err != nil {
		return 0, fmt.Errorf("count saved words: %w", err)
	}
	return n, nil
}

// Review stores the outcome of a review. description is left untouched
// when nil.
func (s *Store) Review(ctx context.Context, userID uuid.UUID, id int64, box leitner.Box, reviewedOn time.Time, description *string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE saved_words
		 SET box = ?, last_reviewed_on = ?, description = COALESCE(?, description), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`),
		box, database.Day(reviewedOn), description, id, userID)
	if err != nil {
		return fmt.Errorf("review saved word: %w", err)
	}
	return expectOne(res, "Saved word not found")
}

func (s *Store) UpdateDescription(ctx context.Context, userID uuid.UUID, id int64, description string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE saved_words SET description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`),
		description, id, userID)
	if err != nil {
		return fmt.Errorf("update saved word: %w", err)
	}
	return expectOne(res, "Saved word not found")
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE saved_words SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`),
		id, userID)
	if err != nil {
		return fmt.Errorf("delete saved word: %w", err)
	}
	return expectOne(res, "Saved word not found")
}

func expectOne(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, notFound)
	}
	return nil
}
