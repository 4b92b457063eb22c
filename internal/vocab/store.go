package vocab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/models"
	"golang.org/x/sync/singleflight"
)

const wordColumns = `w.id, w.source_text, w.target_text, w.category_id, w.created_at`

// wordRow is a word joined with its category name.
type wordRow struct {
	models.Word
	CategoryName sql.NullString `db:"category_name"`
}

func (r wordRow) toWord() models.Word {
	w := r.Word
	if w.CategoryID != nil && r.CategoryName.Valid {
		w.Category = &models.Category{ID: *w.CategoryID, Name: r.CategoryName.String}
	}
	return w
}

// Store is the vocabulary collaborator. Every read excludes soft-deleted
// words. It also serves as the question generator's WordSource.
type Store struct {
	db     *sqlx.DB
	bounds singleflight.Group
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ── Word source ─────────────────────────────────────────

type idBounds struct {
	Lo int64 `db:"lo"`
	Hi int64 `db:"hi"`
}

// Bounds returns the live id range. Concurrent callers share one query.
func (s *Store) Bounds(ctx context.Context) (int64, int64, error) {
	v, err, _ := s.bounds.Do("bounds", func() (interface{}, error) {
		var b idBounds
		err := s.db.GetContext(ctx, &b,
			`SELECT COALESCE(MIN(id), 1) AS lo, COALESCE(MAX(id), 0) AS hi
			 FROM words WHERE is_deleted = FALSE`)
		if err != nil {
			return nil, fmt.Errorf("word bounds: %w", err)
		}
		return b, nil
	})
	if err != nil {
		return 0, 0, err
	}
	b := v.(idBounds)
	return b.Lo, b.Hi, nil
}

func (s *Store) Probe(ctx context.Context, pivot int64, forward bool, exclude []int64) (*models.Word, error) {
	cmp, order := ">=", "ASC"
	if !forward {
		cmp, order = "<", "DESC"
	}
	notIn, notInArgs := database.NotInClause("w.id", exclude)

	query, args, err := database.Expand(s.db,
		`SELECT `+wordColumns+` FROM words w
		 WHERE w.is_deleted = FALSE AND w.id `+cmp+` ?`+notIn+`
		 ORDER BY w.id `+order+` LIMIT 1`,
		append([]interface{}{pivot}, notInArgs...)...)
	if err != nil {
		return nil, err
	}

	var w models.Word
	err = s.db.GetContext(ctx, &w, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe word: %w", err)
	}
	return &w, nil
}

func (s *Store) SameCategory(ctx context.Context, categoryID int64, exclude []int64, limit int) ([]models.Word, error) {
	notIn, notInArgs := database.NotInClause("w.id", exclude)
	args := append([]interface{}{categoryID}, notInArgs...)
	args = append(args, limit)

	query, args, err := database.Expand(s.db,
		`SELECT `+wordColumns+` FROM words w
		 WHERE w.is_deleted = FALSE AND w.category_id = ?`+notIn+`
		 ORDER BY RANDOM() LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}

	var words []models.Word
	if err := s.db.SelectContext(ctx, &words, query, args...); err != nil {
		return nil, fmt.Errorf("same-category words: %w", err)
	}
	return words, nil
}

// ── Lookups ─────────────────────────────────────────────

func (s *Store) GetWord(ctx context.Context, id int64) (*models.Word, error) {
	var row wordRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT `+wordColumns+`, c.name AS category_name
		 FROM words w LEFT JOIN categories c ON c.id = w.category_id
		 WHERE w.id = ? AND w.is_deleted = FALSE`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "Word not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get word: %w", err)
	}
	w := row.toWord()
	return &w, nil
}

// GetWords returns the live words among ids keyed by id.
func (s *Store) GetWords(ctx context.Context, ids []int64) (map[int64]models.Word, error) {
	out := make(map[int64]models.Word, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := database.Expand(s.db,
		`SELECT `+wordColumns+` FROM words w WHERE w.is_deleted = FALSE AND w.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var words []models.Word
	if err := s.db.SelectContext(ctx, &words, query, args...); err != nil {
		return nil, fmt.Errorf("get words: %w", err)
	}
	for _, w := range words {
		out[w.ID] = w
	}
	return out, nil
}

func (s *Store) ListWords(ctx context.Context, f models.WordFilter) ([]models.Word, error) {
	var (
		where []string
		args  []interface{}
	)
	where = append(where, "w.is_deleted = FALSE")

	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if f.Exact {
			where = append(where, "(LOWER(w.source_text) = ? OR LOWER(w.target_text) = ?)")
			args = append(args, search, search)
		} else {
			like := "%" + search + "%"
			where = append(where, "(LOWER(w.source_text) LIKE ? OR LOWER(w.target_text) LIKE ?)")
			args = append(args, like, like)
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	var rows []wordRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT `+wordColumns+`, c.name AS category_name
		 FROM words w LEFT JOIN categories c ON c.id = w.category_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY w.created_at DESC, w.id DESC
		 LIMIT ? OFFSET ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}

	words := make([]models.Word, len(rows))
	for i, r := range rows {
		words[i] = r.toWord()
	}
	return words, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories,
		`SELECT id, name FROM categories WHERE is_deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ── Writes ──────────────────────────────────────────────

// EnsureCategory returns the id of the named category, creating it when
// missing.
func (s *Store) EnsureCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(
		`SELECT id FROM categories WHERE LOWER(name) = LOWER(?) AND is_deleted = FALSE`), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find category: %w", err)
	}

	err = s.db.GetContext(ctx, &id, s.db.Rebind(
		`INSERT INTO categories (name) VALUES (?) RETURNING id`), name)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

// FindWord returns the live word with exactly this source text, or nil.
func (s *Store) FindWord(ctx context.Context, source string) (*models.Word, error) {
	var w models.Word
	err := s.db.GetContext(ctx, &w, s.db.Rebind(
		`SELECT `+wordColumns+` FROM words w
		 WHERE LOWER(w.source_text) = LOWER(?) AND w.is_deleted = FALSE
		 ORDER BY w.id LIMIT 1`), source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find word: %w", err)
	}
	return &w, nil
}

func (s *Store) CreateWord(ctx context.Context, source, target string, categoryID *int64) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(
		`INSERT INTO words (source_text, target_text, category_id) VALUES (?, ?, ?) RETURNING id`),
		source, target, categoryID)
	if err != nil {
		return 0, fmt.Errorf("create word: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateWord(ctx context.Context, id int64, target string, categoryID *int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE words SET target_text = ?, category_id = ? WHERE id = ?`), target, categoryID, id)
	if err != nil {
		return fmt.Errorf("update word: %w", err)
	}
	return nil
}

func (s *Store) DeleteWord(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE words SET is_deleted = TRUE WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	return nil
}
