package sessions

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
	"github.com/wordbox/backend/internal/models"
)

const (
	quizColumns = `id, user_id, cadence, question_count, correct_count, score, session_date, created_at, delivery, graded_at`
	gameColumns = `id, user_id, score, lives, session_date, created_at`
)

var (
	errQuizNotFound = apperr.New(apperr.CodeNotFound, "Quiz not found")
	errQuizGraded   = apperr.New(apperr.CodeConflict, "Quiz has already been graded")
	errDailyTaken   = apperr.New(apperr.CodePolicyDenied, "You already took a daily quiz. Try again tomorrow")
	errGameNotFound = apperr.New(apperr.CodeNotFound, "Game not found")
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ── Quizzes ─────────────────────────────────────────────

func (s *Store) CreateQuiz(ctx context.Context, userID uuid.UUID, cadence models.Cadence, questionCount int, day time.Time) (*models.QuizSession, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(
		`INSERT INTO quiz_sessions (user_id, cadence, question_count, session_date)
		 VALUES (?, ?, ?, ?) RETURNING id`),
		userID, cadence, questionCount, database.Day(day))
	if database.IsUniqueViolation(err) {
		// Two requests raced past the gate for the same day.
		return nil, errDailyTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return s.GetQuiz(ctx, userID, id)
}

func (s *Store) GetQuiz(ctx context.Context, userID uuid.UUID, id int64) (*models.QuizSession, error) {
	var q models.QuizSession
	err := s.db.GetContext(ctx, &q, s.db.Rebind(
		`SELECT `+quizColumns+` FROM quiz_sessions
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return &q, nil
}

func (s *Store) ListQuizzes(ctx context.Context, userID uuid.UUID, r models.DateRange) ([]models.QuizSession, error) {
	where, args := dateRange([]string{"user_id = ?", "is_deleted = FALSE"}, []interface{}{userID}, r)

	quizzes := []models.QuizSession{}
	err := s.db.SelectContext(ctx, &quizzes, s.db.Rebind(
		`SELECT `+quizColumns+` FROM quiz_sessions
		 WHERE `+where+` ORDER BY created_at DESC, id DESC`), args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, userID uuid.UUID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE quiz_sessions SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`), id, userID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return expectOne(res, errQuizNotFound)
}

type quizCounters struct {
	CorrectCount int `db:"correct_count"`
	Score        int `db:"score"`
}

// CreditQuizAnswer adds one correct answer and recomputes the score in a
// single conditional update, so concurrent credits never overwrite each
// other. ok is false when the quiz is gone or already fully correct.
func (s *Store) CreditQuizAnswer(ctx context.Context, userID uuid.UUID, id int64) (correct, score int, ok bool, err error) {
	var c quizCounters
	err = s.db.GetContext(ctx, &c, s.db.Rebind(
		`UPDATE quiz_sessions
		 SET correct_count = correct_count + 1,
		     score = CAST(ROUND((correct_count + 1) * 100.0 / question_count) AS INTEGER),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE AND correct_count < question_count
		   AND delivery = ? AND graded_at IS NULL
		 RETURNING correct_count, score`), id, userID, models.DeliverySingle)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("credit quiz answer: %w", err)
	}
	return c.CorrectCount, c.Score, true, nil
}

// ClaimQuizDelivery fixes how the quiz is served. Claiming the mode the
// quiz already has is a no-op; a quiz served the other way, or already
// graded, is a conflict.
func (s *Store) ClaimQuizDelivery(ctx context.Context, userID uuid.UUID, id int64, mode models.QuizDelivery) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE quiz_sessions SET delivery = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE AND graded_at IS NULL
		   AND (delivery IS NULL OR delivery = ?)`),
		mode, id, userID, mode)
	if err != nil {
		return fmt.Errorf("claim quiz delivery: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.quizConflict(ctx, userID, id)
	}
	return nil
}

// SetQuizResult stores a graded batch. A quiz is graded at most once.
func (s *Store) SetQuizResult(ctx context.Context, userID uuid.UUID, id int64, correct, questionCount, score int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE quiz_sessions
		 SET correct_count = ?, question_count = ?, score = ?,
		     graded_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE
		   AND delivery = ? AND graded_at IS NULL`),
		correct, questionCount, score, id, userID, models.DeliveryBatch)
	if err != nil {
		return fmt.Errorf("set quiz result: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.quizConflict(ctx, userID, id)
	}
	return nil
}

// quizConflict explains why a conditional quiz update matched no row.
func (s *Store) quizConflict(ctx context.Context, userID uuid.UUID, id int64) error {
	quiz, err := s.GetQuiz(ctx, userID, id)
	if err != nil {
		return err
	}
	if quiz.GradedAt != nil {
		return errQuizGraded
	}
	mode := "not started"
	if quiz.Delivery != nil {
		mode = string(*quiz.Delivery)
	}
	return apperr.New(apperr.CodeConflict, fmt.Sprintf("Quiz is served in %s mode", mode))
}

// HasQuizOn reports whether the learner started a quiz of this cadence on
// day, counting deleted quizzes.
func (s *Store) HasQuizOn(ctx context.Context, userID uuid.UUID, cadence models.Cadence, day time.Time) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(
		`SELECT COUNT(*) FROM quiz_sessions
		 WHERE user_id = ? AND cadence = ? AND session_date = ?`), userID, cadence, database.Day(day))
	if err != nil {
		return false, fmt.Errorf("quiz on day: %w", err)
	}
	return n > 0, nil
}

// LatestQuizDate returns the date of the newest quiz of this cadence,
// counting deleted quizzes.
func (s *Store) LatestQuizDate(ctx context.Context, userID uuid.UUID, cadence models.Cadence) (*time.Time, error) {
	var day time.Time
	err := s.db.GetContext(ctx, &day, s.db.Rebind(
		`SELECT session_date FROM quiz_sessions
		 WHERE user_id = ? AND cadence = ?
		 ORDER BY session_date DESC LIMIT 1`), userID, cadence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest quiz date: %w", err)
	}
	return &day, nil
}

// ── Games ───────────────────────────────────────────────

func (s *Store) CreateGame(ctx context.Context, userID uuid.UUID, score, lives int, day time.Time) (*models.GameSession, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(
		`INSERT INTO game_sessions (user_id, score, lives, session_date)
		 VALUES (?, ?, ?, ?) RETURNING id`),
		userID, score, lives, database.Day(day))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return s.GetGame(ctx, userID, id)
}

func (s *Store) GetGame(ctx context.Context, userID uuid.UUID, id int64) (*models.GameSession, error) {
	var g models.GameSession
	err := s.db.GetContext(ctx, &g, s.db.Rebind(
		`SELECT `+gameColumns+` FROM game_sessions
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &g, nil
}

func (s *Store) ListGames(ctx context.Context, userID uuid.UUID, r models.DateRange) ([]models.GameSession, error) {
	where, args := dateRange([]string{"user_id = ?", "is_deleted = FALSE"}, []interface{}{userID}, r)

	games := []models.GameSession{}
	err := s.db.SelectContext(ctx, &games, s.db.Rebind(
		`SELECT `+gameColumns+` FROM game_sessions
		 WHERE `+where+` ORDER BY created_at DESC, id DESC`), args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

func (s *Store) DeleteGame(ctx context.Context, userID uuid.UUID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE game_sessions SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`), id, userID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return expectOne(res, errGameNotFound)
}

type gameCounters struct {
	Score int `db:"score"`
	Lives int `db:"lives"`
}

// ApplyGameAnswer adds a point for a correct answer or takes a life for a
// wrong one. ok is false when the game is gone or has no lives left.
func (s *Store) ApplyGameAnswer(ctx context.Context, userID uuid.UUID, id int64, correct bool) (score, lives int, ok bool, err error) {
	set := "lives = lives - 1"
	if correct {
		set = "score = score + 1"
	}

	var c gameCounters
	err = s.db.GetContext(ctx, &c, s.db.Rebind(
		`UPDATE game_sessions SET `+set+`, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE AND lives > 0
		 RETURNING score, lives`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("apply game answer: %w", err)
	}
	return c.Score, c.Lives, true, nil
}

// ── Helpers ─────────────────────────────────────────────

func dateRange(where []string, args []interface{}, r models.DateRange) (string, []interface{}) {
	if r.Start != nil {
		where = append(where, "session_date >= ?")
		args = append(args, database.Day(*r.Start))
	}
	if r.End != nil {
		where = append(where, "session_date <= ?")
		args = append(args, database.Day(*r.End))
	}
	return strings.Join(where, " AND "), args
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
