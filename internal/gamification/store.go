package gamification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wordbox/backend/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ── Leaderboard ─────────────────────────────────────────

// Leaderboard ranks learners by their best survival-game score. Ties go to
// whoever reached the score first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(
		`SELECT b.user_id, COALESCE(u.name, '') AS name, b.max_score
		 FROM (SELECT user_id, MAX(score) AS max_score
		       FROM game_sessions WHERE is_deleted = FALSE
		       GROUP BY user_id) b
		 JOIN game_sessions g
		   ON g.user_id = b.user_id AND g.score = b.max_score AND g.is_deleted = FALSE
		 LEFT JOIN users u ON u.id = b.user_id
		 GROUP BY b.user_id, u.name, b.max_score
		 ORDER BY b.max_score DESC, MIN(g.created_at) ASC, b.user_id
		 LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Name = formatDisplayName(entries[i].Name)
	}
	return entries, nil
}

// ── Dashboard aggregates ────────────────────────────────

func (s *Store) WordStats(ctx context.Context, userID uuid.UUID) (models.WordStats, error) {
	var rows []struct {
		Box   string `db:"box"`
		Count int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT sw.box, COUNT(*) AS n
		 FROM saved_words sw
		 JOIN words w ON w.id = sw.word_id AND w.is_deleted = FALSE
		 WHERE sw.user_id = ? AND sw.is_deleted = FALSE
		 GROUP BY sw.box`), userID)
	if err != nil {
		return models.WordStats{}, fmt.Errorf("word stats: %w", err)
	}

	stats := models.WordStats{ByBox: make(map[string]int, len(rows))}
	for _, r := range rows {
		stats.ByBox[r.Box] = r.Count
		stats.Total += r.Count
	}
	return stats, nil
}

func (s *Store) QuizStats(ctx context.Context, userID uuid.UUID) (map[models.Cadence]models.CadenceStats, error) {
	var rows []struct {
		Cadence  models.Cadence `db:"cadence"`
		Count    int            `db:"n"`
		AvgScore float64        `db:"avg_score"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT cadence, COUNT(*) AS n, COALESCE(AVG(score), 0) AS avg_score
		 FROM quiz_sessions
		 WHERE user_id = ? AND is_deleted = FALSE
		 GROUP BY cadence`), userID)
	if err != nil {
		return nil, fmt.Errorf("quiz stats: %w", err)
	}

	stats := make(map[models.Cadence]models.CadenceStats, len(rows))
	for _, r := range rows {
		stats[r.Cadence] = models.CadenceStats{Count: r.Count, AvgScore: r.AvgScore}
	}
	return stats, nil
}

func (s *Store) RecentQuizzes(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizSession, error) {
	quizzes := []models.QuizSession{}
	err := s.db.SelectContext(ctx, &quizzes, s.db.Rebind(
		`SELECT id, user_id, cadence, question_count, correct_count, score, session_date, created_at
		 FROM quiz_sessions
		 WHERE user_id = ? AND is_deleted = FALSE
		 ORDER BY created_at DESC, id DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *Store) GameStats(ctx context.Context, userID uuid.UUID) (count int, avg float64, err error) {
	var row struct {
		Count    int     `db:"n"`
		AvgScore float64 `db:"avg_score"`
	}
	err = s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT COUNT(*) AS n, COALESCE(AVG(score), 0) AS avg_score
		 FROM game_sessions
		 WHERE user_id = ? AND is_deleted = FALSE`), userID)
	if err != nil {
		return 0, 0, fmt.Errorf("game stats: %w", err)
	}
	return row.Count, row.AvgScore, nil
}

func (s *Store) RecentGames(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameSession, error) {
	games := []models.GameSession{}
	err := s.db.SelectContext(ctx, &games, s.db.Rebind(
		`SELECT id, user_id, score, lives, session_date, created_at
		 FROM game_sessions
		 WHERE user_id = ? AND is_deleted = FALSE
		 ORDER BY created_at DESC, id DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}
	return games, nil
}

// formatDisplayName shortens "First Last" to "First L.".
func formatDisplayName(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) <= 1 {
		return fullName
	}
	last := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(last[0]) + "."
}
