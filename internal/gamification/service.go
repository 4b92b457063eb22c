package gamification

import (
	"context"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	LeaderboardSize = 5
	recentQuizLimit = 15
	recentGameLimit = 4
)

type Service struct {
	store *Store
	log   *zap.Logger
}

func NewService(store *Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Leaderboard(ctx context.Context) (*models.LeaderboardResponse, error) {
	entries, err := s.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load leaderboard", err)
	}
	return &models.LeaderboardResponse{Entries: entries}, nil
}

// MyRank returns the learner's leaderboard entry, or not_found when they
// are outside the top five.
func (s *Service) MyRank(ctx context.Context, userID uuid.UUID) (*models.LeaderboardEntry, error) {
	board, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range board.Entries {
		if e.UserID == userID {
			e := e
			return &e, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "You are not on the leaderboard")
}

// Dashboard gathers the learner's statistics. The aggregates are
// independent and run concurrently.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	var (
		stats    models.DashboardStats
		cadences map[models.Cadence]models.CadenceStats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.Words, err = s.store.WordStats(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		cadences, err = s.store.QuizStats(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Quizzes.Recent, err = s.store.RecentQuizzes(ctx, userID, recentQuizLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Games.Count, stats.Games.AvgScore, err = s.store.GameStats(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Games.Recent, err = s.store.RecentGames(ctx, userID, recentGameLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("dashboard aggregation failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load dashboard", err)
	}

	// Report every box, including empty ones.
	for _, b := range leitner.Boxes() {
		if _, ok := stats.Words.ByBox[b.String()]; !ok {
			stats.Words.ByBox[b.String()] = 0
		}
	}
	stats.Quizzes.Daily = cadences[models.CadenceDaily]
	stats.Quizzes.Weekly = cadences[models.CadenceWeekly]
	stats.Quizzes.Monthly = cadences[models.CadenceMonthly]
	return &stats, nil
}
