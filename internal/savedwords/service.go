package savedwords

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

type WordLookup interface {
	GetWord(ctx context.Context, id int64) (*models.Word, error)
}

type Service struct {
	store *Store
	words WordLookup
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store *Store, words WordLookup, log *zap.Logger) *Service {
	return &Service{store: store, words: words, log: log, now: time.Now}
}

func (s *Service) today() time.Time {
	return leitner.Day(s.now())
}

func (s *Service) withDue(sw *models.SavedWord, today time.Time) {
	sw.IsDue = leitner.IsDue(sw.Box, sw.LastReviewedOn, today)
}

func (s *Service) Add(ctx context.Context, userID uuid.UUID, req models.AddSavedWordRequest) (*models.SavedWord, error) {
	if _, err := s.words.GetWord(ctx, req.WordID); err != nil {
		return nil, err
	}

	id, err := s.store.Add(ctx, userID, req.WordID, req.Description)
	if err != nil {
		return nil, err
	}

	s.log.Info("word saved",
		zap.String("user_id", userID.String()),
		zap.Int64("word_id", req.WordID),
		zap.Int64("saved_word_id", id),
	)
	return s.Get(ctx, userID, id)
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID, id int64) (*models.SavedWord, error) {
	sw, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.withDue(sw, s.today())
	return sw, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter models.SavedWordFilter) ([]models.SavedWord, error) {
	if filter.Box != nil && !filter.Box.Valid() {
		return nil, apperr.New(apperr.CodeInvalidRequest, "Invalid box")
	}

	words, err := s.store.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	today := s.today()
	for i := range words {
		s.withDue(&words[i], today)
	}
	return words, nil
}

// Review moves the saved word one box forward or back to 1day and stamps
// today as its review date.
func (s *Service) Review(ctx context.Context, userID uuid.UUID, id int64, req models.ReviewRequest) (*models.SavedWord, error) {
	sw, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	today := s.today()
	box, reviewedOn, err := leitner.Apply(sw.Box, req.Outcome, today)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidRequest, "Invalid review outcome", err)
	}

	if err := s.store.Review(ctx, userID, id, box, reviewedOn, req.Description); err != nil {
		return nil, err
	}

	s.log.Debug("word reviewed",
		zap.String("user_id", userID.String()),
		zap.Int64("saved_word_id", id),
		zap.Stringer("from", sw.Box),
		zap.Stringer("to", box),
	)
	return s.Get(ctx, userID, id)
}

func (s *Service) Edit(ctx context.Context, userID uuid.UUID, id int64, req models.EditSavedWordRequest) (*models.SavedWord, error) {
	if err := s.store.UpdateDescription(ctx, userID, id, req.Description); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	return s.store.Delete(ctx, userID, id)
}
