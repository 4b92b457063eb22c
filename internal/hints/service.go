package hints

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

// SavedWordLookup resolves a learner's saved word with its vocabulary row.
type SavedWordLookup interface {
	Get(ctx context.Context, userID uuid.UUID, id int64) (*models.SavedWord, error)
}

type Service struct {
	saved SavedWordLookup
	llm   LLMClient
	cache cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

func NewService(saved SavedWordLookup, llm LLMClient, c cache.Store, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{saved: saved, llm: llm, cache: c, ttl: ttl, log: log}
}

// Example returns an example sentence for one of the learner's saved
// words. Examples are shared between learners and cached by word.
func (s *Service) Example(ctx context.Context, userID uuid.UUID, savedWordID int64) (*models.ExampleResponse, error) {
	sw, err := s.saved.Get(ctx, userID, savedWordID)
	if err != nil {
		return nil, err
	}
	if sw.Word == nil {
		return nil, apperr.New(apperr.CodeNotFound, "Word not found")
	}

	key := cache.HintKey(sw.WordID)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var ex Example
		if err := json.Unmarshal(raw, &ex); err == nil {
			return toResponse(sw.WordID, &ex), nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("hint cache read failed", zap.Int64("word_id", sw.WordID), zap.Error(err))
	}

	resp, err := s.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(sw.Word.Source, sw.Word.Target))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to generate example", err)
	}
	ex, err := ParseExample(resp.Content)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to generate example", err)
	}

	s.log.Info("example generated",
		zap.Int64("word_id", sw.WordID),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)

	if b, err := json.Marshal(ex); err == nil {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.log.Warn("hint cache write failed", zap.Int64("word_id", sw.WordID), zap.Error(err))
		}
	}
	return toResponse(sw.WordID, ex), nil
}

func toResponse(wordID int64, ex *Example) *models.ExampleResponse {
	return &models.ExampleResponse{WordID: wordID, Sentence: ex.Sentence, Translation: ex.Translation}
}
