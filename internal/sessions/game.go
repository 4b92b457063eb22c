package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/generator"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

// StartGame creates a survival game. Omitted values default to score 0
// and three lives.
func (e *Engine) StartGame(ctx context.Context, userID uuid.UUID, req models.StartGameRequest) (*models.GameSession, error) {
	score, lives := 0, defaultGameLives
	if req.Score != nil {
		score = *req.Score
	}
	if req.Lives != nil {
		lives = *req.Lives
	}
	if score < 0 || lives < 1 {
		return nil, apperr.New(apperr.CodeInvalidRequest, "score must be >= 0 and lives >= 1")
	}

	game, err := e.store.CreateGame(ctx, userID, score, lives, e.today())
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to create game", err)
	}

	e.log.Info("game started", append(sessionFields(userID, models.KindGame, game.ID),
		zap.Int("lives", lives),
	)...)
	return game, nil
}

func (e *Engine) GetGame(ctx context.Context, userID uuid.UUID, id int64) (*models.GameSession, error) {
	return e.store.GetGame(ctx, userID, id)
}

func (e *Engine) ListGames(ctx context.Context, userID uuid.UUID, r models.DateRange) ([]models.GameSession, error) {
	return e.store.ListGames(ctx, userID, r)
}

func (e *Engine) DeleteGame(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := e.store.DeleteGame(ctx, userID, id); err != nil {
		return err
	}
	e.clearSession(ctx, userID, models.KindGame, id)
	return nil
}

// NextGameQuestion draws an unused word from the whole vocabulary. The
// game finishes when it runs out of words or lives.
func (e *Engine) NextGameQuestion(ctx context.Context, userID uuid.UUID, id int64) (*models.QuestionResponse, error) {
	game, err := e.store.GetGame(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if game.Over() {
		return finished(models.FinishedGameOver), nil
	}

	usedKey := cache.UsedIDsKey(userID, models.KindGame, id)
	used, err := e.usedIDs(ctx, usedKey)
	if err != nil {
		return nil, err
	}
	exclude := make(map[int64]bool, len(used))
	for _, wid := range used {
		exclude[wid] = true
	}

	var q *generator.Question
	for attempt := 0; attempt < e.cfg.MaxCandidateAttempts && q == nil; attempt++ {
		w, err := e.gen.RandomWord(ctx, exclude)
		if errors.Is(err, generator.ErrNoCandidates) || errors.Is(err, generator.ErrGenerationExhausted) {
			return finished(models.FinishedNoMoreQuestions), nil
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "Failed to pick a word", err)
		}

		q, err = e.buildFor(ctx, []models.Word{*w}, func(wid int64) { exclude[wid] = true })
		if apperr.CodeOf(err) == apperr.CodeGenerationExhausted {
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	if q == nil {
		return nil, apperr.New(apperr.CodeGenerationExhausted, "Could not generate a question")
	}

	number, err := e.reserve(ctx, usedKey, q.WordID, e.cfg.GameUsedTTL)
	if err != nil {
		return nil, err
	}
	if err := e.activate(ctx, cache.ActiveQuestionKey(userID, models.KindGame, id), q); err != nil {
		return nil, err
	}

	pub := q.Public()
	return &models.QuestionResponse{Question: &pub, CurrentNumber: number}, nil
}

// AnswerGame grades the outstanding question: a point for a correct
// answer, a life for a wrong one.
func (e *Engine) AnswerGame(ctx context.Context, userID uuid.UUID, id int64, selected int64) (*models.GameAnswerResponse, error) {
	game, err := e.store.GetGame(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if game.Over() {
		return nil, apperr.New(apperr.CodeNoActiveQuestion, "Game is over")
	}

	key := cache.ActiveQuestionKey(userID, models.KindGame, id)
	aq, raw, err := e.consume(ctx, key)
	if err != nil {
		return nil, err
	}

	isCorrect := selected == aq.CorrectWordID
	score, lives, ok, err := e.store.ApplyGameAnswer(ctx, userID, id, isCorrect)
	if err != nil {
		return nil, e.restore(ctx, key, raw, e.cfg.ActiveQuestionTTL, err)
	}
	if !ok {
		// The game ended or was deleted while this answer was in flight.
		cur, err := e.store.GetGame(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		score, lives = cur.Score, cur.Lives
	}

	resp := &models.GameAnswerResponse{
		IsCorrect:         isCorrect,
		CorrectWordID:     aq.CorrectWordID,
		CorrectAnswerText: aq.CorrectText,
		Score:             score,
		Lives:             lives,
		GameOver:          lives <= 0,
	}
	if resp.GameOver {
		e.log.Info("game over", append(sessionFields(userID, models.KindGame, id), zap.Int("score", score))...)
	}
	return resp, nil
}
