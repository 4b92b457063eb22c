package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

// StartQuiz creates a quiz once the policy gate allows it. The question
// count comes from the cadence.
func (e *Engine) StartQuiz(ctx context.Context, userID uuid.UUID, cadence models.Cadence) (*models.QuizSession, error) {
	today := e.today()
	rule, err := e.gate.Authorize(ctx, userID, cadence, today)
	if err != nil {
		return nil, err
	}

	quiz, err := e.store.CreateQuiz(ctx, userID, cadence, rule.QuestionCount, today)
	if apperr.CodeOf(err) == apperr.CodePolicyDenied {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to create quiz", err)
	}

	e.log.Info("quiz started", append(sessionFields(userID, models.KindQuiz, quiz.ID),
		zap.String("cadence", string(cadence)),
		zap.Int("question_count", quiz.QuestionCount),
	)...)
	return quiz, nil
}

func (e *Engine) GetQuiz(ctx context.Context, userID uuid.UUID, id int64) (*models.QuizSession, error) {
	return e.store.GetQuiz(ctx, userID, id)
}

func (e *Engine) ListQuizzes(ctx context.Context, userID uuid.UUID, r models.DateRange) ([]models.QuizSession, error) {
	return e.store.ListQuizzes(ctx, userID, r)
}

// DeleteQuiz soft-deletes the quiz and drops its ephemeral state.
func (e *Engine) DeleteQuiz(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := e.store.DeleteQuiz(ctx, userID, id); err != nil {
		return err
	}
	e.clearSession(ctx, userID, models.KindQuiz, id)
	return nil
}

// NextQuizQuestion issues the next question of the quiz, preferring saved
// words that are due. Issuing replaces any unanswered question.
func (e *Engine) NextQuizQuestion(ctx context.Context, userID uuid.UUID, id int64) (*models.QuestionResponse, error) {
	quiz, err := e.store.GetQuiz(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if quiz.GradedAt != nil {
		return finished(models.FinishedCompleted), nil
	}

	usedKey := cache.UsedIDsKey(userID, models.KindQuiz, id)
	used, err := e.usedIDs(ctx, usedKey)
	if err != nil {
		return nil, err
	}
	if len(used) >= quiz.QuestionCount {
		return finished(models.FinishedCompleted), nil
	}
	if err := e.store.ClaimQuizDelivery(ctx, userID, id, models.DeliverySingle); err != nil {
		return nil, err
	}

	saved, err := e.saved.Candidates(ctx, userID, used)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load saved words", err)
	}
	if len(saved) == 0 {
		return finished(models.FinishedNoMoreQuestions), nil
	}

	q, err := e.buildFor(ctx, e.orderCandidates(saved), nil)
	if err != nil {
		return nil, err
	}

	number, err := e.reserve(ctx, usedKey, q.WordID, e.cfg.QuizUsedTTL)
	if err != nil {
		return nil, err
	}
	if number > quiz.QuestionCount {
		// A concurrent request took the last slot.
		return finished(models.FinishedCompleted), nil
	}

	if err := e.activate(ctx, cache.ActiveQuestionKey(userID, models.KindQuiz, id), q); err != nil {
		return nil, err
	}

	pub := q.Public()
	return &models.QuestionResponse{
		Question:       &pub,
		CurrentNumber:  number,
		TotalQuestions: quiz.QuestionCount,
	}, nil
}

// AnswerQuiz grades the outstanding question. The cached answer is taken
// atomically, so of two concurrent submissions only one is graded.
func (e *Engine) AnswerQuiz(ctx context.Context, userID uuid.UUID, id int64, selected int64) (*models.QuizAnswerResponse, error) {
	quiz, err := e.store.GetQuiz(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	key := cache.ActiveQuestionKey(userID, models.KindQuiz, id)
	aq, raw, err := e.consume(ctx, key)
	if err != nil {
		return nil, err
	}

	resp := &models.QuizAnswerResponse{
		IsCorrect:         selected == aq.CorrectWordID,
		CorrectWordID:     aq.CorrectWordID,
		CorrectAnswerText: aq.CorrectText,
		Score:             quiz.Score,
		CorrectCount:      quiz.CorrectCount,
		QuestionCount:     quiz.QuestionCount,
	}

	if resp.IsCorrect {
		correct, score, ok, err := e.store.CreditQuizAnswer(ctx, userID, id)
		if err != nil {
			return nil, e.restore(ctx, key, raw, e.cfg.ActiveQuestionTTL, err)
		}
		if ok {
			resp.CorrectCount = correct
			resp.Score = score
		}
	}

	e.log.Debug("quiz answer graded", append(sessionFields(userID, models.KindQuiz, id),
		zap.Bool("correct", resp.IsCorrect),
		zap.Int("score", resp.Score),
	)...)
	return resp, nil
}

func finished(reason string) *models.QuestionResponse {
	return &models.QuestionResponse{Finished: true, Reason: reason}
}
