package sessions

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/models"
	"go.uber.org/zap"
)

var errBatchOutstanding = apperr.New(apperr.CodeConflict,
	"Questions for this quiz are already out, grade them or wait for them to expire")

// batchItem maps an opaque question id to the word it asks about.
type batchItem struct {
	QuestionID string `json:"question_id"`
	WordID     int64  `json:"word_id"`
}

// PrepareBatch generates every question of the quiz up front. Clients get
// opaque question ids; the id-to-word mapping stays in the cache until the
// batch is graded or expires. Graded quizzes and quizzes served one
// question at a time are refused, as is a second batch while one is out.
func (e *Engine) PrepareBatch(ctx context.Context, userID uuid.UUID, id int64) (*models.BatchResponse, error) {
	quiz, err := e.store.GetQuiz(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if quiz.GradedAt != nil {
		return nil, errQuizGraded
	}
	if err := e.store.ClaimQuizDelivery(ctx, userID, id, models.DeliveryBatch); err != nil {
		return nil, err
	}

	key := cache.BatchKey(userID, id)
	if _, err := e.cache.Get(ctx, key); err == nil {
		return nil, errBatchOutstanding
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to read questions", err)
	}

	saved, err := e.saved.Candidates(ctx, userID, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load saved words", err)
	}
	pool := e.orderCandidates(saved)

	items := make([]batchItem, 0, quiz.QuestionCount)
	questions := make([]models.BatchQuestion, 0, quiz.QuestionCount)
	for len(items) < quiz.QuestionCount && len(pool) > 0 {
		attempted := 0
		q, err := e.buildFor(ctx, pool, func(int64) { attempted++ })
		if apperr.CodeOf(err) == apperr.CodeGenerationExhausted {
			break
		}
		if err != nil {
			return nil, err
		}
		// buildFor walks the pool in order; drop the skipped words and the
		// one just used.
		pool = pool[attempted+1:]

		qid := e.newQID()
		items = append(items, batchItem{QuestionID: qid, WordID: q.WordID})
		questions = append(questions, models.BatchQuestion{QuestionID: qid, Question: q.Public()})
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.CodeGenerationExhausted, "Could not generate questions for this quiz")
	}

	b, err := json.Marshal(items)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to encode questions", err)
	}
	added, err := e.cache.Add(ctx, key, b, e.cfg.BatchTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to store questions", err)
	}
	if !added {
		return nil, errBatchOutstanding
	}

	if len(items) < quiz.QuestionCount {
		e.log.Warn("batch shorter than quiz", append(sessionFields(userID, models.KindQuiz, id),
			zap.Int("prepared", len(items)),
			zap.Int("question_count", quiz.QuestionCount),
		)...)
	}

	return &models.BatchResponse{
		SessionID: id,
		Questions: questions,
		ExpiresAt: e.now().UTC().Add(e.cfg.BatchTTL),
	}, nil
}

// GradeBatch scores a whole prepared batch. Repeated question ids count
// once (the first answer wins) and unknown ids are ignored. The prepared
// set is consumed, so a batch can be graded only once.
func (e *Engine) GradeBatch(ctx context.Context, userID uuid.UUID, id int64, answers []models.BatchAnswer) (*models.BatchGradeResponse, error) {
	quiz, err := e.store.GetQuiz(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if quiz.GradedAt != nil {
		return nil, errQuizGraded
	}

	key := cache.BatchKey(userID, id)
	raw, err := e.cache.Take(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, apperr.New(apperr.CodeNoCachedQuestions, "Questions expired, start the quiz again")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to read questions", err)
	}

	var items []batchItem
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, apperr.New(apperr.CodeNoCachedQuestions, "Questions expired, start the quiz again")
	}

	expected := make(map[string]int64, len(items))
	for _, it := range items {
		expected[it.QuestionID] = it.WordID
	}

	seen := make(map[string]bool, len(answers))
	correct := 0
	for _, a := range answers {
		wordID, ok := expected[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		if a.SelectedWordID == wordID {
			correct++
		}
	}

	total := len(expected)
	score := scorePercent(correct, total)
	if err := e.store.SetQuizResult(ctx, userID, id, correct, total, score); err != nil {
		if code := apperr.CodeOf(err); code == apperr.CodeNotFound || code == apperr.CodeConflict {
			return nil, err
		}
		return nil, e.restore(ctx, key, raw, e.cfg.BatchTTL, err)
	}

	e.log.Info("quiz batch graded", append(sessionFields(userID, models.KindQuiz, id),
		zap.Int("correct", correct),
		zap.Int("question_count", total),
	)...)
	return &models.BatchGradeResponse{CorrectCount: correct, QuestionCount: total, Score: score}, nil
}
