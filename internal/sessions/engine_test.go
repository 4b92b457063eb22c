package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/config"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/generator"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
	"github.com/wordbox/backend/internal/policy"
	"github.com/wordbox/backend/internal/savedwords"
	"github.com/wordbox/backend/internal/vocab"
	"go.uber.org/zap"
)

// flakyStore fails the counter updates while fail is set. beforeUpdate,
// when set, runs first to interleave another request with the update.
type flakyStore struct {
	*Store
	fail         bool
	beforeUpdate func()
}

var errDown = errors.New("database is down")

func (s *flakyStore) CreditQuizAnswer(ctx context.Context, userID uuid.UUID, id int64) (int, int, bool, error) {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
	}
	if s.fail {
		return 0, 0, false, errDown
	}
	return s.Store.CreditQuizAnswer(ctx, userID, id)
}

func (s *flakyStore) ApplyGameAnswer(ctx context.Context, userID uuid.UUID, id int64, correct bool) (int, int, bool, error) {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
	}
	if s.fail {
		return 0, 0, false, errDown
	}
	return s.Store.ApplyGameAnswer(ctx, userID, id, correct)
}

type fixture struct {
	engine *Engine
	store  *flakyStore
	saved  *savedwords.Store
	words  *vocab.Store
	mem    *cache.Memory
	user   uuid.UUID
	// bySource maps a prompt back to its word id.
	bySource map[string]int64
	savedIDs []int64
	now      time.Time
}

func newFixture(t *testing.T, wordCount, savedCount int) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(config.DBConfig{Driver: "sqlite3", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		store:    &flakyStore{Store: NewStore(db)},
		saved:    savedwords.NewStore(db),
		words:    vocab.NewStore(db),
		mem:      cache.NewMemory(1000, "test:"),
		user:     uuid.New(),
		bySource: make(map[string]int64),
		now:      time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}

	for i := 0; i < wordCount; i++ {
		source := fmt.Sprintf("word%02d", i)
		id, err := f.words.CreateWord(ctx, source, fmt.Sprintf("ترجمه%02d", i), nil)
		require.NoError(t, err)
		f.bySource[source] = id
		if i < savedCount {
			sid, err := f.saved.Add(ctx, f.user, id, "")
			require.NoError(t, err)
			f.savedIDs = append(f.savedIDs, sid)
		}
	}

	gen := generator.New(f.words, generator.WithRand(rand.New(rand.NewSource(7))))
	gate := policy.NewGate(f.store, f.saved)
	f.engine = NewEngine(f.store, f.saved, gate, gen, f.mem, DefaultConfig(), zap.NewNop())
	f.engine.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) answerFor(t *testing.T, q *models.Question) int64 {
	t.Helper()
	id, ok := f.bySource[q.Prompt]
	require.True(t, ok, "unknown prompt %q", q.Prompt)
	return id
}

func (f *fixture) wrongFor(t *testing.T, q *models.Question) int64 {
	t.Helper()
	correct := f.answerFor(t, q)
	for _, o := range q.Options {
		if o.WordID != correct {
			return o.WordID
		}
	}
	return -1
}

func TestQuizRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 8)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	assert.Equal(t, 5, quiz.QuestionCount)
	assert.Equal(t, 0, quiz.Score)

	asked := map[string]bool{}
	for i := 1; i <= 5; i++ {
		resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
		require.NoError(t, err)
		require.False(t, resp.Finished)
		assert.Equal(t, i, resp.CurrentNumber)
		assert.Equal(t, 5, resp.TotalQuestions)
		assert.Len(t, resp.Question.Options, generator.OptionCount)
		assert.False(t, asked[resp.Question.Prompt], "word asked twice")
		asked[resp.Question.Prompt] = true

		selected := f.wrongFor(t, resp.Question)
		if i <= 3 {
			selected = f.answerFor(t, resp.Question)
		}
		ans, err := f.engine.AnswerQuiz(ctx, f.user, quiz.ID, selected)
		require.NoError(t, err)
		assert.Equal(t, i <= 3, ans.IsCorrect)
		assert.Equal(t, f.answerFor(t, resp.Question), ans.CorrectWordID)
	}

	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.True(t, resp.Finished)
	assert.Equal(t, models.FinishedCompleted, resp.Reason)

	got, err := f.engine.GetQuiz(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CorrectCount)
	assert.Equal(t, 60, got.Score)
}

func TestQuizRunsOutOfSavedWords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	// Drop three saved words after the quiz started.
	for _, id := range f.savedIDs[:3] {
		require.NoError(t, f.saved.Delete(ctx, f.user, id))
	}

	for i := 0; i < 2; i++ {
		resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
		require.NoError(t, err)
		require.False(t, resp.Finished)
	}
	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.True(t, resp.Finished)
	assert.Equal(t, models.FinishedNoMoreQuestions, resp.Reason)
}

func TestQuizPrefersDueWords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 6)

	// All but the last saved word were just reviewed into the 7-day box.
	for _, id := range f.savedIDs[:5] {
		require.NoError(t, f.saved.Review(ctx, f.user, id, leitner.Box7Days, leitner.Day(f.now), nil))
	}

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "word05", resp.Question.Prompt)
}

func TestStartQuizPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 5)

	_, err := f.engine.StartQuiz(ctx, f.user, models.CadenceWeekly)
	require.ErrorIs(t, err, apperr.ErrPolicyDenied)
	assert.Contains(t, apperr.MessageOf(err), "Not enough saved words")

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	_, err = f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.ErrorIs(t, err, apperr.ErrPolicyDenied)
	assert.Contains(t, apperr.MessageOf(err), "tomorrow")

	// Deleting the quiz does not reset the cooldown.
	require.NoError(t, f.engine.DeleteQuiz(ctx, f.user, quiz.ID))
	_, err = f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.ErrorIs(t, err, apperr.ErrPolicyDenied)

	f.now = f.now.AddDate(0, 0, 1)
	_, err = f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
}

func TestAnswerNeedsActiveQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	_, err = f.engine.AnswerQuiz(ctx, f.user, quiz.ID, 1)
	require.ErrorIs(t, err, apperr.ErrNoActiveQuestion)

	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	_, err = f.engine.AnswerQuiz(ctx, f.user, quiz.ID, f.answerFor(t, resp.Question))
	require.NoError(t, err)

	_, err = f.engine.AnswerQuiz(ctx, f.user, quiz.ID, f.answerFor(t, resp.Question))
	require.ErrorIs(t, err, apperr.ErrNoActiveQuestion)

	got, err := f.engine.GetQuiz(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CorrectCount)
	assert.Equal(t, 20, got.Score)
}

func TestNewQuestionReplacesOutstanding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 6)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	first, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	second, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.CurrentNumber)

	ans, err := f.engine.AnswerQuiz(ctx, f.user, quiz.ID, f.answerFor(t, first.Question))
	require.NoError(t, err)
	assert.False(t, ans.IsCorrect)
	assert.Equal(t, f.answerFor(t, second.Question), ans.CorrectWordID)
}

func TestConcurrentAnswersGradeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	correct := f.answerFor(t, resp.Question)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		graded   int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.AnswerQuiz(ctx, f.user, quiz.ID, correct)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				graded++
			case errors.Is(err, apperr.ErrNoActiveQuestion):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, graded)
	assert.Equal(t, n-1, rejected)

	got, err := f.engine.GetQuiz(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CorrectCount)
}

func TestConcurrentIssuanceStopsAtQuestionCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20, 15)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued []int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
			if err != nil || resp.Finished {
				return
			}
			mu.Lock()
			issued = append(issued, resp.CurrentNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, issued, 5)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, issued)
}

func TestQuestionPayloadHasNoAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "correct")
	assert.NotContains(t, string(b), "answer")
}

func TestAnswerRestoredWhenUpdateFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	resp, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	correct := f.answerFor(t, resp.Question)

	f.store.fail = true
	_, err = f.engine.AnswerQuiz(ctx, f.user, quiz.ID, correct)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.ErrorIs(t, err, errDown)

	f.store.fail = false
	ans, err := f.engine.AnswerQuiz(ctx, f.user, quiz.ID, correct)
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)
	assert.Equal(t, 1, ans.CorrectCount)
}

func TestDeleteQuizClearsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	_, err = f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteQuiz(ctx, f.user, quiz.ID))
	for _, key := range cache.SessionKeys(f.user, models.KindQuiz, quiz.ID) {
		_, err := f.mem.Get(ctx, key)
		assert.ErrorIs(t, err, cache.ErrMiss, key)
	}

	_, err = f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	game, err := f.engine.StartGame(ctx, f.user, models.StartGameRequest{})
	require.NoError(t, err)

	other := uuid.New()
	_, err = f.engine.GetQuiz(ctx, other, quiz.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.engine.NextGameQuestion(ctx, other, game.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.engine.DeleteGame(ctx, other, game.ID), apperr.ErrNotFound)
}

func TestListQuizzesByDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 10)

	_, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 2)
	_, err = f.engine.StartQuiz(ctx, f.user, models.CadenceWeekly)
	require.NoError(t, err)

	all, err := f.engine.ListQuizzes(ctx, f.user, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.CadenceWeekly, all[0].Cadence)

	start := leitner.Day(f.now)
	recent, err := f.engine.ListQuizzes(ctx, f.user, models.DateRange{Start: &start})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 10, recent[0].QuestionCount)
}

func TestGameLosesLives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 0)

	game, err := f.engine.StartGame(ctx, f.user, models.StartGameRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, game.Score)
	assert.Equal(t, 3, game.Lives)

	resp, err := f.engine.NextGameQuestion(ctx, f.user, game.ID)
	require.NoError(t, err)
	ans, err := f.engine.AnswerGame(ctx, f.user, game.ID, f.answerFor(t, resp.Question))
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)
	assert.Equal(t, 1, ans.Score)
	assert.Equal(t, 3, ans.Lives)

	for lives := 2; lives >= 0; lives-- {
		resp, err := f.engine.NextGameQuestion(ctx, f.user, game.ID)
		require.NoError(t, err)
		require.False(t, resp.Finished)

		ans, err := f.engine.AnswerGame(ctx, f.user, game.ID, f.wrongFor(t, resp.Question))
		require.NoError(t, err)
		assert.False(t, ans.IsCorrect)
		assert.Equal(t, lives, ans.Lives)
		assert.Equal(t, lives == 0, ans.GameOver)
	}

	resp, err = f.engine.NextGameQuestion(ctx, f.user, game.ID)
	require.NoError(t, err)
	assert.True(t, resp.Finished)
	assert.Equal(t, models.FinishedGameOver, resp.Reason)

	_, err = f.engine.AnswerGame(ctx, f.user, game.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrNoActiveQuestion)

	got, err := f.engine.GetGame(ctx, f.user, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Score)
	assert.True(t, got.Over())
}

func TestGameRunsOutOfWords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, 0)

	game, err := f.engine.StartGame(ctx, f.user, models.StartGameRequest{})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		resp, err := f.engine.NextGameQuestion(ctx, f.user, game.ID)
		require.NoError(t, err)
		require.False(t, resp.Finished)
		assert.False(t, seen[resp.Question.Prompt])
		seen[resp.Question.Prompt] = true
	}

	resp, err := f.engine.NextGameQuestion(ctx, f.user, game.ID)
	require.NoError(t, err)
	assert.True(t, resp.Finished)
	assert.Equal(t, models.FinishedNoMoreQuestions, resp.Reason)
}

func TestStartGameValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, 0)

	score, lives := 4, 5
	game, err := f.engine.StartGame(ctx, f.user, models.StartGameRequest{Score: &score, Lives: &lives})
	require.NoError(t, err)
	assert.Equal(t, 4, game.Score)
	assert.Equal(t, 5, game.Lives)

	zero := 0
	_, err = f.engine.StartGame(ctx, f.user, models.StartGameRequest{Lives: &zero})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestGameAnswerRestoredWhenUpdateFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 6, 0)

	game, err := f.engine.StartGame(ctx, f.user, models.StartGameRequest{})
	require.NoError(t, err)
	resp, err := f.engine.NextGameQuestion(ctx, f.user, game.ID)
	require.NoError(t, err)

	f.store.fail = true
	_, err = f.engine.AnswerGame(ctx, f.user, game.ID, f.wrongFor(t, resp.Question))
	require.Error(t, err)

	f.store.fail = false
	ans, err := f.engine.AnswerGame(ctx, f.user, game.ID, f.wrongFor(t, resp.Question))
	require.NoError(t, err)
	assert.Equal(t, 2, ans.Lives)
}

func TestBatchGrading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 8)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	batch, err := f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	require.Len(t, batch.Questions, 5)
	assert.Equal(t, quiz.ID, batch.SessionID)
	assert.Equal(t, f.now.Add(time.Hour), batch.ExpiresAt)

	ids := map[string]bool{}
	prompts := map[string]bool{}
	for _, q := range batch.Questions {
		ids[q.QuestionID] = true
		prompts[q.Prompt] = true
	}
	assert.Len(t, ids, 5)
	assert.Len(t, prompts, 5)

	var answers []models.BatchAnswer
	for i, q := range batch.Questions {
		q := q.Question
		selected := f.wrongFor(t, &q)
		if i < 3 {
			selected = f.answerFor(t, &q)
		}
		answers = append(answers, models.BatchAnswer{QuestionID: batch.Questions[i].QuestionID, SelectedWordID: selected})
	}
	// A later duplicate of a correct answer is ignored, as is an unknown id.
	answers = append(answers,
		models.BatchAnswer{QuestionID: batch.Questions[0].QuestionID, SelectedWordID: -1},
		models.BatchAnswer{QuestionID: batch.Questions[3].QuestionID, SelectedWordID: f.answerFor(t, &batch.Questions[3].Question)},
		models.BatchAnswer{QuestionID: uuid.NewString(), SelectedWordID: 1},
	)

	result, err := f.engine.GradeBatch(ctx, f.user, quiz.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CorrectCount)
	assert.Equal(t, 5, result.QuestionCount)
	assert.Equal(t, 60, result.Score)

	got, err := f.engine.GetQuiz(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, got.Score)

	_, err = f.engine.GradeBatch(ctx, f.user, quiz.ID, answers)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestBatchCannotBeRetaken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	batch, err := f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	var wrong []models.BatchAnswer
	for _, q := range batch.Questions {
		q := q
		wrong = append(wrong, models.BatchAnswer{QuestionID: q.QuestionID, SelectedWordID: f.wrongFor(t, &q.Question)})
	}
	result, err := f.engine.GradeBatch(ctx, f.user, quiz.ID, wrong)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)

	_, err = f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.engine.GradeBatch(ctx, f.user, quiz.ID, wrong)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	next, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.True(t, next.Finished)
	assert.Equal(t, models.FinishedCompleted, next.Reason)

	got, err := f.engine.GetQuiz(ctx, f.user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)
	require.NotNil(t, got.GradedAt)
	require.NotNil(t, got.Delivery)
	assert.Equal(t, models.DeliveryBatch, *got.Delivery)
}

func TestBatchRefusedWhileOutstanding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	_, err = f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	require.NoError(t, err)

	_, err = f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Once the prepared set expires unanswered, a new one may be issued.
	require.NoError(t, f.mem.Delete(ctx, cache.BatchKey(f.user, quiz.ID)))
	_, err = f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	assert.NoError(t, err)
}

func TestBatchAndSingleQuestionsExclusive(t *testing.T) {
	ctx := context.Background()

	t.Run("single first", func(t *testing.T) {
		f := newFixture(t, 12, 5)
		quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
		require.NoError(t, err)

		_, err = f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
		require.NoError(t, err)

		_, err = f.engine.PrepareBatch(ctx, f.user, quiz.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("batch first", func(t *testing.T) {
		f := newFixture(t, 12, 5)
		quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
		require.NoError(t, err)

		_, err = f.engine.PrepareBatch(ctx, f.user, quiz.ID)
		require.NoError(t, err)

		_, err = f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		_, err = f.engine.AnswerQuiz(ctx, f.user, quiz.ID, 1)
		assert.ErrorIs(t, err, apperr.ErrNoActiveQuestion)
	})
}

func TestRestoreKeepsNewerQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 12, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	first, err := f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	require.NoError(t, err)

	var second *models.QuestionResponse
	f.store.beforeUpdate = func() {
		second, err = f.engine.NextQuizQuestion(ctx, f.user, quiz.ID)
	}
	f.store.fail = true
	_, answerErr := f.engine.AnswerQuiz(ctx, f.user, quiz.ID, f.answerFor(t, first.Question))
	require.Error(t, answerErr)
	require.NoError(t, err)
	require.NotNil(t, second.Question)

	f.store.beforeUpdate = nil
	f.store.fail = false
	ans, err := f.engine.AnswerQuiz(ctx, f.user, quiz.ID, f.answerFor(t, second.Question))
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect, "the newer question must stay outstanding")
}

func TestGameAnswerAfterConcurrentDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 6, 0)

	game, err := f.engine.StartGame(ctx, f.user, models.StartGameRequest{})
	require.NoError(t, err)
	resp, err := f.engine.NextGameQuestion(ctx, f.user, game.ID)
	require.NoError(t, err)

	f.store.beforeUpdate = func() {
		require.NoError(t, f.store.DeleteGame(ctx, f.user, game.ID))
	}
	_, err = f.engine.AnswerGame(ctx, f.user, game.ID, f.wrongFor(t, resp.Question))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBatchPayloadHasNoAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)
	batch, err := f.engine.PrepareBatch(ctx, f.user, quiz.ID)
	require.NoError(t, err)

	b, err := json.Marshal(batch)
	require.NoError(t, err)
	body := string(b)
	assert.NotContains(t, body, "correct")
	assert.Equal(t, 5, strings.Count(body, `"question_id"`))
}

func TestGradeBatchWithoutPrepare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 5)

	quiz, err := f.engine.StartQuiz(ctx, f.user, models.CadenceDaily)
	require.NoError(t, err)

	_, err = f.engine.GradeBatch(ctx, f.user, quiz.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrNoCachedQuestions)
}

func TestScorePercent(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 5, 0},
		{3, 5, 60},
		{1, 3, 33},
		{2, 3, 67},
		{15, 15, 100},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := scorePercent(tt.correct, tt.total); got != tt.want {
			t.Errorf("scorePercent(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}
