package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/generator"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
	"github.com/wordbox/backend/internal/policy"
	"go.uber.org/zap"
)

// SessionStore persists quiz and game rows.
type SessionStore interface {
	CreateQuiz(ctx context.Context, userID uuid.UUID, cadence models.Cadence, questionCount int, day time.Time) (*models.QuizSession, error)
	GetQuiz(ctx context.Context, userID uuid.UUID, id int64) (*models.QuizSession, error)
	ListQuizzes(ctx context.Context, userID uuid.UUID, r models.DateRange) ([]models.QuizSession, error)
	DeleteQuiz(ctx context.Context, userID uuid.UUID, id int64) error
	CreditQuizAnswer(ctx context.Context, userID uuid.UUID, id int64) (correct, score int, ok bool, err error)
	ClaimQuizDelivery(ctx context.Context, userID uuid.UUID, id int64, mode models.QuizDelivery) error
	SetQuizResult(ctx context.Context, userID uuid.UUID, id int64, correct, questionCount, score int) error

	CreateGame(ctx context.Context, userID uuid.UUID, score, lives int, day time.Time) (*models.GameSession, error)
	GetGame(ctx context.Context, userID uuid.UUID, id int64) (*models.GameSession, error)
	ListGames(ctx context.Context, userID uuid.UUID, r models.DateRange) ([]models.GameSession, error)
	DeleteGame(ctx context.Context, userID uuid.UUID, id int64) error
	ApplyGameAnswer(ctx context.Context, userID uuid.UUID, id int64, correct bool) (score, lives int, ok bool, err error)
}

// CandidateSource lists a learner's saved words for quiz questions.
type CandidateSource interface {
	Candidates(ctx context.Context, userID uuid.UUID, exclude []int64) ([]models.SavedWord, error)
}

type Gate interface {
	Authorize(ctx context.Context, userID uuid.UUID, cadence models.Cadence, today time.Time) (policy.Rule, error)
}

type QuestionGenerator interface {
	Build(ctx context.Context, word models.Word, excludeTexts []string) (*generator.Question, error)
	RandomWord(ctx context.Context, exclude map[int64]bool) (*models.Word, error)
	Shuffle(n int, swap func(i, j int))
}

type Config struct {
	ActiveQuestionTTL    time.Duration
	QuizUsedTTL          time.Duration
	GameUsedTTL          time.Duration
	BatchTTL             time.Duration
	MaxCandidateAttempts int
}

func DefaultConfig() Config {
	return Config{
		ActiveQuestionTTL:    5 * time.Minute,
		QuizUsedTTL:          time.Hour,
		GameUsedTTL:          6 * time.Hour,
		BatchTTL:             time.Hour,
		MaxCandidateAttempts: 20,
	}
}

const defaultGameLives = 3

// Engine runs quiz and survival-game sessions. The correct answer of the
// outstanding question lives only in the cache and is consumed exactly
// once on submission.
type Engine struct {
	store  SessionStore
	saved  CandidateSource
	gate   Gate
	gen    QuestionGenerator
	cache  cache.Store
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
	newQID func() string
}

func NewEngine(store SessionStore, saved CandidateSource, gate Gate, gen QuestionGenerator, c cache.Store, cfg Config, log *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		saved:  saved,
		gate:   gate,
		gen:    gen,
		cache:  c,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		newQID: func() string { return uuid.NewString() },
	}
}

func (e *Engine) today() time.Time {
	return leitner.Day(e.now())
}

// activeQuestion is the cached answer of the outstanding question.
type activeQuestion struct {
	CorrectWordID int64     `json:"correct_word_id"`
	CorrectText   string    `json:"correct_text"`
	OptionIDs     []int64   `json:"option_ids"`
	IssuedAt      time.Time `json:"issued_at"`
}

func (e *Engine) usedIDs(ctx context.Context, key string) ([]int64, error) {
	raw, err := e.cache.Range(ctx, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to read session state", err)
	}
	ids := make([]int64, 0, len(raw))
	for _, b := range raw {
		id, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// reserve appends wordID to the session's used list and returns the
// 1-based number of the question it belongs to.
func (e *Engine) reserve(ctx context.Context, key string, wordID int64, ttl time.Duration) (int, error) {
	n, err := e.cache.Append(ctx, key, []byte(strconv.FormatInt(wordID, 10)), ttl)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "Failed to record question", err)
	}
	return int(n), nil
}

// activate stores q as the session's only outstanding question, replacing
// whatever was there.
func (e *Engine) activate(ctx context.Context, key string, q *generator.Question) error {
	var correctText string
	for _, o := range q.Options {
		if o.WordID == q.WordID {
			correctText = o.Text
		}
	}
	b, err := json.Marshal(activeQuestion{
		CorrectWordID: q.WordID,
		CorrectText:   correctText,
		OptionIDs:     q.OptionIDs(),
		IssuedAt:      e.now().UTC(),
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to encode question", err)
	}
	if err := e.cache.Set(ctx, key, b, e.cfg.ActiveQuestionTTL); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to store question", err)
	}
	return nil
}

// consume atomically takes the outstanding question. The raw bytes are
// returned so the caller can put them back if the score update fails.
func (e *Engine) consume(ctx context.Context, key string) (*activeQuestion, []byte, error) {
	raw, err := e.cache.Take(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil, apperr.New(apperr.CodeNoActiveQuestion, "No active question, the answer window may have expired")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "Failed to read active question", err)
	}

	var aq activeQuestion
	if err := json.Unmarshal(raw, &aq); err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "Corrupt active question", err)
	}
	return &aq, raw, nil
}

// restore puts a consumed entry back after a failed score update so the
// learner can resubmit. An entry written in the meantime, such as a newer
// question, is left alone.
func (e *Engine) restore(ctx context.Context, key string, raw []byte, ttl time.Duration, cause error) error {
	added, err := e.cache.Add(ctx, key, raw, ttl)
	switch {
	case err != nil:
		e.log.Warn("failed to restore consumed cache entry",
			zap.String("key", key),
			zap.Error(err),
		)
	case !added:
		e.log.Info("newer cache entry present, consumed entry dropped", zap.String("key", key))
	}
	return apperr.Wrap(apperr.CodeInternal, "Failed to update session", cause)
}

// buildFor tries to build a question for each word in turn until one
// succeeds or the candidate budget runs out. Words that cannot produce a
// question are reported through skip.
func (e *Engine) buildFor(ctx context.Context, words []models.Word, skip func(id int64)) (*generator.Question, error) {
	for i, w := range words {
		if i >= e.cfg.MaxCandidateAttempts {
			break
		}
		q, err := e.gen.Build(ctx, w, nil)
		if errors.Is(err, generator.ErrEmptyTranslation) || errors.Is(err, generator.ErrGenerationExhausted) {
			e.log.Warn("skipping word that cannot produce a question",
				zap.Int64("word_id", w.ID),
				zap.Error(err),
			)
			if skip != nil {
				skip(w.ID)
			}
			continue
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "Failed to generate question", err)
		}
		if !q.Complete() {
			e.log.Warn("question has fewer options than expected",
				zap.Int64("word_id", w.ID),
				zap.Int("options", len(q.Options)),
			)
		}
		return q, nil
	}
	return nil, apperr.New(apperr.CodeGenerationExhausted, "Could not generate a question from the remaining words")
}

// orderCandidates puts due words first, each group shuffled.
func (e *Engine) orderCandidates(saved []models.SavedWord) []models.Word {
	today := e.today()
	var due, rest []models.Word
	for _, sw := range saved {
		if sw.Word == nil {
			continue
		}
		if leitner.IsDue(sw.Box, sw.LastReviewedOn, today) {
			due = append(due, *sw.Word)
		} else {
			rest = append(rest, *sw.Word)
		}
	}
	e.gen.Shuffle(len(due), func(i, j int) { due[i], due[j] = due[j], due[i] })
	e.gen.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	return append(due, rest...)
}

func sessionFields(userID uuid.UUID, kind models.SessionKind, id int64) []zap.Field {
	return []zap.Field{
		zap.String("user_id", userID.String()),
		zap.String("kind", string(kind)),
		zap.Int64("session_id", id),
	}
}

func (e *Engine) clearSession(ctx context.Context, userID uuid.UUID, kind models.SessionKind, id int64) {
	if err := e.cache.Delete(ctx, cache.SessionKeys(userID, kind, id)...); err != nil {
		e.log.Warn("failed to clear session cache", append(sessionFields(userID, kind, id), zap.Error(err))...)
	}
}

func scorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}
