package models

import (
	"time"

	"github.com/google/uuid"
)

// Cadence is the periodicity class of a quiz.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

func (c Cadence) Valid() bool {
	return c == CadenceDaily || c == CadenceWeekly || c == CadenceMonthly
}

// SessionKind separates quiz and game id spaces in ephemeral keys.
type SessionKind string

const (
	KindQuiz SessionKind = "quiz"
	KindGame SessionKind = "game"
)

// QuizDelivery is how a quiz's questions are served. It is fixed by the
// first question or batch issued.
type QuizDelivery string

const (
	DeliverySingle QuizDelivery = "single"
	DeliveryBatch  QuizDelivery = "batch"
)

type QuizSession struct {
	ID            int64     `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Cadence       Cadence   `json:"cadence" db:"cadence"`
	QuestionCount int       `json:"question_count" db:"question_count"`
	CorrectCount  int       `json:"correct_count" db:"correct_count"`
	Score         int       `json:"score" db:"score"`
	Date          time.Time `json:"date" db:"session_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	Delivery *QuizDelivery `json:"delivery,omitempty" db:"delivery"`
	GradedAt *time.Time    `json:"graded_at,omitempty" db:"graded_at"`
}

type GameSession struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Score     int       `json:"score" db:"score"`
	Lives     int       `json:"lives" db:"lives"`
	Date      time.Time `json:"date" db:"session_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (g GameSession) Over() bool {
	return g.Lives <= 0
}

// ── Requests ────────────────────────────────────────────

type StartQuizRequest struct {
	Cadence Cadence `json:"cadence" validate:"required,oneof=daily weekly monthly"`
}

type StartGameRequest struct {
	Score *int `json:"score" validate:"omitempty,gte=0"`
	Lives *int `json:"lives" validate:"omitempty,gte=1,lte=100"`
}

type AnswerRequest struct {
	SelectedWordID int64 `json:"selected_word_id" validate:"required,gt=0"`
}

type BatchAnswer struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedWordID int64  `json:"selected_word_id"`
}

type BatchAnswersRequest struct {
	Answers []BatchAnswer `json:"answers" validate:"required,dive"`
}

type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ── Questions ───────────────────────────────────────────

type QuestionOption struct {
	WordID int64  `json:"word_id"`
	Text   string `json:"text"`
}

// Question is the client-facing multiple-choice question. It has no
// field for the correct answer.
type Question struct {
	Prompt  string           `json:"prompt"`
	Options []QuestionOption `json:"options"`
}

const (
	FinishedCompleted       = "completed"
	FinishedNoMoreQuestions = "no_more_questions"
	FinishedGameOver        = "game_over"
)

type QuestionResponse struct {
	Question       *Question `json:"question,omitempty"`
	CurrentNumber  int       `json:"current_number,omitempty"`
	TotalQuestions int       `json:"total_questions,omitempty"`
	Finished       bool      `json:"finished"`
	Reason         string    `json:"reason,omitempty"`
}

type BatchQuestion struct {
	QuestionID string `json:"question_id"`
	Question
}

type BatchResponse struct {
	SessionID int64           `json:"session_id"`
	Questions []BatchQuestion `json:"questions"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ── Results ─────────────────────────────────────────────

type QuizAnswerResponse struct {
	IsCorrect         bool   `json:"is_correct"`
	CorrectWordID     int64  `json:"correct_word_id"`
	CorrectAnswerText string `json:"correct_answer_text"`
	Score             int    `json:"score"`
	CorrectCount      int    `json:"correct_count"`
	QuestionCount     int    `json:"question_count"`
}

type GameAnswerResponse struct {
	IsCorrect         bool   `json:"is_correct"`
	CorrectWordID     int64  `json:"correct_word_id"`
	CorrectAnswerText string `json:"correct_answer_text"`
	Score             int    `json:"score"`
	Lives             int    `json:"lives"`
	GameOver          bool   `json:"game_over"`
}

type BatchGradeResponse struct {
	CorrectCount  int `json:"correct_count"`
	QuestionCount int `json:"question_count"`
	Score         int `json:"score"`
}
