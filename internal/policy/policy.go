package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/leitner"
	"github.com/wordbox/backend/internal/models"
)

// Rule is the fixed shape of a quiz cadence.
type Rule struct {
	QuestionCount int
	// CooldownDays is the number of days after the latest session before
	// another may start. Zero means once per calendar day.
	CooldownDays int
	RetryHint    string
}

var rules = map[models.Cadence]Rule{
	models.CadenceDaily:   {QuestionCount: 5, CooldownDays: 0, RetryHint: "tomorrow"},
	models.CadenceWeekly:  {QuestionCount: 10, CooldownDays: 7, RetryHint: "next week"},
	models.CadenceMonthly: {QuestionCount: 15, CooldownDays: 30, RetryHint: "next month"},
}

func RuleFor(c models.Cadence) (Rule, bool) {
	r, ok := rules[c]
	return r, ok
}

// History answers questions about a learner's past quizzes. Both methods
// include soft-deleted sessions.
type History interface {
	HasQuizOn(ctx context.Context, userID uuid.UUID, cadence models.Cadence, day time.Time) (bool, error)
	// LatestQuizDate returns nil when the learner never took a quiz of
	// this cadence.
	LatestQuizDate(ctx context.Context, userID uuid.UUID, cadence models.Cadence) (*time.Time, error)
}

type SavedWordCounter interface {
	CountSaved(ctx context.Context, userID uuid.UUID) (int, error)
}

// CanStart applies the cooldown rule to the learner's history. For daily
// quizzes latest is only consulted when it falls on today.
func CanStart(cadence models.Cadence, latest *time.Time, today time.Time) bool {
	rule, ok := rules[cadence]
	if !ok {
		return false
	}
	if latest == nil {
		return true
	}
	last := leitner.Day(*latest)
	day := leitner.Day(today)
	if rule.CooldownDays == 0 {
		return !last.Equal(day)
	}
	return !last.AddDate(0, 0, rule.CooldownDays).After(day)
}

type Gate struct {
	history History
	words   SavedWordCounter
}

func NewGate(history History, words SavedWordCounter) *Gate {
	return &Gate{history: history, words: words}
}

// Authorize returns nil when the learner may start a quiz of the given
// cadence today, or a policy_denied error saying why not. The vocabulary
// size check runs before the cooldown check.
func (g *Gate) Authorize(ctx context.Context, userID uuid.UUID, cadence models.Cadence, today time.Time) (Rule, error) {
	rule, ok := rules[cadence]
	if !ok {
		return Rule{}, apperr.New(apperr.CodeInvalidRequest, fmt.Sprintf("unknown cadence %q", cadence))
	}

	saved, err := g.words.CountSaved(ctx, userID)
	if err != nil {
		return Rule{}, apperr.Wrap(apperr.CodeInternal, "Failed to count saved words", err)
	}
	if saved < rule.QuestionCount {
		return Rule{}, apperr.New(apperr.CodePolicyDenied, fmt.Sprintf(
			"Not enough saved words for a %s quiz: need %d, have %d", cadence, rule.QuestionCount, saved))
	}

	var latest *time.Time
	if rule.CooldownDays == 0 {
		taken, err := g.history.HasQuizOn(ctx, userID, cadence, leitner.Day(today))
		if err != nil {
			return Rule{}, apperr.Wrap(apperr.CodeInternal, "Failed to read quiz history", err)
		}
		if taken {
			day := leitner.Day(today)
			latest = &day
		}
	} else {
		latest, err = g.history.LatestQuizDate(ctx, userID, cadence)
		if err != nil {
			return Rule{}, apperr.Wrap(apperr.CodeInternal, "Failed to read quiz history", err)
		}
	}

	if !CanStart(cadence, latest, today) {
		return Rule{}, apperr.New(apperr.CodePolicyDenied, fmt.Sprintf(
			"You already took a %s quiz. Try again %s", cadence, rule.RetryHint))
	}
	return rule, nil
}
