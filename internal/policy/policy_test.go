package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCanStart(t *testing.T) {
	d := day(2026, 10, 15)

	tests := []struct {
		name    string
		cadence models.Cadence
		latest  *time.Time
		today   time.Time
		want    bool
	}{
		{"daily first ever", models.CadenceDaily, nil, d, true},
		{"daily same day", models.CadenceDaily, &d, d, false},
		{"daily next day", models.CadenceDaily, &d, d.AddDate(0, 0, 1), true},
		{"daily same day late evening", models.CadenceDaily, &d, d.Add(23 * time.Hour), false},
		{"weekly after 6 days", models.CadenceWeekly, &d, d.AddDate(0, 0, 6), false},
		{"weekly after 7 days", models.CadenceWeekly, &d, d.AddDate(0, 0, 7), true},
		{"monthly after 29 days", models.CadenceMonthly, &d, d.AddDate(0, 0, 29), false},
		{"monthly after 30 days", models.CadenceMonthly, &d, d.AddDate(0, 0, 30), true},
		{"unknown cadence", models.Cadence("yearly"), nil, d, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanStart(tt.cadence, tt.latest, tt.today); got != tt.want {
				t.Errorf("CanStart(%s) = %v, want %v", tt.cadence, got, tt.want)
			}
		})
	}
}

func TestRuleFor(t *testing.T) {
	tests := []struct {
		cadence models.Cadence
		count   int
	}{
		{models.CadenceDaily, 5},
		{models.CadenceWeekly, 10},
		{models.CadenceMonthly, 15},
	}
	for _, tt := range tests {
		r, ok := RuleFor(tt.cadence)
		if !ok || r.QuestionCount != tt.count {
			t.Errorf("RuleFor(%s) = %d/%v, want %d", tt.cadence, r.QuestionCount, ok, tt.count)
		}
	}
}

type fakeHistory struct {
	onDay  map[models.Cadence]time.Time
	latest map[models.Cadence]time.Time
	err    error
}

func (f *fakeHistory) HasQuizOn(_ context.Context, _ uuid.UUID, c models.Cadence, d time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	got, ok := f.onDay[c]
	return ok && got.Equal(d), nil
}

func (f *fakeHistory) LatestQuizDate(_ context.Context, _ uuid.UUID, c models.Cadence) (*time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	got, ok := f.latest[c]
	if !ok {
		return nil, nil
	}
	return &got, nil
}

type fakeCounter int

func (f fakeCounter) CountSaved(context.Context, uuid.UUID) (int, error) {
	return int(f), nil
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	today := day(2026, 10, 15)

	tests := []struct {
		name     string
		history  *fakeHistory
		saved    int
		cadence  models.Cadence
		wantCode apperr.Code
	}{
		{
			name:    "allowed",
			history: &fakeHistory{},
			saved:   5,
			cadence: models.CadenceDaily,
		},
		{
			name:     "too few words",
			history:  &fakeHistory{},
			saved:    4,
			cadence:  models.CadenceDaily,
			wantCode: apperr.CodePolicyDenied,
		},
		{
			name:     "too few words checked before cooldown",
			history:  &fakeHistory{err: errors.New("history must not be read")},
			saved:    9,
			cadence:  models.CadenceWeekly,
			wantCode: apperr.CodePolicyDenied,
		},
		{
			name:     "daily taken today",
			history:  &fakeHistory{onDay: map[models.Cadence]time.Time{models.CadenceDaily: today}},
			saved:    20,
			cadence:  models.CadenceDaily,
			wantCode: apperr.CodePolicyDenied,
		},
		{
			name:    "daily taken yesterday",
			history: &fakeHistory{onDay: map[models.Cadence]time.Time{models.CadenceDaily: today.AddDate(0, 0, -1)}},
			saved:   20,
			cadence: models.CadenceDaily,
		},
		{
			name:     "weekly in cooldown",
			history:  &fakeHistory{latest: map[models.Cadence]time.Time{models.CadenceWeekly: today.AddDate(0, 0, -3)}},
			saved:    20,
			cadence:  models.CadenceWeekly,
			wantCode: apperr.CodePolicyDenied,
		},
		{
			name:    "weekly cooldown over, other cadence irrelevant",
			history: &fakeHistory{latest: map[models.Cadence]time.Time{models.CadenceWeekly: today.AddDate(0, 0, -7), models.CadenceMonthly: today}},
			saved:   20,
			cadence: models.CadenceWeekly,
		},
		{
			name:     "monthly in cooldown",
			history:  &fakeHistory{latest: map[models.Cadence]time.Time{models.CadenceMonthly: today.AddDate(0, 0, -29)}},
			saved:    20,
			cadence:  models.CadenceMonthly,
			wantCode: apperr.CodePolicyDenied,
		},
		{
			name:     "history failure",
			history:  &fakeHistory{err: errors.New("db down")},
			saved:    20,
			cadence:  models.CadenceMonthly,
			wantCode: apperr.CodeInternal,
		},
		{
			name:     "unknown cadence",
			history:  &fakeHistory{},
			saved:    20,
			cadence:  models.Cadence("hourly"),
			wantCode: apperr.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.history, fakeCounter(tt.saved))
			rule, err := gate.Authorize(ctx, user, tt.cadence, today)

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Authorize() error = %v, want nil", err)
				}
				want, _ := RuleFor(tt.cadence)
				if rule != want {
					t.Errorf("Authorize() rule = %+v, want %+v", rule, want)
				}
				return
			}
			if got := apperr.CodeOf(err); got != tt.wantCode {
				t.Errorf("Authorize() code = %s, want %s (err %v)", got, tt.wantCode, err)
			}
		})
	}
}
