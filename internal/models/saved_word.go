package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/leitner"
)

// SavedWord is a learner's personal vocabulary item.
type SavedWord struct {
	ID             int64       `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	WordID         int64       `json:"word_id"`
	Description    string      `json:"description"`
	Box            leitner.Box `json:"box"`
	LastReviewedOn *time.Time  `json:"last_reviewed_on"`
	IsDue          bool        `json:"is_due"`
	CreatedAt      time.Time   `json:"created_at"`
	Word           *Word       `json:"word,omitempty"`
}

type SavedWordFilter struct {
	Search string
	Box    *leitner.Box
}

type AddSavedWordRequest struct {
	WordID      int64  `json:"word_id" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=2000"`
}

type EditSavedWordRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

type ReviewRequest struct {
	Outcome     leitner.Outcome `json:"outcome" validate:"required,oneof=advance reset"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type ExampleResponse struct {
	WordID      int64  `json:"word_id"`
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
}
