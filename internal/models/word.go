package models

import "time"

type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Word is a source/target translation pair from the shared vocabulary.
type Word struct {
	ID         int64     `json:"id" db:"id"`
	Source     string    `json:"source_text" db:"source_text"`
	Target     string    `json:"target_text" db:"target_text"`
	CategoryID *int64    `json:"category_id,omitempty" db:"category_id"`
	Category   *Category `json:"category,omitempty" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type WordFilter struct {
	Search string
	Exact  bool
	Limit  int
	Offset int
}

type WordListResponse struct {
	Words  []Word `json:"words"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
