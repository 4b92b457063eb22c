package models

import "github.com/google/uuid"

type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Name     string    `json:"name" db:"name"`
	MaxScore int       `json:"max_score" db:"max_score"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type CadenceStats struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

type WordStats struct {
	Total int            `json:"total"`
	ByBox map[string]int `json:"by_box"`
}

type QuizStats struct {
	Daily   CadenceStats  `json:"daily"`
	Weekly  CadenceStats  `json:"weekly"`
	Monthly CadenceStats  `json:"monthly"`
	Recent  []QuizSession `json:"recent"`
}

type GameStats struct {
	Count    int           `json:"count"`
	AvgScore float64       `json:"avg_score"`
	Recent   []GameSession `json:"recent"`
}

type DashboardStats struct {
	Words   WordStats `json:"words"`
	Quizzes QuizStats `json:"quizzes"`
	Games   GameStats `json:"games"`
}
