package model

import "time"

// Topic keys tracked in the per-topic solved counters.
const (
	TopicArray      = "array"
	TopicLinkedList = "linkedList"
	TopicGraph      = "graph"
	TopicDP         = "dp"
)

// UserStats holds denormalized per-user aggregates. The row is owned by
// the stats service; nothing else writes to it.
type UserStats struct {
	UserID              int64          `json:"user_id"`
	TotalSolved         int            `json:"total_solved"`
	TotalSubmissions    int            `json:"total_submissions"`
	AcceptedSubmissions int            `json:"accepted_submissions"`
	EasySolved          int            `json:"easy_solved"`
	MediumSolved        int            `json:"medium_solved"`
	HardSolved          int            `json:"hard_solved"`
	SolvedByTopic       map[string]int `json:"solved_by_topic"`
	CurrentStreak       int            `json:"current_streak"`
	MaxStreak           int            `json:"max_streak"`
	LastSolvedDate      *time.Time     `json:"last_solved_date,omitempty"`
	AcceptanceRate      float64        `json:"acceptance_rate"`
}

// LeaderboardEntry is one row of the solved-count ranking.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	UserID         int64   `json:"user_id"`
	TotalSolved    int     `json:"total_solved"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	CurrentStreak  int     `json:"current_streak"`
}
