package model

import "time"

// Difficulty labels stored on a problem.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Problem is the evaluation pipeline's read-only view of a problem.
type Problem struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Difficulty string    `json:"difficulty"`
	Tag        string    `json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
}

// TestCase is one input/expected-output pair. Hidden cases grade full
// submissions; visible cases back the practice run path and are shown
// to the user.
type TestCase struct {
	ID        int64  `json:"id"`
	ProblemID int64  `json:"problem_id"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Hidden    bool   `json:"hidden"`
}
