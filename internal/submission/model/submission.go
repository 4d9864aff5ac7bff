package model

import "time"

// Lifecycle statuses of a submission. A submission is created pending and
// moves exactly once to accepted, wrong_answer or failed; terminal states
// are immutable. "failed" means the pipeline could not grade the code,
// which is a different claim than "wrong_answer".
const (
	StatusPending     = "pending"
	StatusAccepted    = "accepted"
	StatusWrongAnswer = "wrong_answer"
	StatusFailed      = "failed"
)

// Submission records one evaluation attempt.
type Submission struct {
	ID              string    `json:"id"`
	UserID          int64     `json:"user_id"`
	ProblemID       int64     `json:"problem_id"`
	SourceCode      string    `json:"source_code"`
	SourceKey       string    `json:"source_key"`
	SourceHash      string    `json:"source_hash"`
	Language        string    `json:"language"`
	Status          string    `json:"status"`
	TestCasesPassed int       `json:"test_cases_passed"`
	TestCasesTotal  int       `json:"test_cases_total"`
	RuntimeSec      float64   `json:"runtime_sec"`
	MemoryKB        int       `json:"memory_kb"`
	CreatedAt       time.Time `json:"created_at"`
}

// Terminal reports whether the submission has left the pending state.
func (s *Submission) Terminal() bool {
	return s.Status != "" && s.Status != StatusPending
}

// SubmitResult is the submit-path response payload.
type SubmitResult struct {
	SubmissionID    string  `json:"submission_id"`
	Accepted        bool    `json:"accepted"`
	TestCasesPassed int     `json:"test_cases_passed"`
	TestCasesTotal  int     `json:"test_cases_total"`
	RuntimeSec      float64 `json:"runtime_sec"`
	MemoryKB        int     `json:"memory_kb"`
}

// RunCaseResult is one test case outcome on the practice run path.
type RunCaseResult struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	ActualOutput   string  `json:"actual_output"`
	Passed         bool    `json:"passed"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
	TimeSec        float64 `json:"time_sec"`
	MemoryKB       int     `json:"memory_kb"`
}

// Summary statuses of a practice run. Unlike submission statuses these
// are display labels, not lifecycle states.
const (
	RunStatusAccepted = "Accepted"
	RunStatusFailed   = "Failed"
)

// RunSummary aggregates a run's outcome without persisting anything.
// Runtime and memory are the maximum across all cases, timed-out ones
// included, since the run path reports what happened rather than a
// verdict figure.
type RunSummary struct {
	Total      int     `json:"total"`
	Passed     int     `json:"passed"`
	RuntimeSec float64 `json:"runtime_sec"`
	MemoryKB   int     `json:"memory_kb"`
	Status     string  `json:"status"`
}

// RunResult is the run-path response payload.
type RunResult struct {
	Success bool            `json:"success"`
	Results []RunCaseResult `json:"results"`
	Summary RunSummary      `json:"summary"`
}

// FinishedEvent is published after a submission reaches a terminal state.
type FinishedEvent struct {
	SubmissionID    string    `json:"submission_id"`
	UserID          int64     `json:"user_id"`
	ProblemID       int64     `json:"problem_id"`
	Status          string    `json:"status"`
	TestCasesPassed int       `json:"test_cases_passed"`
	TestCasesTotal  int       `json:"test_cases_total"`
	FinishedAt      time.Time `json:"finished_at"`
}
