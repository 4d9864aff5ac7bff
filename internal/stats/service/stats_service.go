package service

import (
	"context"
	"errors"
	"time"

	"algohub/internal/common/db"
	problemModel "algohub/internal/problem/model"
	problemRepo "algohub/internal/problem/repository"
	"algohub/internal/stats/model"
	"algohub/internal/stats/repository"
	appErr "algohub/pkg/errors"
)

// StatsService owns every mutation of per-user aggregates.
type StatsService struct {
	db          db.Database
	statsRepo   repository.StatsRepository
	problemRepo problemRepo.ProblemRepository
	now         func() time.Time
}

func NewStatsService(database db.Database, statsRepository repository.StatsRepository, problems problemRepo.ProblemRepository) *StatsService {
	return &StatsService{
		db:          database,
		statsRepo:   statsRepository,
		problemRepo: problems,
		now:         time.Now,
	}
}

// RecordSubmission bumps the submission counters after one graded
// evaluation and recomputes the acceptance rate.
func (s *StatsService) RecordSubmission(ctx context.Context, userID int64, accepted bool) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	err := s.db.Transaction(ctx, func(tx db.Transaction) error {
		if err := s.statsRepo.EnsureRow(ctx, tx, userID); err != nil {
			return err
		}
		stats, err := s.statsRepo.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		stats.TotalSubmissions++
		if accepted {
			stats.AcceptedSubmissions++
		}
		stats.AcceptanceRate = acceptanceRate(stats.AcceptedSubmissions, stats.TotalSubmissions)
		return s.statsRepo.Save(ctx, tx, stats)
	})
	if err != nil {
		return appErr.Wrap(err, appErr.StatsUpdateFailed)
	}
	return nil
}

// RecordAcceptance applies the first-solve side effects for one
// (user, problem) pair: solved counters, difficulty and topic breakdowns,
// and the daily streak. It is idempotent: the solved-set insert decides
// whether this acceptance is new, so a double invocation (or a concurrent
// duplicate) mutates the counters exactly once.
func (s *StatsService) RecordAcceptance(ctx context.Context, userID, problemID int64) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	if problemID <= 0 {
		return appErr.ValidationError("problem_id", "required")
	}

	problem, err := s.problemRepo.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, problemRepo.ErrProblemNotFound) {
			return appErr.New(appErr.ProblemNotFound)
		}
		return appErr.Wrap(err, appErr.StatsUpdateFailed)
	}

	// Re-solves are the common case; check the solved set before opening
	// a transaction. The insert inside the transaction still decides the
	// winner when two first solves race.
	solved, err := s.statsRepo.IsSolved(ctx, nil, userID, problemID)
	if err != nil {
		return appErr.Wrap(err, appErr.StatsUpdateFailed)
	}
	if solved {
		return nil
	}

	err = s.db.Transaction(ctx, func(tx db.Transaction) error {
		if err := s.statsRepo.EnsureRow(ctx, tx, userID); err != nil {
			return err
		}
		firstSolve, err := s.statsRepo.AddSolvedProblem(ctx, tx, userID, problemID)
		if err != nil {
			return err
		}
		if !firstSolve {
			return nil
		}

		stats, err := s.statsRepo.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		stats.TotalSolved++
		switch problem.Difficulty {
		case problemModel.DifficultyEasy:
			stats.EasySolved++
		case problemModel.DifficultyMedium:
			stats.MediumSolved++
		case problemModel.DifficultyHard:
			stats.HardSolved++
		}
		if stats.SolvedByTopic == nil {
			stats.SolvedByTopic = make(map[string]int)
		}
		if _, tracked := stats.SolvedByTopic[problem.Tag]; tracked || knownTopic(problem.Tag) {
			stats.SolvedByTopic[problem.Tag]++
		}

		s.advanceStreak(stats)
		return s.statsRepo.Save(ctx, tx, stats)
	})
	if err != nil {
		return appErr.Wrap(err, appErr.StatsUpdateFailed)
	}
	return nil
}

// GetUserStats returns the aggregates for one user. A user with no
// activity yet gets a zero-valued row rather than an error.
func (s *StatsService) GetUserStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	if userID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	stats, err := s.statsRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrStatsNotFound) {
			return &model.UserStats{
				UserID: userID,
				SolvedByTopic: map[string]int{
					model.TopicArray:      0,
					model.TopicLinkedList: 0,
					model.TopicGraph:      0,
					model.TopicDP:         0,
				},
			}, nil
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return stats, nil
}

// Leaderboard ranks users by solved count, acceptance rate breaking ties.
func (s *StatsService) Leaderboard(ctx context.Context, page, limit int) ([]model.LeaderboardEntry, int64, error) {
	entries, total, err := s.statsRepo.Leaderboard(ctx, page, limit)
	if err != nil {
		return nil, 0, appErr.Wrap(err, appErr.DatabaseError)
	}
	return entries, total, nil
}

// advanceStreak updates the daily solve streak from the gap between the
// last solved date and today. A same-day re-solve leaves the streak
// untouched; a one-day gap extends it; anything longer restarts at 1.
func (s *StatsService) advanceStreak(stats *model.UserStats) {
	today := dateOnly(s.now())

	switch {
	case stats.LastSolvedDate == nil:
		stats.CurrentStreak = 1
	default:
		switch daysBetween(dateOnly(*stats.LastSolvedDate), today) {
		case 0:
			// Same-day re-solve: streak and last-solved date stand.
			return
		case 1:
			stats.CurrentStreak++
		default:
			stats.CurrentStreak = 1
		}
	}

	if stats.CurrentStreak > stats.MaxStreak {
		stats.MaxStreak = stats.CurrentStreak
	}
	stats.LastSolvedDate = &today
}

func acceptanceRate(accepted, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(accepted) / float64(total) * 100
}

func knownTopic(tag string) bool {
	switch tag {
	case model.TopicArray, model.TopicLinkedList, model.TopicGraph, model.TopicDP:
		return true
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
