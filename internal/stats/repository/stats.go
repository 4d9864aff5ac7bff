package repository

import (
	"context"
	"errors"
	"time"

	"algohub/internal/common/db"
	"algohub/internal/stats/model"
)

var ErrStatsNotFound = errors.New("user stats not found")

// StatsRepository persists per-user aggregates and the solved-problem set.
// Mutations are expected to run inside one transaction so the counters and
// the solved set cannot drift apart.
type StatsRepository interface {
	EnsureRow(ctx context.Context, tx db.Transaction, userID int64) error
	GetForUpdate(ctx context.Context, tx db.Transaction, userID int64) (*model.UserStats, error)
	Get(ctx context.Context, userID int64) (*model.UserStats, error)
	Save(ctx context.Context, tx db.Transaction, stats *model.UserStats) error
	AddSolvedProblem(ctx context.Context, tx db.Transaction, userID, problemID int64) (bool, error)
	IsSolved(ctx context.Context, tx db.Transaction, userID, problemID int64) (bool, error)
	Leaderboard(ctx context.Context, page, limit int) ([]model.LeaderboardEntry, int64, error)
}

type MySQLStatsRepository struct {
	db db.Database
}

func NewStatsRepository(database db.Database) StatsRepository {
	return &MySQLStatsRepository{db: database}
}

const statsColumns = "user_id, total_solved, total_submissions, accepted_submissions, easy_solved, medium_solved, hard_solved, solved_array, solved_linked_list, solved_graph, solved_dp, current_streak, max_streak, last_solved_date, acceptance_rate"

func (r *MySQLStatsRepository) EnsureRow(ctx context.Context, tx db.Transaction, userID int64) error {
	query := "INSERT IGNORE INTO user_stats (user_id) VALUES (?)"
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query, userID)
	return err
}

func (r *MySQLStatsRepository) GetForUpdate(ctx context.Context, tx db.Transaction, userID int64) (*model.UserStats, error) {
	query := "SELECT " + statsColumns + " FROM user_stats WHERE user_id = ? FOR UPDATE"
	return r.scanOne(db.GetQuerier(r.db, tx).QueryRow(ctx, query, userID))
}

func (r *MySQLStatsRepository) Get(ctx context.Context, userID int64) (*model.UserStats, error) {
	query := "SELECT " + statsColumns + " FROM user_stats WHERE user_id = ?"
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

func (r *MySQLStatsRepository) Save(ctx context.Context, tx db.Transaction, stats *model.UserStats) error {
	if stats == nil || stats.UserID <= 0 {
		return errors.New("stats user id is required")
	}
	query := `
		UPDATE user_stats
		SET total_solved = ?, total_submissions = ?, accepted_submissions = ?,
		    easy_solved = ?, medium_solved = ?, hard_solved = ?,
		    solved_array = ?, solved_linked_list = ?, solved_graph = ?, solved_dp = ?,
		    current_streak = ?, max_streak = ?, last_solved_date = ?, acceptance_rate = ?
		WHERE user_id = ?`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		stats.TotalSolved,
		stats.TotalSubmissions,
		stats.AcceptedSubmissions,
		stats.EasySolved,
		stats.MediumSolved,
		stats.HardSolved,
		stats.SolvedByTopic[model.TopicArray],
		stats.SolvedByTopic[model.TopicLinkedList],
		stats.SolvedByTopic[model.TopicGraph],
		stats.SolvedByTopic[model.TopicDP],
		stats.CurrentStreak,
		stats.MaxStreak,
		stats.LastSolvedDate,
		stats.AcceptanceRate,
		stats.UserID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// MySQL reports zero affected rows for a no-op update too, so
		// distinguish a missing row explicitly.
		var exists int
		row := db.GetQuerier(r.db, tx).QueryRow(ctx, "SELECT 1 FROM user_stats WHERE user_id = ?", stats.UserID)
		if scanErr := row.Scan(&exists); scanErr != nil {
			if db.IsNoRows(scanErr) {
				return ErrStatsNotFound
			}
			return scanErr
		}
	}
	return nil
}

// AddSolvedProblem inserts into the solved set and reports whether the
// pair was new. The primary key makes concurrent double-inserts collapse
// into one winner, which is what keeps acceptance recording idempotent.
func (r *MySQLStatsRepository) AddSolvedProblem(ctx context.Context, tx db.Transaction, userID, problemID int64) (bool, error) {
	query := "INSERT IGNORE INTO user_solved_problem (user_id, problem_id) VALUES (?, ?)"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query, userID, problemID)
	if err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return false, nil
		}
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *MySQLStatsRepository) IsSolved(ctx context.Context, tx db.Transaction, userID, problemID int64) (bool, error) {
	var exists int
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, "SELECT 1 FROM user_solved_problem WHERE user_id = ? AND problem_id = ?", userID, problemID)
	if err := row.Scan(&exists); err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MySQLStatsRepository) Leaderboard(ctx context.Context, page, limit int) ([]model.LeaderboardEntry, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var total int64
	countRow := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM user_stats WHERE total_solved > 0")
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT user_id, total_solved, acceptance_rate, current_streak
		FROM user_stats
		WHERE total_solved > 0
		ORDER BY total_solved DESC, acceptance_rate DESC, user_id ASC
		LIMIT ? OFFSET ?`
	offset := (page - 1) * limit
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LeaderboardEntry
	rank := offset
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.TotalSolved, &e.AcceptanceRate, &e.CurrentStreak); err != nil {
			return nil, 0, err
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *MySQLStatsRepository) scanOne(row db.Row) (*model.UserStats, error) {
	var (
		stats                                            model.UserStats
		topicArray, topicLinkedList, topicGraph, topicDP int
		lastSolved                                       *time.Time
	)
	err := row.Scan(
		&stats.UserID,
		&stats.TotalSolved,
		&stats.TotalSubmissions,
		&stats.AcceptedSubmissions,
		&stats.EasySolved,
		&stats.MediumSolved,
		&stats.HardSolved,
		&topicArray,
		&topicLinkedList,
		&topicGraph,
		&topicDP,
		&stats.CurrentStreak,
		&stats.MaxStreak,
		&lastSolved,
		&stats.AcceptanceRate,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrStatsNotFound
		}
		return nil, err
	}
	stats.SolvedByTopic = map[string]int{
		model.TopicArray:      topicArray,
		model.TopicLinkedList: topicLinkedList,
		model.TopicGraph:      topicGraph,
		model.TopicDP:         topicDP,
	}
	stats.LastSolvedDate = lastSolved
	return &stats, nil
}
