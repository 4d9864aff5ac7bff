package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"algohub/internal/common/cache"
	"algohub/internal/common/db"
	"algohub/internal/problem/model"
)

const (
	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
	problemKeyPrefix       = "problem:meta:"
	testCaseKeyPrefix      = "problem:cases:"
)

var ErrProblemNotFound = errors.New("problem not found")

// ProblemRepository is the pipeline's read-only problem access. Writes
// belong to the authoring service and never happen here.
type ProblemRepository interface {
	GetByID(ctx context.Context, problemID int64) (model.Problem, error)
	HiddenTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error)
	VisibleTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error)
}

type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewProblemRepository(database db.Database, cacheClient cache.Cache) ProblemRepository {
	return &MySQLProblemRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      defaultProblemTTL,
		emptyTTL: defaultProblemEmptyTTL,
	}
}

func (r *MySQLProblemRepository) GetByID(ctx context.Context, problemID int64) (model.Problem, error) {
	if r.cache != nil {
		problem, err := cache.GetWithCached[model.Problem](
			ctx,
			r.cache,
			fmt.Sprintf("%s%d", problemKeyPrefix, problemID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(p model.Problem) bool { return p.ID == 0 },
			marshalProblem,
			unmarshalProblem,
			func(ctx context.Context) (model.Problem, error) {
				p, err := r.getFromDB(ctx, problemID)
				if err != nil {
					if errors.Is(err, ErrProblemNotFound) {
						return model.Problem{}, nil
					}
					return model.Problem{}, err
				}
				return p, nil
			},
		)
		if err != nil {
			return model.Problem{}, err
		}
		if problem.ID == 0 {
			return model.Problem{}, ErrProblemNotFound
		}
		return problem, nil
	}
	return r.getFromDB(ctx, problemID)
}

func (r *MySQLProblemRepository) HiddenTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error) {
	return r.testCases(ctx, problemID, true)
}

func (r *MySQLProblemRepository) VisibleTestCases(ctx context.Context, problemID int64) ([]model.TestCase, error) {
	return r.testCases(ctx, problemID, false)
}

func (r *MySQLProblemRepository) testCases(ctx context.Context, problemID int64, hidden bool) ([]model.TestCase, error) {
	if r.cache != nil {
		key := fmt.Sprintf("%s%d:%t", testCaseKeyPrefix, problemID, hidden)
		cases, err := cache.GetWithCached[[]model.TestCase](
			ctx,
			r.cache,
			key,
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(cases []model.TestCase) bool { return len(cases) == 0 },
			marshalTestCases,
			unmarshalTestCases,
			func(ctx context.Context) ([]model.TestCase, error) {
				return r.testCasesFromDB(ctx, problemID, hidden)
			},
		)
		if err != nil {
			return nil, err
		}
		return cases, nil
	}
	return r.testCasesFromDB(ctx, problemID, hidden)
}

func (r *MySQLProblemRepository) getFromDB(ctx context.Context, problemID int64) (model.Problem, error) {
	query := `
		SELECT id, title, difficulty, tag, created_at
		FROM problem
		WHERE id = ?`

	row := r.db.QueryRow(ctx, query, problemID)
	var p model.Problem
	if err := row.Scan(&p.ID, &p.Title, &p.Difficulty, &p.Tag, &p.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return model.Problem{}, ErrProblemNotFound
		}
		return model.Problem{}, err
	}
	return p, nil
}

func (r *MySQLProblemRepository) testCasesFromDB(ctx context.Context, problemID int64, hidden bool) ([]model.TestCase, error) {
	query := `
		SELECT id, problem_id, input, output, hidden
		FROM test_case
		WHERE problem_id = ? AND hidden = ?
		ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, problemID, hidden)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.Output, &tc.Hidden); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func marshalProblem(p model.Problem) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalProblem(data string) (model.Problem, error) {
	var p model.Problem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return model.Problem{}, err
	}
	return p, nil
}

func marshalTestCases(cases []model.TestCase) string {
	data, err := json.Marshal(cases)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalTestCases(data string) ([]model.TestCase, error) {
	var cases []model.TestCase
	if err := json.Unmarshal([]byte(data), &cases); err != nil {
		return nil, err
	}
	return cases, nil
}
