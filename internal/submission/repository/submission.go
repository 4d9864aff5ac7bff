package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"algohub/internal/common/cache"
	"algohub/internal/common/db"
	"algohub/internal/submission/model"
)

const (
	defaultSubmissionTTL      = 30 * time.Minute
	defaultSubmissionEmptyTTL = 5 * time.Minute
	submissionKeyPrefix       = "submission:"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyTerminal    = errors.New("submission already terminal")
)

// SubmissionRepository persists evaluation attempts. A record is created
// pending and finalized at most once; Finalize on a terminal record fails.
type SubmissionRepository interface {
	Create(ctx context.Context, tx db.Transaction, submission *model.Submission) error
	Finalize(ctx context.Context, tx db.Transaction, submission *model.Submission) error
	GetByID(ctx context.Context, tx db.Transaction, submissionID string) (*model.Submission, error)
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]model.Submission, int64, error)
}

type MySQLSubmissionRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewSubmissionRepository(database db.Database, cacheClient cache.Cache) SubmissionRepository {
	return &MySQLSubmissionRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      defaultSubmissionTTL,
		emptyTTL: defaultSubmissionEmptyTTL,
	}
}

const submissionColumns = "submission_id, user_id, problem_id, source_code, source_key, source_hash, language, status, test_cases_passed, test_cases_total, runtime_sec, memory_kb, created_at"

func (r *MySQLSubmissionRepository) Create(ctx context.Context, tx db.Transaction, submission *model.Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.ID == "" {
		return errors.New("submission id is required")
	}
	if submission.Status == "" {
		submission.Status = model.StatusPending
	}

	query := `
		INSERT INTO submission
		(submission_id, user_id, problem_id, source_code, source_key, source_hash, language, status, test_cases_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		submission.ID,
		submission.UserID,
		submission.ProblemID,
		submission.SourceCode,
		submission.SourceKey,
		submission.SourceHash,
		submission.Language,
		submission.Status,
		submission.TestCasesTotal,
	)
	return err
}

// Finalize writes the terminal status and figures. The pending guard in
// the WHERE clause enforces the write-once invariant at the store level,
// so a double finalize cannot overwrite a verdict.
func (r *MySQLSubmissionRepository) Finalize(ctx context.Context, tx db.Transaction, submission *model.Submission) error {
	if submission == nil || submission.ID == "" {
		return errors.New("submission id is required")
	}
	if !submission.Terminal() {
		return errors.New("finalize requires a terminal status")
	}

	query := `
		UPDATE submission
		SET status = ?, test_cases_passed = ?, runtime_sec = ?, memory_kb = ?
		WHERE submission_id = ? AND status = ?`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		submission.Status,
		submission.TestCasesPassed,
		submission.RuntimeSec,
		submission.MemoryKB,
		submission.ID,
		model.StatusPending,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, getErr := r.getFromDB(ctx, tx, submission.ID)
		if getErr != nil {
			return getErr
		}
		if existing.Terminal() {
			return ErrAlreadyTerminal
		}
		return ErrSubmissionNotFound
	}
	if r.cache != nil && tx == nil {
		_ = r.cache.Del(ctx, submissionKeyPrefix+submission.ID)
	}
	return nil
}

func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, tx db.Transaction, submissionID string) (*model.Submission, error) {
	if submissionID == "" {
		return nil, ErrSubmissionNotFound
	}
	if r.cache != nil && tx == nil {
		submission, err := cache.GetWithCached[model.Submission](
			ctx,
			r.cache,
			submissionKeyPrefix+submissionID,
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(s model.Submission) bool { return s.ID == "" },
			marshalSubmission,
			unmarshalSubmission,
			func(ctx context.Context) (model.Submission, error) {
				s, err := r.getFromDB(ctx, nil, submissionID)
				if err != nil {
					if errors.Is(err, ErrSubmissionNotFound) {
						return model.Submission{}, nil
					}
					return model.Submission{}, err
				}
				return *s, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if submission.ID == "" {
			return nil, ErrSubmissionNotFound
		}
		return &submission, nil
	}
	return r.getFromDB(ctx, tx, submissionID)
}

func (r *MySQLSubmissionRepository) ListByUser(ctx context.Context, userID int64, page, limit int) ([]model.Submission, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var total int64
	countRow := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM submission WHERE user_id = ?", userID)
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM submission
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := r.db.Query(ctx, query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var submissions []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (r *MySQLSubmissionRepository) getFromDB(ctx context.Context, tx db.Transaction, submissionID string) (*model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submission
		WHERE submission_id = ?`
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, submissionID)
	var s model.Submission
	if err := scanSubmission(row, &s); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &s, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner, s *model.Submission) error {
	return row.Scan(
		&s.ID,
		&s.UserID,
		&s.ProblemID,
		&s.SourceCode,
		&s.SourceKey,
		&s.SourceHash,
		&s.Language,
		&s.Status,
		&s.TestCasesPassed,
		&s.TestCasesTotal,
		&s.RuntimeSec,
		&s.MemoryKB,
		&s.CreatedAt,
	)
}

func marshalSubmission(s model.Submission) string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalSubmission(data string) (model.Submission, error) {
	var s model.Submission
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return model.Submission{}, err
	}
	return s, nil
}
