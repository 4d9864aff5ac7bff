package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"algohub/internal/common/cache"
	"algohub/internal/common/mq"
	"algohub/internal/common/storage"
	"algohub/internal/judge"
	problemModel "algohub/internal/problem/model"
	problemRepo "algohub/internal/problem/repository"
	"algohub/internal/submission/model"
	"algohub/internal/submission/repository"
	appErr "algohub/pkg/errors"
	"algohub/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	inFlightKeyPrefix   = "submission:inflight:"
	rateUserKeyPrefix   = "submission:rate:user:"
	rateIPKeyPrefix     = "submission:rate:ip:"
	defaultSourcePrefix = "submissions"
	defaultInFlightTTL  = 2 * time.Minute
	customInputExpected = "none (custom input)"
)

// StatsRecorder is the stats side-channel invoked after grading. Failures
// here are logged and dropped; a verdict never rolls back because
// bookkeeping misbehaved.
type StatsRecorder interface {
	RecordSubmission(ctx context.Context, userID int64, accepted bool) error
	RecordAcceptance(ctx context.Context, userID, problemID int64) error
}

// RateLimitConfig throttles submissions per user and per client IP
// within a rolling window. A zero max disables that dimension.
type RateLimitConfig struct {
	UserMax int           `yaml:"userMax"`
	IPMax   int           `yaml:"ipMax"`
	Window  time.Duration `yaml:"window"`
}

// TimeoutConfig bounds calls to each external collaborator.
type TimeoutConfig struct {
	DB      time.Duration `yaml:"db"`
	Cache   time.Duration `yaml:"cache"`
	Storage time.Duration `yaml:"storage"`
	MQ      time.Duration `yaml:"mq"`
}

// Config holds the orchestrator's dependencies and settings.
type Config struct {
	SubmissionRepo repository.SubmissionRepository
	ProblemRepo    problemRepo.ProblemRepository
	Judge          judge.Client
	Stats          StatsRecorder
	Storage        storage.ObjectStorage
	Publisher      mq.Publisher
	Cache          cache.Cache

	SourceBucket    string
	SourceKeyPrefix string
	FinishedTopic   string
	MaxCodeBytes    int
	InFlightTTL     time.Duration
	RateLimit       RateLimitConfig
	Timeouts        TimeoutConfig
}

// SubmissionService runs the evaluation pipeline: validate, record,
// dispatch to the remote judge, collect, aggregate, persist, then the
// stats side effect. Each request is an independent task; the only shared
// state is the store, the cache and the judge.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    problemRepo.ProblemRepository
	judge          judge.Client
	stats          StatsRecorder
	storage        storage.ObjectStorage
	publisher      mq.Publisher
	cache          cache.Cache

	sourceBucket    string
	sourceKeyPrefix string
	finishedTopic   string
	maxCodeBytes    int
	inFlightTTL     time.Duration
	rateLimit       RateLimitConfig
	timeouts        TimeoutConfig
}

// SubmitInput describes a full grading request.
type SubmitInput struct {
	UserID     int64
	ProblemID  int64
	SourceCode string
	Language   string
	ClientIP   string
}

// RunInput describes a practice run against visible cases or one custom input.
type RunInput struct {
	UserID      int64
	ProblemID   int64
	SourceCode  string
	Language    string
	CustomInput *string
}

func NewSubmissionService(cfg Config) (*SubmissionService, error) {
	if cfg.SubmissionRepo == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.ProblemRepo == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge client is required")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats recorder is required")
	}
	if cfg.SourceKeyPrefix == "" {
		cfg.SourceKeyPrefix = defaultSourcePrefix
	}
	if cfg.InFlightTTL <= 0 {
		cfg.InFlightTTL = defaultInFlightTTL
	}
	return &SubmissionService{
		submissionRepo:  cfg.SubmissionRepo,
		problemRepo:     cfg.ProblemRepo,
		judge:           cfg.Judge,
		stats:           cfg.Stats,
		storage:         cfg.Storage,
		publisher:       cfg.Publisher,
		cache:           cfg.Cache,
		sourceBucket:    cfg.SourceBucket,
		sourceKeyPrefix: cfg.SourceKeyPrefix,
		finishedTopic:   cfg.FinishedTopic,
		maxCodeBytes:    cfg.MaxCodeBytes,
		inFlightTTL:     cfg.InFlightTTL,
		rateLimit:       cfg.RateLimit,
		timeouts:        cfg.Timeouts,
	}, nil
}

// Submit grades the source against the problem's hidden test cases and
// persists the outcome.
func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (*model.SubmitResult, error) {
	if err := s.validate(input.UserID, input.ProblemID, input.SourceCode, input.Language); err != nil {
		return nil, err
	}
	languageID, err := judge.Resolve(input.Language)
	if err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, input.UserID, input.ClientIP); err != nil {
		return nil, err
	}

	release, err := s.acquireInFlight(ctx, input.UserID, input.ProblemID)
	if err != nil {
		return nil, err
	}
	defer release()

	problem, hidden, err := s.loadProblem(ctx, input.ProblemID, true)
	if err != nil {
		return nil, err
	}

	submission := &model.Submission{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		ProblemID:      input.ProblemID,
		SourceCode:     input.SourceCode,
		SourceHash:     hashSource(input.SourceCode),
		Language:       input.Language,
		Status:         model.StatusPending,
		TestCasesTotal: len(hidden),
	}
	submission.SourceKey = s.buildSourceKey(submission.ID)

	if err := s.archiveSource(ctx, submission.SourceKey, input.SourceCode); err != nil {
		return nil, err
	}
	if err := s.createSubmission(ctx, submission); err != nil {
		return nil, err
	}

	results, err := s.dispatch(ctx, input.SourceCode, languageID, hidden)
	if err != nil {
		s.markFailed(ctx, submission)
		return nil, err
	}

	verdict, err := judge.Aggregate(results, submission.TestCasesTotal)
	if err != nil {
		s.markFailed(ctx, submission)
		return nil, err
	}

	submission.Status = model.StatusWrongAnswer
	if verdict.Accepted {
		submission.Status = model.StatusAccepted
	}
	submission.TestCasesPassed = verdict.PassedCount
	submission.RuntimeSec = verdict.RuntimeSec
	submission.MemoryKB = verdict.MemoryKB

	if err := s.finalize(ctx, submission); err != nil {
		return nil, err
	}

	s.recordStats(ctx, submission, verdict.Accepted)
	s.publishFinished(ctx, submission)

	logger.Info(ctx, "submission graded",
		zap.String("submission_id", submission.ID),
		zap.String("status", submission.Status),
		zap.Int("passed", submission.TestCasesPassed),
		zap.Int("total", submission.TestCasesTotal),
		zap.String("difficulty", problem.Difficulty))

	return &model.SubmitResult{
		SubmissionID:    submission.ID,
		Accepted:        verdict.Accepted,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		RuntimeSec:      submission.RuntimeSec,
		MemoryKB:        submission.MemoryKB,
	}, nil
}

// Run executes the source against the problem's visible cases, or one
// custom input, and reports per-case outcomes. Nothing is persisted and
// stats are untouched.
func (s *SubmissionService) Run(ctx context.Context, input RunInput) (*model.RunResult, error) {
	if err := s.validate(input.UserID, input.ProblemID, input.SourceCode, input.Language); err != nil {
		return nil, err
	}
	languageID, err := judge.Resolve(input.Language)
	if err != nil {
		return nil, err
	}

	var cases []problemModel.TestCase
	if input.CustomInput != nil {
		cases = []problemModel.TestCase{{Input: *input.CustomInput}}
	} else {
		_, cases, err = s.loadProblem(ctx, input.ProblemID, false)
		if err != nil {
			return nil, err
		}
	}

	results, err := s.dispatch(ctx, input.SourceCode, languageID, cases)
	if err != nil {
		return nil, err
	}
	if len(results) != len(cases) {
		return nil, appErr.New(appErr.JudgeUnavailable).
			WithDetail("expected", len(cases)).
			WithDetail("received", len(results))
	}

	run := &model.RunResult{Success: true, Summary: model.RunSummary{Total: len(cases)}}
	for i, r := range results {
		caseResult := model.RunCaseResult{
			Input:          cases[i].Input,
			ExpectedOutput: cases[i].Output,
			ActualOutput:   r.Stdout,
			Passed:         r.Passed(),
			Status:         r.Status.Description,
			TimeSec:        r.Time,
			MemoryKB:       r.Memory,
		}
		if input.CustomInput != nil {
			// No expected output to compare against: passed means the
			// program ran to completion.
			caseResult.ExpectedOutput = customInputExpected
		}
		if r.CompileOutput != "" {
			caseResult.Error = r.CompileOutput
		} else if r.Stderr != "" {
			caseResult.Error = r.Stderr
		}
		if caseResult.Passed {
			run.Summary.Passed++
		} else {
			run.Success = false
		}
		if r.Time > run.Summary.RuntimeSec {
			run.Summary.RuntimeSec = r.Time
		}
		if r.Memory > run.Summary.MemoryKB {
			run.Summary.MemoryKB = r.Memory
		}
		run.Results = append(run.Results, caseResult)
	}
	run.Summary.Status = model.RunStatusFailed
	if run.Summary.Passed == run.Summary.Total {
		run.Summary.Status = model.RunStatusAccepted
	}
	return run, nil
}

// GetSubmission returns one submission owned by the user.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID int64, submissionID string) (*model.Submission, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submission, err := s.submissionRepo.GetByID(ctxDB.ctx, nil, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	if submission.UserID != userID {
		return nil, appErr.New(appErr.SubmissionNotFound)
	}
	return submission, nil
}

// ListSubmissions returns the user's submission history, newest first.
func (s *SubmissionService) ListSubmissions(ctx context.Context, userID int64, page, limit int) ([]model.Submission, int64, error) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submissions, total, err := s.submissionRepo.ListByUser(ctxDB.ctx, userID, page, limit)
	if err != nil {
		return nil, 0, appErr.Wrap(err, appErr.DatabaseError)
	}
	return submissions, total, nil
}

func (s *SubmissionService) validate(userID, problemID int64, sourceCode, language string) error {
	if userID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	if problemID <= 0 {
		return appErr.ValidationError("problem_id", "required")
	}
	if strings.TrimSpace(sourceCode) == "" {
		return appErr.ValidationError("source_code", "required")
	}
	if strings.TrimSpace(language) == "" {
		return appErr.ValidationError("language", "required")
	}
	if s.maxCodeBytes > 0 && len(sourceCode) > s.maxCodeBytes {
		return appErr.New(appErr.CodeTooLarge).WithDetail("max_bytes", s.maxCodeBytes)
	}
	return nil
}

func (s *SubmissionService) loadProblem(ctx context.Context, problemID int64, hidden bool) (*problemModel.Problem, []problemModel.TestCase, error) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()

	problem, err := s.problemRepo.GetByID(ctxDB.ctx, problemID)
	if err != nil {
		if errors.Is(err, problemRepo.ErrProblemNotFound) {
			return nil, nil, appErr.New(appErr.ProblemNotFound)
		}
		return nil, nil, appErr.Wrap(err, appErr.DatabaseError)
	}

	var cases []problemModel.TestCase
	if hidden {
		cases, err = s.problemRepo.HiddenTestCases(ctxDB.ctx, problemID)
	} else {
		cases, err = s.problemRepo.VisibleTestCases(ctxDB.ctx, problemID)
	}
	if err != nil {
		return nil, nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	if len(cases) == 0 {
		return nil, nil, appErr.New(appErr.TestCasesMissing).WithDetail("problem_id", problemID)
	}
	return &problem, cases, nil
}

// dispatch sends one batch carrying every test case and waits for the
// terminal results. The round-trip count stays O(1) in the case count.
func (s *SubmissionService) dispatch(ctx context.Context, sourceCode string, languageID int, cases []problemModel.TestCase) ([]judge.Result, error) {
	requests := make([]judge.SubmissionRequest, 0, len(cases))
	for _, tc := range cases {
		requests = append(requests, judge.SubmissionRequest{
			SourceCode:     sourceCode,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		})
	}

	handle, err := s.judge.SubmitBatch(ctx, requests)
	if err != nil {
		return nil, err
	}
	return s.judge.AwaitResults(ctx, handle)
}

func (s *SubmissionService) checkRateLimit(ctx context.Context, userID int64, clientIP string) error {
	if s.cache == nil || s.rateLimit.Window <= 0 {
		return nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()

	if s.rateLimit.UserMax > 0 {
		key := fmt.Sprintf("%s%d", rateUserKeyPrefix, userID)
		if err := s.bumpCounter(ctxCache.ctx, key, s.rateLimit.UserMax); err != nil {
			return err
		}
	}
	if s.rateLimit.IPMax > 0 && clientIP != "" {
		if err := s.bumpCounter(ctxCache.ctx, rateIPKeyPrefix+clientIP, s.rateLimit.IPMax); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubmissionService) bumpCounter(ctx context.Context, key string, limit int) error {
	count, err := s.cache.Incr(ctx, key)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	if count == 1 {
		_ = s.cache.Expire(ctx, key, s.rateLimit.Window)
	}
	if int(count) > limit {
		return appErr.New(appErr.SubmitTooFrequently)
	}
	return nil
}

// acquireInFlight deduplicates concurrent evaluations of the same
// (user, problem) pair with a keyed SetNX reservation. The reservation
// lives in the cache, so it holds across instances.
func (s *SubmissionService) acquireInFlight(ctx context.Context, userID, problemID int64) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()

	key := fmt.Sprintf("%s%d:%d", inFlightKeyPrefix, userID, problemID)
	ok, err := s.cache.SetNX(ctxCache.ctx, key, "processing", s.inFlightTTL)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "reserve in-flight key failed")
	}
	if !ok {
		return nil, appErr.New(appErr.SubmissionInFlight)
	}
	release := func() {
		ctxRelease := withTimeout(context.WithoutCancel(ctx), s.timeouts.Cache)
		defer ctxRelease.cancel()
		if err := s.cache.Del(ctxRelease.ctx, key); err != nil {
			logger.Warn(ctx, "release in-flight key failed", zap.Error(err))
		}
	}
	return release, nil
}

func (s *SubmissionService) archiveSource(ctx context.Context, objectKey, source string) error {
	if s.storage == nil || s.sourceBucket == "" {
		return nil
	}
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()

	reader := io.NopCloser(strings.NewReader(source))
	defer func() { _ = reader.Close() }()
	err := s.storage.PutObject(ctxStorage.ctx, s.sourceBucket, objectKey, reader, int64(len(source)), "text/plain; charset=utf-8")
	if err != nil {
		return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "archive source failed")
	}
	return nil
}

func (s *SubmissionService) createSubmission(ctx context.Context, submission *model.Submission) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	if err := s.submissionRepo.Create(ctxDB.ctx, nil, submission); err != nil {
		return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}
	return nil
}

func (s *SubmissionService) finalize(ctx context.Context, submission *model.Submission) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	if err := s.submissionRepo.Finalize(ctxDB.ctx, nil, submission); err != nil {
		// Grading succeeded; the caller needs to hear that only the
		// recording failed.
		return appErr.Wrapf(err, appErr.VerdictPersist, "persist verdict failed")
	}
	return nil
}

// markFailed moves a pending submission to failed after a pipeline fault.
// "failed" means the code could not be graded, not that it was wrong.
func (s *SubmissionService) markFailed(ctx context.Context, submission *model.Submission) {
	failed := *submission
	failed.Status = model.StatusFailed
	failed.TestCasesPassed = 0
	failed.RuntimeSec = 0
	failed.MemoryKB = 0

	ctxDB := withTimeout(context.WithoutCancel(ctx), s.timeouts.DB)
	defer ctxDB.cancel()
	if err := s.submissionRepo.Finalize(ctxDB.ctx, nil, &failed); err != nil && !errors.Is(err, repository.ErrAlreadyTerminal) {
		logger.Error(ctx, "mark submission failed errored",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
		return
	}
	submission.Status = model.StatusFailed
}

// recordStats applies the stats side effects. Failures are logged and
// dropped: the persisted verdict stands regardless.
func (s *SubmissionService) recordStats(ctx context.Context, submission *model.Submission, accepted bool) {
	if err := s.stats.RecordSubmission(ctx, submission.UserID, accepted); err != nil {
		logger.Warn(ctx, "record submission stats failed",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
	}
	if !accepted {
		return
	}
	if err := s.stats.RecordAcceptance(ctx, submission.UserID, submission.ProblemID); err != nil {
		logger.Warn(ctx, "record acceptance stats failed",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
	}
}

func (s *SubmissionService) publishFinished(ctx context.Context, submission *model.Submission) {
	if s.publisher == nil || s.finishedTopic == "" {
		return
	}
	event := model.FinishedEvent{
		SubmissionID:    submission.ID,
		UserID:          submission.UserID,
		ProblemID:       submission.ProblemID,
		Status:          submission.Status,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		FinishedAt:      time.Now(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Warn(ctx, "encode finished event failed", zap.Error(err))
		return
	}
	ctxMQ := withTimeout(ctx, s.timeouts.MQ)
	defer ctxMQ.cancel()
	if err := s.publisher.Publish(ctxMQ.ctx, s.finishedTopic, mq.NewMessage(body)); err != nil {
		logger.Warn(ctx, "publish finished event failed",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
	}
}

func (s *SubmissionService) buildSourceKey(submissionID string) string {
	return fmt.Sprintf("%s/%s/source.code", s.sourceKeyPrefix, submissionID)
}

func hashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
