package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "algohub/pkg/errors"
	"algohub/pkg/utils/logger"

	"go.uber.org/zap"
)

// Client is the pipeline's only interaction surface with the remote judge.
type Client interface {
	// SubmitBatch dispatches every test case of one evaluation in a single
	// call and returns the per-test-case tokens in request order.
	SubmitBatch(ctx context.Context, requests []SubmissionRequest) (BatchHandle, error)
	// AwaitResults polls until every token is terminal or the attempt cap
	// is hit. On cap exceeded it returns the last-seen partial results
	// alongside a GradingIncomplete error.
	AwaitResults(ctx context.Context, handle BatchHandle) ([]Result, error)
}

// ClientConfig configures the HTTP judge client.
type ClientConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	APIKey       string        `yaml:"apiKey"`
	APIKeyHeader string        `yaml:"apiKeyHeader"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"pollInterval"`
	PollAttempts int           `yaml:"pollAttempts"`
}

// DefaultClientConfig returns production defaults; the poll budget bounds
// the total wait at PollAttempts * PollInterval per evaluation.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      10 * time.Second,
		PollInterval: time.Second,
		PollAttempts: 10,
	}
}

type httpClient struct {
	cfg    ClientConfig
	client *http.Client
}

// NewClient builds a judge client over HTTP. Missing limits fall back to
// the defaults so a zero-valued config cannot produce an unbounded poll.
func NewClient(cfg ClientConfig) Client {
	defaults := DefaultClientConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = defaults.PollAttempts
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *httpClient) SubmitBatch(ctx context.Context, requests []SubmissionRequest) (BatchHandle, error) {
	if len(requests) == 0 {
		return BatchHandle{}, pkgerrors.New(pkgerrors.ValidationFailed).WithMessage("empty judge batch")
	}

	payload := wireBatchRequest{Submissions: make([]wireSubmission, 0, len(requests))}
	for _, req := range requests {
		payload.Submissions = append(payload.Submissions, wireSubmission{
			SourceCode:     encode(req.SourceCode),
			LanguageID:     req.LanguageID,
			Stdin:          encode(req.Stdin),
			ExpectedOutput: encode(req.ExpectedOutput),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return BatchHandle{}, pkgerrors.Wrap(err, pkgerrors.JudgeUnavailable)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/submissions/batch?base64_encoded=true", body)
	if err != nil {
		return BatchHandle{}, err
	}

	var tokens []wireToken
	if err := json.Unmarshal(respBody, &tokens); err != nil {
		return BatchHandle{}, pkgerrors.Wrap(err, pkgerrors.JudgeUnavailable).WithMessage("undecodable judge response")
	}
	if len(tokens) != len(requests) {
		return BatchHandle{}, pkgerrors.New(pkgerrors.JudgeUnavailable).
			WithDetail("expected", len(requests)).
			WithDetail("received", len(tokens))
	}

	handle := BatchHandle{Tokens: make([]string, 0, len(tokens))}
	for _, t := range tokens {
		if t.Token == "" {
			return BatchHandle{}, pkgerrors.New(pkgerrors.JudgeUnavailable).WithMessage("judge returned empty token")
		}
		handle.Tokens = append(handle.Tokens, t.Token)
	}
	return handle, nil
}

func (c *httpClient) AwaitResults(ctx context.Context, handle BatchHandle) ([]Result, error) {
	if len(handle.Tokens) == 0 {
		return nil, pkgerrors.New(pkgerrors.ValidationFailed).WithMessage("empty batch handle")
	}

	path := fmt.Sprintf("/submissions/batch?tokens=%s&base64_encoded=true&fields=*",
		url.QueryEscape(strings.Join(handle.Tokens, ",")))

	var last []Result
	for attempt := 1; attempt <= c.cfg.PollAttempts; attempt++ {
		respBody, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var batch wireBatchResponse
		if err := json.Unmarshal(respBody, &batch); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.JudgeUnavailable).WithMessage("undecodable judge response")
		}
		if len(batch.Submissions) == 0 {
			return nil, pkgerrors.New(pkgerrors.JudgeUnavailable).WithMessage("judge returned no results")
		}

		last = decodeResults(batch.Submissions)
		if allTerminal(last) {
			return last, nil
		}

		if attempt < c.cfg.PollAttempts {
			select {
			case <-ctx.Done():
				return last, pkgerrors.Wrap(ctx.Err(), pkgerrors.JudgeUnavailable)
			case <-time.After(c.cfg.PollInterval):
			}
		}
	}

	logger.Warn(ctx, "judge poll budget exhausted",
		zap.Int("attempts", c.cfg.PollAttempts),
		zap.Int("tokens", len(handle.Tokens)))
	return last, pkgerrors.New(pkgerrors.GradingIncomplete).WithDetail("attempts", c.cfg.PollAttempts)
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.JudgeUnavailable)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		header := c.cfg.APIKeyHeader
		if header == "" {
			header = "X-Auth-Token"
		}
		req.Header.Set(header, c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.JudgeUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.JudgeUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.JudgeUnavailable).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", truncate(string(respBody), 512))
	}
	return respBody, nil
}

func decodeResults(items []wireResult) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, Result{
			Token:         item.Token,
			Status:        item.Status,
			Stdout:        decode(item.Stdout),
			Stderr:        decode(item.Stderr),
			CompileOutput: decode(item.CompileOutput),
			Time:          parseSeconds(item.Time),
			Memory:        intValue(item.Memory),
		})
	}
	return results
}

func allTerminal(results []Result) bool {
	for _, r := range results {
		if !r.Terminal() {
			return false
		}
	}
	return true
}

func encode(s string) string {
	if s == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func decode(s *string) string {
	if s == nil || *s == "" {
		return ""
	}
	// The judge wraps long payloads with newlines; strip them before decoding.
	compact := strings.ReplaceAll(strings.TrimSpace(*s), "\n", "")
	raw, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		// Fall back to the raw value rather than dropping diagnostics.
		return *s
	}
	return string(raw)
}

func parseSeconds(s *string) float64 {
	if s == nil || *s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return 0
	}
	return v
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
