package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "algohub/pkg/errors"
)

func testClient(t *testing.T, handler http.Handler, attempts int) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		PollInterval: time.Millisecond,
		PollAttempts: attempts,
	})
	return client, srv
}

func str(s string) *string { return &s }

func b64(s string) *string {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	return &enc
}

func TestSubmitBatchEncodesAndReturnsTokens(t *testing.T) {
	var captured wireBatchRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Query().Get("base64_encoded") != "true" {
			t.Error("base64_encoded flag missing on create")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode([]wireToken{{Token: "tok-1"}, {Token: "tok-2"}})
	})
	client, _ := testClient(t, handler, 3)

	handle, err := client.SubmitBatch(context.Background(), []SubmissionRequest{
		{SourceCode: "print(1)\n", LanguageID: 71, Stdin: "5\n3", ExpectedOutput: "8"},
		{SourceCode: "print(1)\n", LanguageID: 71, Stdin: "1\n2", ExpectedOutput: "3"},
	})
	if err != nil {
		t.Fatalf("SubmitBatch returned error: %v", err)
	}
	if len(handle.Tokens) != 2 || handle.Tokens[0] != "tok-1" {
		t.Fatalf("tokens = %v", handle.Tokens)
	}
	if len(captured.Submissions) != 2 {
		t.Fatalf("dispatched %d submissions in the batch, want 2", len(captured.Submissions))
	}
	if captured.Submissions[0].SourceCode != base64.StdEncoding.EncodeToString([]byte("print(1)\n")) {
		t.Fatalf("source not base64 encoded: %q", captured.Submissions[0].SourceCode)
	}
	if captured.Submissions[0].LanguageID != 71 {
		t.Fatalf("language id = %d, want 71", captured.Submissions[0].LanguageID)
	}
}

func TestSubmitBatchServiceError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	})
	client, _ := testClient(t, handler, 3)

	_, err := client.SubmitBatch(context.Background(), []SubmissionRequest{{SourceCode: "x", LanguageID: 54}})
	if err == nil {
		t.Fatal("expected error on 503")
	}
	if pkgerrors.GetCode(err) != pkgerrors.JudgeUnavailable {
		t.Fatalf("code = %d, want JudgeUnavailable", pkgerrors.GetCode(err))
	}
}

func TestSubmitBatchTokenCountMismatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]wireToken{{Token: "only-one"}})
	})
	client, _ := testClient(t, handler, 3)

	_, err := client.SubmitBatch(context.Background(), []SubmissionRequest{
		{SourceCode: "x", LanguageID: 54},
		{SourceCode: "x", LanguageID: 54},
	})
	if !pkgerrors.Is(err, pkgerrors.JudgeUnavailable) {
		t.Fatalf("expected JudgeUnavailable, got %v", err)
	}
}

func TestAwaitResultsDecodesTerminalBatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tokens"); got != "tok-1,tok-2" {
			t.Errorf("tokens = %q", got)
		}
		if r.URL.Query().Get("fields") != "*" {
			t.Error("fields=* missing on fetch")
		}
		_ = json.NewEncoder(w).Encode(wireBatchResponse{Submissions: []wireResult{
			{Token: "tok-1", Status: ResultStatus{ID: StatusAccepted, Description: "Accepted"},
				Stdout: b64("8\n"), Time: str("0.021"), Memory: intPtr(3456)},
			{Token: "tok-2", Status: ResultStatus{ID: 4, Description: "Wrong Answer"},
				Stdout: b64("9\n"), Stderr: b64("boom")},
		}})
	})
	client, _ := testClient(t, handler, 3)

	results, err := client.AwaitResults(context.Background(), BatchHandle{Tokens: []string{"tok-1", "tok-2"}})
	if err != nil {
		t.Fatalf("AwaitResults returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Stdout != "8\n" {
		t.Fatalf("stdout not decoded: %q", results[0].Stdout)
	}
	if results[0].Time != 0.021 || results[0].Memory != 3456 {
		t.Fatalf("time/memory = %v/%d", results[0].Time, results[0].Memory)
	}
	if !results[0].Passed() || results[1].Passed() {
		t.Fatal("pass classification wrong")
	}
	if results[1].Stderr != "boom" {
		t.Fatalf("stderr not decoded: %q", results[1].Stderr)
	}
}

func TestAwaitResultsWaitsForTerminalStatus(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		status := ResultStatus{ID: StatusProcessing, Description: "Processing"}
		if n >= 3 {
			status = ResultStatus{ID: StatusAccepted, Description: "Accepted"}
		}
		_ = json.NewEncoder(w).Encode(wireBatchResponse{Submissions: []wireResult{{Token: "tok-1", Status: status}}})
	})
	client, _ := testClient(t, handler, 10)

	results, err := client.AwaitResults(context.Background(), BatchHandle{Tokens: []string{"tok-1"}})
	if err != nil {
		t.Fatalf("AwaitResults returned error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("polled %d times, want 3", got)
	}
	if !results[0].Terminal() {
		t.Fatal("result not terminal")
	}
}

func TestAwaitResultsBoundedWhenNeverTerminal(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(wireBatchResponse{Submissions: []wireResult{
			{Token: "tok-1", Status: ResultStatus{ID: StatusInQueue, Description: "In Queue"}},
		}})
	})
	const pollCap = 5
	client, _ := testClient(t, handler, pollCap)

	results, err := client.AwaitResults(context.Background(), BatchHandle{Tokens: []string{"tok-1"}})
	if err == nil {
		t.Fatal("expected GradingIncomplete after cap")
	}
	if pkgerrors.GetCode(err) != pkgerrors.GradingIncomplete {
		t.Fatalf("code = %d, want GradingIncomplete", pkgerrors.GetCode(err))
	}
	if got := calls.Load(); got != pollCap {
		t.Fatalf("polled %d times, want exactly %d", got, pollCap)
	}
	// Partial results ride along for diagnostics.
	if len(results) != 1 || results[0].Terminal() {
		t.Fatalf("partial results = %+v", results)
	}
}

func intPtr(v int) *int { return &v }
