package judge

import (
	"testing"

	pkgerrors "algohub/pkg/errors"
)

func accepted(timeSec float64, memKB int) Result {
	return Result{Status: ResultStatus{ID: StatusAccepted, Description: "Accepted"}, Time: timeSec, Memory: memKB}
}

func rejected(statusID int) Result {
	return Result{Status: ResultStatus{ID: statusID}}
}

func TestAggregateAllPassed(t *testing.T) {
	results := []Result{accepted(0.12, 9000), accepted(0.34, 10240), accepted(0.05, 8000)}
	v, err := Aggregate(results, 3)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if !v.Accepted {
		t.Fatal("expected accepted verdict")
	}
	if v.PassedCount != 3 || v.Total != 3 {
		t.Fatalf("counts = %d/%d, want 3/3", v.PassedCount, v.Total)
	}
	if v.RuntimeSec != 0.34 {
		t.Fatalf("runtime = %v, want 0.34", v.RuntimeSec)
	}
	if v.MemoryKB != 10240 {
		t.Fatalf("memory = %d, want 10240", v.MemoryKB)
	}
}

func TestAggregatePartialPass(t *testing.T) {
	results := []Result{accepted(0.1, 5000), accepted(0.2, 6000), rejected(4)}
	v, err := Aggregate(results, 3)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if v.Accepted {
		t.Fatal("expected wrong_answer verdict")
	}
	if v.PassedCount != 2 {
		t.Fatalf("passed = %d, want 2", v.PassedCount)
	}
}

func TestAggregateRuntimeFromPassedCasesOnly(t *testing.T) {
	// A timed-out case carries an anomalous timing that must not leak
	// into the reported runtime/memory figures.
	results := []Result{
		accepted(0.1, 5000),
		{Status: ResultStatus{ID: 5, Description: "Time Limit Exceeded"}, Time: 10.0, Memory: 250000},
		rejected(4),
	}
	v, err := Aggregate(results, 3)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if v.PassedCount != 1 {
		t.Fatalf("passed = %d, want 1", v.PassedCount)
	}
	if v.RuntimeSec != 0.1 {
		t.Fatalf("runtime = %v, want 0.1 (from the passed case)", v.RuntimeSec)
	}
	if v.MemoryKB != 5000 {
		t.Fatalf("memory = %d, want 5000 (from the passed case)", v.MemoryKB)
	}
}

func TestAggregateZeroResultsIsJudgeFault(t *testing.T) {
	_, err := Aggregate(nil, 3)
	if err == nil {
		t.Fatal("expected error for zero results")
	}
	if pkgerrors.GetCode(err) != pkgerrors.JudgeUnavailable {
		t.Fatalf("code = %d, want JudgeUnavailable", pkgerrors.GetCode(err))
	}
}
