package errors_test

import (
	"errors"
	"testing"

	. "algohub/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{ProblemNotFound, "Problem not found"},
		{InvalidParams, "Invalid parameters"},
		{DatabaseError, "Database operation failed"},
		{JudgeUnavailable, "Judge service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{LanguageNotSupported, 400},
		{Unauthorized, 401},
		{TokenExpired, 401},
		{ProblemNotFound, 404},
		{SubmissionInFlight, 409},
		{SubmitTooFrequently, 429},
		{InternalServerError, 500},
		{JudgeUnavailable, 503},
		{GradingIncomplete, 503},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNew(t *testing.T) {
	err := New(ProblemNotFound)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Code != ProblemNotFound {
		t.Errorf("Code = %v, want ProblemNotFound", err.Code)
	}
	if err.Message != ProblemNotFound.Message() {
		t.Errorf("Message = %v", err.Message)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, JudgeUnavailable)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error must unwrap to cause")
	}
	if GetCode(err) != JudgeUnavailable {
		t.Errorf("GetCode = %v", GetCode(err))
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(GradingIncomplete).WithDetail("attempts", 10)
	if !Is(err, GradingIncomplete) {
		t.Fatal("Is must match the code")
	}
	if Is(err, JudgeUnavailable) {
		t.Fatal("Is must not match a different code")
	}
	if Is(nil, JudgeUnavailable) {
		t.Fatal("Is(nil) must be false")
	}
}

func TestGetCodeOnForeignError(t *testing.T) {
	if GetCode(errors.New("plain")) != InternalServerError {
		t.Fatal("foreign errors map to InternalServerError")
	}
	if GetCode(nil) != Success {
		t.Fatal("nil maps to Success")
	}
}
