package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth boundary errors
// 12000-12999: Problem module errors
// 13000-13999: Submission & Judge pipeline errors
// 14000-14999: Stats & Leaderboard errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Auth Boundary Errors (11000-11999) ==========

	TokenExpired ErrorCode = 11000
	TokenInvalid ErrorCode = 11001

	// ========== Problem Module Errors (12000-12999) ==========

	ProblemNotFound   ErrorCode = 12000
	TestCasesMissing  ErrorCode = 12100
	CustomInputTooBig ErrorCode = 12200

	// ========== Submission & Judge Pipeline Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	LanguageNotSupported   ErrorCode = 13003
	SubmitTooFrequently    ErrorCode = 13004
	SubmissionInFlight     ErrorCode = 13005

	// Judge (13100-13199)
	JudgeUnavailable  ErrorCode = 13100
	GradingIncomplete ErrorCode = 13101
	VerdictPersist    ErrorCode = 13102

	// ========== Stats & Leaderboard Errors (14000-14999) ==========

	StatsUpdateFailed ErrorCode = 14000
	StatsNotFound     ErrorCode = 14001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Auth boundary
	TokenExpired: "Token has expired",
	TokenInvalid: "Invalid token",

	// Problem
	ProblemNotFound:   "Problem not found",
	TestCasesMissing:  "No test cases available for this problem",
	CustomInputTooBig: "Custom input is too large",

	// Submission
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	CodeTooLarge:           "Code is too large",
	LanguageNotSupported:   "Programming language not supported",
	SubmitTooFrequently:    "Submitting too frequently, please wait",
	SubmissionInFlight:     "An identical submission is already being evaluated",

	// Judge
	JudgeUnavailable:  "Judge service unavailable",
	GradingIncomplete: "Judge did not finish grading in time",
	VerdictPersist:    "Grading finished but recording the verdict failed",

	// Stats
	StatsUpdateFailed: "Failed to update user statistics",
	StatsNotFound:     "User statistics not found",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == ProblemNotFound, c == SubmissionNotFound, c == StatsNotFound:
		return 404
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == SubmissionInFlight:
		return 409
	case c == ServiceUnavailable, c == JudgeUnavailable, c == GradingIncomplete:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge,
		c == CustomInputTooBig, c == TestCasesMissing:
		return 400
	default:
		return 500
	}
}
