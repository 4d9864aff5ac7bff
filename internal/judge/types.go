package judge

// Status ids fixed by the remote judge's wire contract. Ids 1 and 2 are
// non-terminal; 3 means the run produced the expected output; everything
// else is a distinct terminal failure (wrong answer, limits, crashes).
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

// SubmissionRequest is one test-case execution to dispatch. Fields are
// plain text here; the client base64-encodes them on the wire.
type SubmissionRequest struct {
	SourceCode     string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
}

// ResultStatus is the judge's terminal (or last-seen) classification of
// one test-case run.
type ResultStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the decoded outcome of one test-case execution.
type Result struct {
	Token         string
	Status        ResultStatus
	Stdout        string
	Stderr        string
	CompileOutput string
	Time          float64 // seconds
	Memory        int     // KB
}

// Terminal reports whether the result has left the queued/processing states.
func (r Result) Terminal() bool {
	return r.Status.ID != StatusInQueue && r.Status.ID != StatusProcessing
}

// Passed reports whether the test case was accepted by the judge.
func (r Result) Passed() bool {
	return r.Status.ID == StatusAccepted
}

// BatchHandle carries the opaque per-test-case tokens returned by a batch
// dispatch, in request order.
type BatchHandle struct {
	Tokens []string
}

// wire types

type wireSubmission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type wireBatchRequest struct {
	Submissions []wireSubmission `json:"submissions"`
}

type wireToken struct {
	Token string `json:"token"`
}

type wireResult struct {
	Token         string       `json:"token"`
	Status        ResultStatus `json:"status"`
	Stdout        *string      `json:"stdout"`
	Stderr        *string      `json:"stderr"`
	CompileOutput *string      `json:"compile_output"`
	Time          *string      `json:"time"`
	Memory        *int         `json:"memory"`
}

type wireBatchResponse struct {
	Submissions []wireResult `json:"submissions"`
}
