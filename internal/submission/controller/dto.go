package controller

// SubmitRequest is the submit endpoint payload.
type SubmitRequest struct {
	SourceCode string `json:"source_code" binding:"required"`
	Language   string `json:"language" binding:"required"`
}

// RunRequest is the run endpoint payload. CustomInput replaces the
// problem's visible cases when present.
type RunRequest struct {
	SourceCode  string  `json:"source_code" binding:"required"`
	Language    string  `json:"language" binding:"required"`
	CustomInput *string `json:"custom_input,omitempty"`
}
