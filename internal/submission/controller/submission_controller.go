package controller

import (
	"strconv"

	"algohub/internal/common/http/middleware"
	"algohub/internal/submission/service"
	"algohub/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmissionController handles the evaluation HTTP endpoints.
type SubmissionController struct {
	submissions *service.SubmissionService
}

func NewSubmissionController(submissions *service.SubmissionService) *SubmissionController {
	return &SubmissionController{submissions: submissions}
}

// Submit grades the posted source against the problem's hidden tests.
func (h *SubmissionController) Submit(c *gin.Context) {
	problemID, ok := pathProblemID(c)
	if !ok {
		return
	}
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), service.SubmitInput{
		UserID:     userID,
		ProblemID:  problemID,
		SourceCode: req.SourceCode,
		Language:   req.Language,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Run executes the posted source against visible tests or a custom input.
func (h *SubmissionController) Run(c *gin.Context) {
	problemID, ok := pathProblemID(c)
	if !ok {
		return
	}
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.submissions.Run(c.Request.Context(), service.RunInput{
		UserID:      userID,
		ProblemID:   problemID,
		SourceCode:  req.SourceCode,
		Language:    req.Language,
		CustomInput: req.CustomInput,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Get returns one of the caller's submissions.
func (h *SubmissionController) Get(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	submission, err := h.submissions.GetSubmission(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// List returns the caller's submission history, newest first.
func (h *SubmissionController) List(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	submissions, total, err := h.submissions.ListSubmissions(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPagination(c, submissions, total, page, limit)
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func pathProblemID(c *gin.Context) (int64, bool) {
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return 0, false
	}
	return problemID, true
}

func authedUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return 0, false
	}
	return userID, true
}
