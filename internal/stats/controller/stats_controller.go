package controller

import (
	"strconv"

	"algohub/internal/common/http/middleware"
	"algohub/internal/stats/service"
	"algohub/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// StatsController exposes the per-user aggregates and the leaderboard.
type StatsController struct {
	stats *service.StatsService
}

func NewStatsController(stats *service.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// Me returns the caller's aggregates.
func (h *StatsController) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}
	stats, err := h.stats.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// Leaderboard returns the solved-count ranking.
func (h *StatsController) Leaderboard(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.stats.Leaderboard(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPagination(c, entries, total, page, limit)
}
