package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lostfound/utils"
)

// StatsController provides board statistics.
type StatsController struct {
	board Board
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(board Board) *StatsController {
	return &StatsController{board: board}
}

// GetStats returns report counts per kind.
func (s *StatsController) GetStats(ctx *gin.Context) {
	stats, err := s.board.Stats(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorw("count reports failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "could not load stats")
		return
	}
	utils.Success(ctx, stats)
}
