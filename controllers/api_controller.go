package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/services"
	"github.com/cppla/lostfound/utils"
)

// APIController exposes the board read-only as JSON.
type APIController struct {
	board Board
}

// NewAPIController creates a new APIController instance.
func NewAPIController(board Board) *APIController {
	return &APIController{board: board}
}

// ListItems returns every report, or the search results when q is present.
func (a *APIController) ListItems(ctx *gin.Context) {
	var (
		items []models.Item
		err   error
	)
	if q, ok := ctx.GetQuery("q"); ok {
		items, err = a.board.Search(ctx.Request.Context(), q)
	} else {
		items, err = a.board.ListAll(ctx.Request.Context())
	}
	if err != nil {
		utils.Sugar.Errorw("list reports failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "could not load items")
		return
	}
	utils.Success(ctx, gin.H{
		"items": items,
		"total": len(items),
	})
}

// GetItem returns a single report.
func (a *APIController) GetItem(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, utils.CodeItemNotFound, "item not found")
		return
	}
	item, err := a.board.Get(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeItemNotFound, "item not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("load report failed", "id", id, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "could not load item")
		return
	}
	utils.Success(ctx, item)
}
