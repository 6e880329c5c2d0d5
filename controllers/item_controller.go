package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lostfound/config"
	"github.com/cppla/lostfound/metrics"
	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/services"
	"github.com/cppla/lostfound/utils"
	"github.com/cppla/lostfound/web"
)

const genericSaveFailure = "Error: the report could not be saved, please try again."

// Board is the part of services.ItemBoard the handlers depend on.
type Board interface {
	ListAll(ctx context.Context) ([]models.Item, error)
	Create(ctx context.Context, in services.CreateInput) (*models.Item, error)
	Search(ctx context.Context, q string) ([]models.Item, error)
	Get(ctx context.Context, id uint) (*models.Item, error)
	Stats(ctx context.Context) (services.Stats, error)
}

// ItemController serves the HTML pages of the board.
type ItemController struct {
	board        Board
	secret       string
	exposeDetail bool
}

// NewItemController creates a new ItemController instance.
func NewItemController(board Board, cfg config.AppConfig) *ItemController {
	return &ItemController{
		board:        board,
		secret:       cfg.SecretKey,
		exposeDetail: cfg.ExposeErrorDetail,
	}
}

type listPage struct {
	web.PageData
	Items []models.Item
}

type formPage struct {
	web.PageData
	KindLabel string
	Action    string
}

type searchPage struct {
	web.PageData
	Query string
	Items []models.Item
}

type detailPage struct {
	web.PageData
	Item *models.Item
}

type errorPage struct {
	web.PageData
	Status  int
	Message string
}

func (h *ItemController) pageData(ctx *gin.Context, title string) web.PageData {
	return web.PageData{Title: title, Flash: utils.PopFlash(ctx, h.secret)}
}

// Home lists every report, newest first.
func (h *ItemController) Home(ctx *gin.Context) {
	items, err := h.board.ListAll(ctx.Request.Context())
	if err != nil {
		h.serverError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "home.html", listPage{
		PageData: h.pageData(ctx, "Home"),
		Items:    items,
	})
}

// AddItem lets the visitor choose between a lost and a found report.
func (h *ItemController) AddItem(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "add_item.html", h.pageData(ctx, "Post an item"))
}

// NewReport renders the empty report form for kind.
func (h *ItemController) NewReport(kind models.Kind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.HTML(http.StatusOK, "add_form.html", formPage{
			PageData:  h.pageData(ctx, "Report a "+kind.Label()+" item"),
			KindLabel: kind.Label(),
			Action:    "/add-" + string(kind),
		})
	}
}

// CreateReport handles a submitted report form for kind. Stored and rejected
// reports both redirect home with a flash.
func (h *ItemController) CreateReport(kind models.Kind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var form itemForm
		if err := ctx.ShouldBind(&form); err != nil {
			h.renderError(ctx, http.StatusBadRequest, "invalid form submission")
			return
		}

		input, err := form.toInput(kind)
		if err != nil {
			if errors.Is(err, services.ErrInvalidDate) {
				h.renderError(ctx, http.StatusBadRequest, services.ErrInvalidDate.Error())
				return
			}
			h.serverError(ctx, err)
			return
		}

		photo, closer, err := openPhoto(ctx)
		if err != nil {
			h.renderError(ctx, http.StatusBadRequest, "could not read the uploaded photo")
			return
		}
		defer closer.Close()
		input.Photo = photo

		_, err = h.board.Create(ctx.Request.Context(), input)
		var perr *services.PersistError
		switch {
		case err == nil:
			metrics.ReportsCreatedTotal.WithLabelValues(string(kind), "ok").Inc()
			utils.SetFlash(ctx, h.secret, utils.FlashSuccess, kind.Label()+" item posted!")
		case errors.As(err, &perr):
			metrics.ReportsCreatedTotal.WithLabelValues(string(kind), "persist_error").Inc()
			utils.Sugar.Errorw("report insert failed", "kind", kind, "error", perr.Err)
			utils.SetFlash(ctx, h.secret, utils.FlashDanger, h.saveFailureMessage(perr))
		case errors.Is(err, services.ErrPhotoTooLarge):
			metrics.ReportsCreatedTotal.WithLabelValues(string(kind), "error").Inc()
			h.renderError(ctx, http.StatusRequestEntityTooLarge, err.Error())
			return
		default:
			metrics.ReportsCreatedTotal.WithLabelValues(string(kind), "error").Inc()
			h.serverError(ctx, err)
			return
		}
		ctx.Redirect(http.StatusFound, "/")
	}
}

func (h *ItemController) saveFailureMessage(perr *services.PersistError) string {
	if !h.exposeDetail {
		return genericSaveFailure
	}
	return "Error: " + utils.StripMarkup(perr.Err.Error())
}

// Search shows reports matching the q parameter. The query is echoed back
// into the search box.
func (h *ItemController) Search(ctx *gin.Context) {
	q := strings.TrimSpace(ctx.Query("q"))
	items, err := h.board.Search(ctx.Request.Context(), q)
	if err != nil {
		h.serverError(ctx, err)
		return
	}
	if q != "" {
		metrics.SearchesTotal.Inc()
	}
	ctx.HTML(http.StatusOK, "search.html", searchPage{
		PageData: h.pageData(ctx, "Search"),
		Query:    q,
		Items:    items,
	})
}

// Detail shows one report.
func (h *ItemController) Detail(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		h.NotFound(ctx)
		return
	}
	item, err := h.board.Get(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		h.NotFound(ctx)
		return
	}
	if err != nil {
		h.serverError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "item_detail.html", detailPage{
		PageData: h.pageData(ctx, deref(item.Title)),
		Item:     item,
	})
}

// Ping is the liveness probe.
func (h *ItemController) Ping(ctx *gin.Context) {
	ctx.String(http.StatusOK, "Server is running!")
}

// NotFound renders the 404 page.
func (h *ItemController) NotFound(ctx *gin.Context) {
	h.renderError(ctx, http.StatusNotFound, "The requested page does not exist.")
}

func (h *ItemController) renderError(ctx *gin.Context, status int, message string) {
	ctx.HTML(status, "error.html", errorPage{
		PageData: web.PageData{Title: http.StatusText(status)},
		Status:   status,
		Message:  message,
	})
}

func (h *ItemController) serverError(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	utils.Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "error", err)
	h.renderError(ctx, http.StatusInternalServerError, "Something went wrong on our side.")
}

// parseID accepts the same ids as a positive integer route segment.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
