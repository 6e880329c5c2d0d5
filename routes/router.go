package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/lostfound/config"
	"github.com/cppla/lostfound/controllers"
	"github.com/cppla/lostfound/metrics"
	"github.com/cppla/lostfound/middleware"
	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/services"
	"github.com/cppla/lostfound/utils"
	"github.com/cppla/lostfound/web"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, board *services.ItemBoard, templates *web.Templates) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())

	// Access log goes to its own rolling file; without a path it shares the app logger.
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			utils.Sugar.Warnw("gin access log unavailable", "path", cfg.GinPath, "error", err)
			accessLog = nil
		} else {
			accessLog = gl
		}
	}
	if accessLog != nil {
		r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(accessLog, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	// Photos are already compressed and promhttp negotiates its own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/static/uploads", "/metrics"})))

	if cfg.MetricsEnabled {
		metrics.Register()
		r.Use(middleware.PageViewRecorder())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.HTMLRender = templates
	r.StaticFS("/assets", http.FS(web.StaticFS()))
	r.Static("/static/uploads", board.UploadRoot())

	items := controllers.NewItemController(board, cfg)
	api := controllers.NewAPIController(board)
	stats := controllers.NewStatsController(board)

	r.GET("/", items.Home)
	r.GET("/add-item", items.AddItem)
	r.GET("/add-lost", items.NewReport(models.KindLost))
	r.POST("/add-lost", items.CreateReport(models.KindLost))
	r.GET("/add-found", items.NewReport(models.KindFound))
	r.POST("/add-found", items.CreateReport(models.KindFound))
	r.GET("/search", items.Search)
	r.GET("/item/:id", items.Detail)
	r.GET("/ping", items.Ping)

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	v1 := r.Group("/api/v1")
	v1.Use(cors.New(corsCfg))
	v1.GET("/items", api.ListItems)
	v1.GET("/items/:id", api.GetItem)
	v1.GET("/stats", stats.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, utils.CodeRouteNotFound, "api route not found")
			return
		}
		items.NotFound(ctx)
	})

	return r
}
