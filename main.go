package main

import (
	"context"
	"time"

	"github.com/cppla/lostfound/config"
	"github.com/cppla/lostfound/routes"
	"github.com/cppla/lostfound/services"
	"github.com/cppla/lostfound/utils"
	"github.com/cppla/lostfound/web"
)

// Photos younger than this are never swept; their report may still be inserting.
const orphanPhotoMinAge = time.Hour

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	if cfg.UsesDefaultSecret() {
		utils.Sugar.Warn("SECRET_KEY is not set; flash cookies are signed with the public default key")
	}

	env := services.Env{Config: cfg}
	if cfg.CacheEnabled {
		rc := utils.NewRedis(cfg)
		defer rc.Close()
		env.Cache = utils.NewRedisCache(rc)
	}

	board := services.NewItemBoard(env)
	if err := board.Start(context.Background()); err != nil {
		utils.Sugar.Fatalf("start item board: %v", err)
	}

	templates, err := web.LoadTemplates()
	if err != nil {
		utils.Sugar.Fatalf("load templates: %v", err)
	}
	r := routes.SetupRouter(cfg, board, templates)

	// Sweep photos left behind by submissions that never reached the store.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	utils.StartUploadCleaner(sweepCtx, time.Duration(cfg.UploadSweepMinutes)*time.Minute,
		func(ctx context.Context) (int, error) {
			return board.SweepOrphanPhotos(ctx, orphanPhotoMinAge)
		})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r, stopSweep, func() {
		if err := board.Close(); err != nil {
			utils.Sugar.Warnf("close database: %v", err)
		}
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
