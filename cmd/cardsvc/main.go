package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/builder"
	"card-studio/internal/card/handlers"
	"card-studio/internal/card/layout"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/repository"
	"card-studio/internal/card/service"
	"card-studio/internal/common/config"
	"card-studio/internal/common/logger"
	"card-studio/internal/common/middleware"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// Card Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		logg.Fatal("open db", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		logg.Fatal("init db", zap.Error(err))
	}

	// ============================================================
	// Rendering
	// ============================================================

	// Превью растеризуется в своей горутине, поэтому шрифты у него отдельные.
	engineFonts, err := layout.NewFontMeasurer(cfg.FontDir)
	if err != nil {
		logg.Fatal("load fonts", zap.String("dir", cfg.FontDir), zap.Error(err))
	}
	previewFonts, err := layout.NewFontMeasurer(cfg.FontDir)
	if err != nil {
		logg.Fatal("load fonts", zap.String("dir", cfg.FontDir), zap.Error(err))
	}

	images := assets.NewLoader(&http.Client{Timeout: cfg.AssetTimeout}, logg)
	cardBuilder := builder.New(layout.NewEngine(layout.DefaultConfig(), engineFonts), images, logg)

	svc := service.NewCardService(service.Deps{
		Store:   repo,
		Builder: cardBuilder,
		Preview: mapper.NewPreview(previewFonts, images, logg),
		Files:   service.NewFileStorage(cfg.StorageRoot),
		Images:  images,
		Origin:  cfg.PublicOrigin,
		Logger:  logg,
	})

	views := service.NewViews(cfg.ViewTTL, logg)
	go views.Run(ctx, cfg.ViewSweep)
	drafts := service.NewDrafts(cfg.DraftTTL, logg)
	go drafts.Run(ctx, cfg.ViewSweep)

	cardHandler := handlers.NewCardHandler(handlers.Options{
		Service:      svc,
		Sessions:     service.NewSessionManager(cfg.SessionTTL),
		Drafts:       drafts,
		Views:        views,
		Builder:      cardBuilder,
		SVG:          mapper.NewSVGRenderer(engineFonts),
		Images:       images,
		Damping:      cfg.ViewDamping,
		Debounce:     cfg.TapDebounce,
		AssetTimeout: cfg.AssetTimeout,
		DevSessions:  !cfg.IsProduction(),
		Logger:       logg,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Card Studio",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(logg))
	if cfg.IsProduction() {
		app.Use(middleware.CORS(cfg.PublicOrigin))
	} else {
		app.Use(middleware.CORS())
	}

	handlers.Register(app, cardHandler, handlers.NewHealth(db))

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logg.Warn("shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	logg.Info("starting card service", zap.String("addr", addr), zap.String("env", cfg.Environment))

	if err := app.Listen(addr); err != nil {
		logg.Fatal("failed to start server", zap.Error(err))
	}
}
