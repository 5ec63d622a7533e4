package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/services-marketplace/internal/config"
	"github.com/iliyamo/services-marketplace/internal/dashboard"
	"github.com/iliyamo/services-marketplace/internal/database"
	"github.com/iliyamo/services-marketplace/internal/handler"
	"github.com/iliyamo/services-marketplace/internal/middleware"
	"github.com/iliyamo/services-marketplace/internal/queue"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/router"
	"github.com/iliyamo/services-marketplace/internal/utils"
)

// logDir receives the event consumer's reservations.log.
const logDir = "logs"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
			log.Fatalf("database: migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Printf("redis: %s unreachable; cache and rate limit disabled", cfg.Redis.Address())
	} else {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.NoopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewRabbitPublisher(cfg.RabbitURL)
		go queue.NewConsumer(cfg.RabbitURL, logDir).Run(ctx)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	categories := repository.NewCategoryRepo(db)
	providers := repository.NewProviderRepo(db)
	listings := repository.NewListingRepo(db)
	reviews := repository.NewReviewRepo(db)
	reservations := repository.NewReservationRepo(db)
	board := dashboard.NewService(reservations, listings)
	media := utils.MediaStore{Dir: cfg.MediaDir, MaxBytes: cfg.MediaMaxBytes}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Static("/media", cfg.MediaDir)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(listings, reviews, reservations, events), router.Edge{
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb),
	}, cfg.JWTSecret)
	router.RegisterProvider(e, &handler.ProviderHandler{
		Providers:    providers,
		Categories:   categories,
		Listings:     listings,
		Reservations: reservations,
		Board:        board,
		Media:        media,
		Events:       events,
	}, cfg.JWTSecret)
	router.RegisterStaff(e, &handler.StaffHandler{
		Categories:   categories,
		Providers:    providers,
		Listings:     listings,
		Reservations: reservations,
		Reviews:      reviews,
		Board:        board,
		Media:        media,
		Events:       events,
	}, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DB.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
