package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/secure-notes/internal/audit"
	"github.com/iliyamo/secure-notes/internal/config"
	"github.com/iliyamo/secure-notes/internal/database"
	"github.com/iliyamo/secure-notes/internal/handler"
	"github.com/iliyamo/secure-notes/internal/logger"
	"github.com/iliyamo/secure-notes/internal/mail"
	"github.com/iliyamo/secure-notes/internal/queue"
	"github.com/iliyamo/secure-notes/internal/repository"
	"github.com/iliyamo/secure-notes/internal/router"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("mysql connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	verifications := repository.NewVerificationRepo(db)
	notes := repository.NewNoteRepo(db)
	audits := repository.NewAuditRepo(db)

	recorder := audit.NewRecorder(audits, log)
	publisher := queue.NewPublisher(log)

	h := router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, log, users, sessions, verifications, publisher),
		Notes:  handler.NewNoteHandler(log, notes),
		Admin:  handler.NewAdminHandler(log, users, notes, sessions, audits, recorder),
		Health: handler.NewHealthHandler(db, rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	router.Register(e, &cfg, config.LoadRateLimitConfig(), rdb, h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go queue.StartVerificationConsumer(ctx, mail.NewLogSender(log), log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
