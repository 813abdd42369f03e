package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/medichat/internal/api"
	"github.com/RichardoC/medichat/internal/chat"
	"github.com/RichardoC/medichat/internal/config"
	"github.com/RichardoC/medichat/internal/db"
	"github.com/RichardoC/medichat/internal/session"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func newLogger(development bool) *zap.Logger {
	var logger *zap.Logger
	if development {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	bootstrap := newLogger(false)
	if err := config.LoadDotEnv(); err != nil {
		bootstrap.Warn("failed to read .env file", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("failed to load configuration", zap.Error(err))
	}

	logger := newLogger(cfg.LogDevelopment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Both clients are built once; a missing key only degrades its component.
	orchestrator := chat.NewFromConfig(ctx, cfg, logger)

	var journal *db.Database
	var sessionJournal session.Journal
	var history api.SessionLister
	if cfg.DBPath != "" {
		journal, err = db.New(cfg.DBPath)
		if err != nil {
			logger.Fatal("failed to initialize database",
				zap.Error(err),
				zap.String("dbPath", cfg.DBPath))
		}
		sessionJournal, history = journal, journal
		logger.Info("turn journal enabled", zap.String("dbPath", cfg.DBPath))
	}

	sessions := session.NewManager(orchestrator, sessionJournal, cfg.MaxSessions, logger)
	handler := api.NewHandler(sessions, orchestrator.Readiness, history, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	handler.Routes(r)

	// Serve static files
	r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))

	// Generation is a single blocking call, so there is no write timeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("status", orchestrator.Readiness().StatusText()))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if journal != nil {
		err = multierr.Append(err, journal.Close())
	}
	if err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	}
}
