package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/rinkside/cliparse"
	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/jobs"
	"github.com/danielhkuo/rinkside/router"
)

func main() {
	var err error

	// A .env file is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect and verify
	dbConn, dialect, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", dialect)

	// Generation stays off without an API key
	var client generation.Client
	if cfg.GeminiAPIKey != "" {
		gemini, err := generation.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("gemini client setup failed", "error", err)
			os.Exit(1)
		}
		client = gemini
		slog.Info("Generation enabled", "model", gemini.Model())
	} else {
		slog.Warn("GEMINI_API_KEY not set; generation endpoints will return 503")
	}

	svc, err := router.NewServices(dbConn, dialect, cfg, client)
	if err != nil {
		slog.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	workerDone := make(chan struct{})
	if cfg.WorkerEnabled {
		worker := jobs.NewWorker(svc.Processor, svc.Jobs, jobs.WorkerConfig{
			Interval:    cfg.WorkerInterval,
			Concurrency: cfg.WorkerConcurrency,
			StaleAfter:  cfg.JobStaleAfter,
		})
		go func() {
			defer close(workerDone)
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("job worker stopped", "error", err)
			}
		}()
	} else {
		close(workerDone)
	}

	// Create server
	server := http.Server{
		Handler:           router.NewRouter(svc, cfg),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	cancel()
	<-workerDone
}
