// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/danielhkuo/rinkside/auth"
	"github.com/danielhkuo/rinkside/cliparse"
	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/handlers"
	"github.com/danielhkuo/rinkside/jobs"
	"github.com/danielhkuo/rinkside/metrics"
	"github.com/danielhkuo/rinkside/middleware"
	"github.com/danielhkuo/rinkside/prompts"
)

// Services holds everything the routes and the job worker share.
type Services struct {
	Content   *content.Store
	Prompts   *prompts.Library
	Generator *generation.Service
	Jobs      *jobs.Store
	Processor *jobs.Processor
	Verifier  auth.Verifier
}

// NewServices wires the stores and services over conn. A nil client
// leaves generation disabled.
func NewServices(conn *sql.DB, dialect db.Dialect, cfg cliparse.Config, client generation.Client) (*Services, error) {
	var chain auth.ChainVerifier
	if len(cfg.APITokens) > 0 {
		static, err := auth.NewStaticVerifier(cfg.APITokens)
		if err != nil {
			return nil, err
		}
		chain = append(chain, static)
	}
	if cfg.AuthURL != "" {
		chain = append(chain, auth.NewSupabaseVerifier(cfg.AuthURL, cfg.AuthAPIKey, nil))
	}
	if len(chain) == 0 {
		return nil, errors.New("no authentication method configured")
	}

	svc := &Services{
		Content:  content.NewStore(conn, dialect),
		Prompts:  prompts.NewLibrary(cfg.PromptsDir),
		Jobs:     jobs.NewStore(conn, dialect, cfg.JobMaxAttempts),
		Verifier: chain,
	}
	svc.Generator = generation.NewService(client, svc.Prompts)
	svc.Processor = jobs.NewProcessor(svc.Jobs, svc.Content, svc.Generator, cfg.JobStaleAfter)
	return svc, nil
}

func NewRouter(svc *Services, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	contentHandler := handlers.NewContentHandler(svc.Content)
	publicHandler := handlers.NewPublicHandler(svc.Content)
	generateHandler := handlers.NewGenerateHandler(svc.Content, svc.Generator)
	jobHandler := handlers.NewJobHandler(svc.Jobs, svc.Processor)
	promptHandler := handlers.NewPromptHandler(svc.Prompts)

	// Authenticated routes log like every other route
	private := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(auth.RequireUser(svc.Verifier, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Published content for the site (public)
	mux.HandleFunc("GET /api/public/{kind}", middleware.WithLogging(publicHandler.List))
	mux.HandleFunc("GET /api/public/{kind}/random", middleware.WithLogging(publicHandler.Random))

	// CMS
	mux.HandleFunc("GET /api/me", private(handlers.Me))
	mux.HandleFunc("GET /api/kinds", private(contentHandler.Kinds))

	mux.HandleFunc("GET /api/content/{kind}", private(contentHandler.List))
	mux.HandleFunc("POST /api/content/{kind}", private(contentHandler.Create))
	mux.HandleFunc("POST /api/content/{kind}/bulk", private(contentHandler.BulkCreate))
	mux.HandleFunc("POST /api/content/{kind}/bulk-status", private(contentHandler.BulkStatus))
	mux.HandleFunc("GET /api/content/{kind}/{id}", private(contentHandler.Get))
	mux.HandleFunc("PUT /api/content/{kind}/{id}", private(contentHandler.Replace))
	mux.HandleFunc("PATCH /api/content/{kind}/{id}", private(contentHandler.Patch))
	mux.HandleFunc("DELETE /api/content/{kind}/{id}", private(contentHandler.Delete))
	mux.HandleFunc("POST /api/content/{kind}/{id}/status", private(contentHandler.SetStatus))
	mux.HandleFunc("POST /api/content/{kind}/{id}/publish", private(contentHandler.Publish))
	mux.HandleFunc("POST /api/content/{kind}/{id}/archive", private(contentHandler.Archive))

	// Generation and the job queue
	mux.HandleFunc("POST /api/generate", private(generateHandler.Generate))
	mux.HandleFunc("POST /api/bulk-generate", private(jobHandler.BulkGenerate))
	mux.HandleFunc("POST /api/process-jobs", private(jobHandler.ProcessJobs))
	mux.HandleFunc("GET /api/jobs", private(jobHandler.List))
	mux.HandleFunc("GET /api/jobs/stats", private(jobHandler.Stats))
	mux.HandleFunc("GET /api/jobs/{id}", private(jobHandler.Get))
	mux.HandleFunc("POST /api/jobs/{id}/retry", private(jobHandler.Retry))

	// Prompt templates and topics
	mux.HandleFunc("GET /api/prompts", private(promptHandler.List))
	mux.HandleFunc("GET /api/prompts/{name}", private(promptHandler.Get))
	mux.HandleFunc("PUT /api/prompts/{name}", private(promptHandler.Save))
	mux.HandleFunc("GET /api/topics", private(promptHandler.Topics))
	mux.HandleFunc("PUT /api/topics", private(promptHandler.SaveTopics))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("rinkside API v1"))
	})

	return middleware.CORS(cfg.AllowedOrigin, mux)
}
