// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the rinkside API server.

rinkside is the content backend for a hockey fan site: editors manage
trivia, stats, greetings, quotes and wisdom through a CMS, draft new items
with Gemini, and publish them to the public site.

# Starting the Server

The server reads flags, environment variables and an optional .env file:

	DATABASE_URL=./rinkside.db API_TOKENS=editor:secret go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -api-tokens editor:secret

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - AUTH_URL (-auth-url) or API_TOKENS (-api-tokens): how CMS users sign in

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - GEMINI_API_KEY, GEMINI_MODEL: enable generation
  - PROMPTS_DIR: where edited prompt templates are stored
  - WORKER_ENABLED, WORKER_INTERVAL, WORKER_CONCURRENCY: background job worker
  - JOB_MAX_ATTEMPTS, JOB_STALE_AFTER: job retry policy
  - ALLOWED_ORIGIN: CORS origin for the CMS

# Architecture

  - handlers: HTTP request handlers (content, public, generate, jobs, prompts)
  - router: Route definitions using Go 1.22+ routing, service wiring
  - middleware: CORS, logging, response envelope, JSON helpers
  - content: Kind registry, validation and the generic content store
  - generation: Gemini client, prompt rendering and output parsing
  - jobs: Bulk-generation queue, processor and worker
  - prompts: Prompt templates and topic list
  - auth: Bearer token verification
  - metrics: Prometheus collectors
  - models: Request/response types
  - db: Connections and schema
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
