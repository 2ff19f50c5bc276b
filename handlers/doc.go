// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the rinkside API.

# Handler Types

Each handler is a struct over the services it needs:

  - ContentHandler: CRUD and lifecycle for every registered kind
  - PublicHandler: published content for the public site
  - GenerateHandler: ad hoc generation through the model
  - JobHandler: bulk generation queue
  - PromptHandler: prompt templates and the topic list

Handlers are created via constructor functions:

	contentHandler := handlers.NewContentHandler(contentStore)

# Content Lifecycle

Lifecycle kinds move between draft, published and archived:

	POST /api/content/{kind}/{id}/publish  → Publish (stamps published_at)
	POST /api/content/{kind}/{id}/archive  → Archive (stamps archived_at)
	POST /api/content/{kind}/{id}/status   → SetStatus (any of the three)
	POST /api/content/{kind}/bulk-status   → BulkStatus

Repeating a transition is a no-op and keeps the original timestamps.

# Generation Flow

	POST /api/bulk-generate  → BulkGenerate (one job per kind)
	POST /api/process-jobs   → ProcessJobs (runs due jobs now)
	GET  /api/jobs/{id}      → Get
	POST /api/jobs/{id}/retry → Retry (failed jobs only)

# Error Handling

All handlers answer with the models.Envelope. Service errors go through
writeError, which picks the status code:

  - 400: invalid JSON, validation failures (with per-field details)
  - 404: unknown kind, record, job or prompt
  - 409: unique value already taken, job in the wrong state
  - 502: the model answered with nothing usable
  - 503: generation is not configured
  - 500: anything else (logged)
*/
package handlers
