// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the rinkside API.

# Wiring

NewServices builds the stores and services once; NewRouter registers every
endpoint on an http.ServeMux and wraps it in CORS:

	svc, err := router.NewServices(conn, dialect, cfg, client)
	handler := router.NewRouter(svc, cfg)

The same Services value feeds the background job worker in main.

# Endpoints

Public:

	GET /health
	GET /metrics
	GET /api/public/{kind}        - Published items, paginated
	GET /api/public/{kind}/random - One random published item

Authenticated (Authorization: Bearer <token>):

	GET  /api/me
	GET  /api/kinds
	GET  /api/content/{kind}
	POST /api/content/{kind}
	POST /api/content/{kind}/bulk
	POST /api/content/{kind}/bulk-status
	GET|PUT|PATCH|DELETE /api/content/{kind}/{id}
	POST /api/content/{kind}/{id}/status|publish|archive

	POST /api/generate
	POST /api/bulk-generate
	POST /api/process-jobs
	GET  /api/jobs
	GET  /api/jobs/stats
	GET  /api/jobs/{id}
	POST /api/jobs/{id}/retry

	GET     /api/prompts
	GET|PUT /api/prompts/{name}
	GET|PUT /api/topics

Every route except /health and /metrics goes through middleware.WithLogging,
which also feeds the HTTP metrics.
*/
package router
