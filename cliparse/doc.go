// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

Each flag falls back to an environment variable, then to a default:

	-p                  PORT                (3318)
	-d                  DATABASE_URL        (required)
	-t                  DATABASE_TYPE       (sqlite)
	-auth-url           AUTH_URL
	-auth-key           AUTH_API_KEY
	-api-tokens         API_TOKENS          name:token,name2:token2
	-gemini-key         GEMINI_API_KEY
	-gemini-model       GEMINI_MODEL        (gemini-2.5-flash)
	-prompts-dir        PROMPTS_DIR         (./prompts)
	-worker             WORKER_ENABLED      (false)
	-worker-interval    WORKER_INTERVAL     (20s)
	-worker-concurrency WORKER_CONCURRENCY  (1)
	-job-max-attempts   JOB_MAX_ATTEMPTS    (3)
	-job-stale-after    JOB_STALE_AFTER     (10m)
	-allowed-origin     ALLOWED_ORIGIN

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error when:

  - no database URL is given
  - the database type is not sqlite or postgres
  - neither AUTH_URL nor API_TOKENS is set
  - a duration, boolean or count does not parse or is not positive
*/
package cliparse
