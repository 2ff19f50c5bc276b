// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connections

Open selects the driver from the configured database type:

	conn, dialect, err := db.Open(ctx, "postgres", url)

Postgres uses lib/pq. SQLite uses modernc.org/sqlite with WAL, foreign
keys and a busy timeout; ":memory:" databases are pinned to one
connection. Queries use $N placeholders, which both drivers accept.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - categories, prompts: reference data
  - source_content: ingested text that generation jobs draw from
  - trivia_multiple_choice, trivia_true_false, trivia_who_am_i,
    stats, greetings, motivational_quotes, wisdom: content with a
    draft/published/archived lifecycle
  - generation_jobs: one row per (source_content, content kind)

# Errors

IsUniqueViolation and IsForeignKeyViolation classify driver errors from
either backend so handlers can answer 409 instead of 500.
*/
package db
