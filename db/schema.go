// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The DDL sticks to types both Postgres and SQLite accept. JSON values
// are stored as TEXT.
const schema = `
-- Categories
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    slug TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Saved prompts
CREATE TABLE IF NOT EXISTS prompts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    content_kind TEXT,
    prompt_text TEXT NOT NULL,
    notes TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Ingested source content
CREATE TABLE IF NOT EXISTS source_content (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content_text TEXT NOT NULL,
    source_url TEXT,
    used_for_kinds TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Trivia: multiple choice
CREATE TABLE IF NOT EXISTS trivia_multiple_choice (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL UNIQUE,
    correct_answer TEXT NOT NULL,
    incorrect_answers TEXT NOT NULL,
    explanation TEXT,
    difficulty TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trivia_mc_status ON trivia_multiple_choice(status);

-- Trivia: true/false
CREATE TABLE IF NOT EXISTS trivia_true_false (
    id TEXT PRIMARY KEY,
    statement TEXT NOT NULL UNIQUE,
    is_true BOOLEAN NOT NULL,
    explanation TEXT,
    difficulty TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trivia_tf_status ON trivia_true_false(status);

-- Trivia: who am I
CREATE TABLE IF NOT EXISTS trivia_who_am_i (
    id TEXT PRIMARY KEY,
    clues TEXT NOT NULL,
    answer TEXT NOT NULL,
    explanation TEXT,
    difficulty TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trivia_wai_status ON trivia_who_am_i(status);

-- Stats
CREATE TABLE IF NOT EXISTS stats (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    stat_value TEXT NOT NULL,
    description TEXT,
    subject TEXT,
    season TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stats_status ON stats(status);

-- Greetings
CREATE TABLE IF NOT EXISTS greetings (
    id TEXT PRIMARY KEY,
    greeting_text TEXT NOT NULL UNIQUE,
    occasion TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_greetings_status ON greetings(status);

-- Motivational quotes
CREATE TABLE IF NOT EXISTS motivational_quotes (
    id TEXT PRIMARY KEY,
    quote TEXT NOT NULL UNIQUE,
    author TEXT,
    context TEXT,
    theme TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_quotes_status ON motivational_quotes(status);

-- Wisdom
CREATE TABLE IF NOT EXISTS wisdom (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    musing TEXT NOT NULL,
    from_the_box TEXT,
    theme TEXT,
    category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
    source_content_id TEXT REFERENCES source_content(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wisdom_status ON wisdom(status);

-- Generation jobs
CREATE TABLE IF NOT EXISTS generation_jobs (
    id TEXT PRIMARY KEY,
    source_content_id TEXT NOT NULL REFERENCES source_content(id) ON DELETE CASCADE,
    content_kind TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed', 'failed')),
    attempts INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL DEFAULT 3,
    last_error TEXT,
    result_count INTEGER NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMP,
    started_at TIMESTAMP,
    completed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (source_content_id, content_kind)
);

CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON generation_jobs(status, created_at);
`
