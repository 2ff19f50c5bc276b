// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package jobs is the bulk generation queue.

A job pairs one source content record with one content kind. Jobs move
pending → in_progress → completed, or back to pending with a backoff
delay when a run fails. After max_attempts failed runs a job is failed
and stays there until it is retried.

	pending ──claim──▶ in_progress ──complete──▶ completed
	   ▲                   │
	   └──fail (backoff)───┤
	                       └──fail (no attempts left)──▶ failed ──retry──▶ pending

Claim is a single UPDATE of the oldest due row, so two workers never run
the same job. On Postgres the inner SELECT uses FOR UPDATE SKIP LOCKED.

Jobs run either on demand (POST /api/process-jobs) or in the background
Worker, which also returns jobs left in_progress by a crashed process to
the queue.
*/
package jobs
