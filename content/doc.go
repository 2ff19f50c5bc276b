// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package content is the registry and repository behind every CMS table.

# Kinds

A Kind describes one table: its URL name, editable fields, and whether it
has a publish lifecycle. Handlers look kinds up by name:

	kind, ok := content.Lookup("trivia-multiple-choice")

Adding a content type means adding a table to db/schema.go and a Kind to
the registry; no new handlers are needed.

# Validation

Kind.Normalize checks a decoded JSON body: unknown keys are rejected,
required fields must be present and non-blank, values are coerced to the
field type, validator tags are applied and free text is stripped of
markup. Failures come back as *ValidationError.

# Lifecycle

Lifecycle kinds move between draft, published and archived. The rules
live in one place (Store.transitionCount):

  - publishing stamps published_at if it is not set yet
  - archiving stamps archived_at if it is not set yet
  - leaving archived clears archived_at
  - moving to the current status changes nothing

# Transactions

CreateMany and SaveGenerated insert a batch atomically. SaveGenerated also
appends the kind to the source record's used_for_kinds in the same
transaction.
*/
package content
