// Package history provides optional persistence of exchange summaries.
//
// When enabled, every forwarded request, including ones answered with a
// synthesized 400/502, is recorded as one row: connection id, method,
// path, status, body sizes, and timestamps. Bodies are never persisted.
//
// Two backends implement Storage: SQLite (the default, WAL mode) and an
// in-memory ring for tests and ephemeral runs. Retention is enforced by a
// Pruner, optionally driven by a cron Scheduler.
//
// Recording is best-effort: storage failures are logged and the proxied
// request is never affected.
package history
