// Package session persists processing sessions in SQLite.
//
// A session records one upload: the per-stage results, the transcript, and the
// rendered notes, so the presenter can show partial progress and serve the
// download from a later HTTP request. Sessions expire after the configured
// retention and are purged by the server sweep or `vidnotes cleanup`.
//
// The database holds short-lived state rather than an archive. Schema changes
// bump schemaVersion in schema.go; users delete the database to adopt them.
package session
