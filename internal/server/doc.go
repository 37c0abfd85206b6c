// Package server is the HTTP presenter.
//
// It serves the single upload page, runs the pipeline synchronously for each
// upload, and renders the resulting session: stage status lines, the transcript,
// the notes, and download links for cute_notes.txt and a Word copy. The same
// operations are exposed as JSON under /api, optionally behind a bearer token.
//
// One server runs per state directory; Run takes an flock-based lock file
// before listening and sweeps expired sessions and stale staging directories
// on a timer.
package server
