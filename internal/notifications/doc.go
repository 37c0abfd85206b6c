// Package notifications publishes watch-folder results to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally.
package notifications
