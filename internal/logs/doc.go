// Package logs reads the vidnotes log file for `vidnotes logs`.
//
// Tail returns the last N lines or everything after a byte offset, and can
// poll for new lines in follow mode. SessionFilter narrows output to the
// entries of one processing session, keeping multi-line console entries
// together.
package logs
