// Package pipeline runs one upload through the four processing stages:
// upload, extract, transcribe, and notes.
//
// Every run gets its own session ID and staging directory, so concurrent runs
// never share files. Each stage yields an explicit StageResult. A failing stage
// stops the run, marks the remaining stages skipped, and keeps everything the
// earlier stages produced (the transcript in particular) on the session. The
// staging directory is removed when the run ends, whatever the outcome.
//
// Collaborators are injected through Deps so the server, the CLI, and the
// watcher share one set of engines constructed at startup.
package pipeline
