// Package main hosts the vidnotes CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP presenter, processes single videos,
// watches a drop folder, and inspects or prunes retained sessions. It
// centralizes configuration resolution, logger setup, and engine wiring so
// subcommands only decide what to print.
package main
