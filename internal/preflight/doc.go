// Package preflight provides readiness checks for the external binaries,
// model endpoints, and filesystem paths vidnotes depends on.
//
// These checks run in two contexts:
//   - `vidnotes serve` logs RunAll and CheckSystemDeps at startup and exposes
//     them on GET /api/status.
//   - The CLI `vidnotes status` command renders the same results as a table.
//
// Checks for a backend run only when that backend is configured.
package preflight
