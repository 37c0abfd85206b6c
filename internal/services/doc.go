// Package services defines shared utilities consumed by the pipeline stages and
// the external integrations they call.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, with Kind and HTTPStatus
//     translating failures into stage results and API responses.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
