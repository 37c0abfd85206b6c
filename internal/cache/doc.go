// Package cache persists transcripts in BadgerDB so re-uploading the same video
// skips the speech model.
//
// Keys are SHA-256 digests of the extracted waveform combined with the engine
// and model that produced the transcript; entries expire after the configured
// TTL. An empty directory opens an in-memory store.
package cache
