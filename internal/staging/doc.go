// Package staging owns the per-session working directories that hold an
// uploaded video and its extracted waveform while the pipeline runs.
//
// Each session gets one directory named after its ID under the configured
// staging root. The pipeline removes it when processing ends; CleanStale and
// CleanOrphaned reclaim directories left behind by crashes.
package staging
