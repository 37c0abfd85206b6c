// Package language maps the spoken-language settings and engine reports to
// ISO 639-1 codes, the form both transcription engines accept.
package language
