// Package summarize condenses transcripts with a model backend.
//
// Backends implement Summarizer: OpenAI talks to any OpenAI-compatible chat
// endpoint, Gemini uses the Google GenAI SDK, and Extractive keeps the leading
// sentences of the transcript without calling a model. Every backend honours
// the request's token bounds and decodes deterministically so repeated runs on
// identical input produce identical notes.
package summarize
