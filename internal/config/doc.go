// Package config loads, normalizes, and validates vidnotes configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and GEMINI_API_KEY. The Config type centralizes every knob the
// server, watcher, and CLI need so staging directories, model choices, and
// service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical engine names, and clear validation errors.
package config
