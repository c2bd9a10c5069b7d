// Package config loads, normalizes, and validates noticiero configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY and the R2_* storage credentials. The Config type centralizes
// every knob the daemon and CLI need so model endpoints, bucket credentials and
// working directories are discovered in one pass.
//
// Broadcast identity (channel name, presenters, censored words) is only seeded
// from here; the live values are persisted by the store package.
package config
