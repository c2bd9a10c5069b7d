// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp noticiero IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not found, invalid transition, configuration, generation) with
//     errors.Is and map them onto API status codes.
//
// Provider clients live in subpackages (gemini, anthropic).
package services
