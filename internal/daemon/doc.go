// Package daemon runs the long-lived noticiero process.
//
// It holds a flock-based single-instance lock, starts the background audio
// runner, and serves the HTTP API used by editors and players. Pipeline
// behaviour lives in internal/pipeline; the daemon only owns startup,
// shutdown and the transport edge.
package daemon
