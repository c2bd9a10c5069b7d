// Package pipeline drives a noticiero through its lifecycle.
//
// Orchestrator.Draft collects the active feeds, filters the items and asks
// the script generator for a PENDING draft. Publish flips the state to
// PUBLISHED with a conditional update and hands an audio job to the Runner,
// which synthesizes, transcodes and uploads the MP3 on its own goroutine.
// Audio is only ever rendered or served for PUBLISHED noticieros.
package pipeline
