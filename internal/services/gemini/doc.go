// Package gemini provides a minimal client for the Gemini generateContent API.
//
// This package is used by:
//   - Script generation: draft the news bulletin body (text model)
//   - Audio synthesis: render the script with two prebuilt voices (TTS model)
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.GenerateText: send a prompt, receive the concatenated text parts.
// Client.GenerateSpeech: send a script plus speaker/voice pairs, receive
// base64 inline audio.
//
// # Retry Behaviour
//
// The client issues one request per call. Callers that want retries wrap it
// with the retry package; a StatusError carrying Retry-After implements
// retry.DelayHinter. An empty payload is reported as an error matching
// ErrEmptyResponse.
package gemini
