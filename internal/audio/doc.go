// Package audio renders a bulletin script as speech and encodes it to MP3.
//
// The speech model returns raw PCM or a complete WAV file depending on the
// model revision; EnsureWAV normalizes both to a playable WAV before the
// Transcoder hands it to ffmpeg.
package audio
