package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"noticiero/internal/deps"
	"noticiero/internal/logging"
	"noticiero/internal/services"
)

// TranscodeOptions configures the MP3 encoder.
type TranscodeOptions struct {
	Binary     string
	TempDir    string
	Bitrate    string
	SampleRate int
	Channels   int
}

// Transcoder converts WAV to MP3 with ffmpeg.
type Transcoder struct {
	opts   TranscodeOptions
	logger *slog.Logger
}

// NewTranscoder applies defaults (128k, 24000 Hz, mono, os.TempDir) to opts.
func NewTranscoder(opts TranscodeOptions, logger *slog.Logger) *Transcoder {
	if strings.TrimSpace(opts.Bitrate) == "" {
		opts.Bitrate = "128k"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = wavSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = wavChannels
	}
	if strings.TrimSpace(opts.TempDir) == "" {
		opts.TempDir = os.TempDir()
	}
	return &Transcoder{opts: opts, logger: logging.NewComponentLogger(logger, "transcoder")}
}

// Args returns the ffmpeg arguments for the given input and output paths.
func (t *Transcoder) Args(input, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "wav", "-i", input,
		"-acodec", "libmp3lame",
		"-b:a", t.opts.Bitrate,
		"-ac", strconv.Itoa(t.opts.Channels),
		"-ar", strconv.Itoa(t.opts.SampleRate),
		output,
	}
}

// Transcode encodes wav to MP3. Both temp files are removed on every path.
func (t *Transcoder) Transcode(ctx context.Context, wav []byte) ([]byte, error) {
	binary, err := deps.ResolveFFmpeg(t.opts.Binary)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcoder", "resolve ffmpeg", err.Error(), nil)
	}
	if len(wav) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcoder", "transcode", "empty input audio", nil)
	}
	if err := os.MkdirAll(t.opts.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	stamp := time.Now().UnixNano()
	input := filepath.Join(t.opts.TempDir, fmt.Sprintf("temp-%d.wav", stamp))
	output := filepath.Join(t.opts.TempDir, fmt.Sprintf("output-%d.mp3", stamp))
	defer func() {
		_ = os.Remove(input)
		_ = os.Remove(output)
	}()

	if err := os.WriteFile(input, wav, 0o600); err != nil {
		return nil, fmt.Errorf("write temp wav: %w", err)
	}

	logger := logging.WithContext(ctx, t.logger)
	started := time.Now()
	cmd := exec.CommandContext(ctx, binary, t.Args(input, output)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcoder", "ffmpeg",
			strings.TrimSpace(stderr.String()), err)
	}

	mp3, err := os.ReadFile(output)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcoder", "read output", "ffmpeg produced no file", err)
	}
	if len(mp3) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transcoder", "read output", "ffmpeg produced an empty file", nil)
	}
	logger.Info("audio transcoded",
		logging.Int("wav_bytes", len(wav)),
		logging.Int("mp3_bytes", len(mp3)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return mp3, nil
}
