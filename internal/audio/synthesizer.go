package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"noticiero/internal/logging"
	"noticiero/internal/services"
	"noticiero/internal/services/gemini"
	"noticiero/internal/store"
)

// SpeechGenerator renders a prompt with one prebuilt voice per speaker label.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, prompt string, speakers []gemini.SpeakerVoice) (gemini.Speech, error)
}

// InstructionSource renders the preamble sent ahead of the script.
type InstructionSource interface {
	AudioInstruction(cfg store.BroadcastConfig) string
}

// Voices names the prebuilt voice for each presenter.
type Voices struct {
	Male   string
	Female string
}

const debugFileName = "debug_audio.wav"

// Synthesizer produces WAV audio for a script.
type Synthesizer struct {
	speech       SpeechGenerator
	instructions InstructionSource
	voices       Voices
	debugDir     string
	logger       *slog.Logger
}

// NewSynthesizer builds a synthesizer. When debugDir is set, each rendition
// overwrites debugDir/debug_audio.wav.
func NewSynthesizer(speech SpeechGenerator, instructions InstructionSource, voices Voices, debugDir string, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		speech:       speech,
		instructions: instructions,
		voices:       voices,
		debugDir:     strings.TrimSpace(debugDir),
		logger:       logging.NewComponentLogger(logger, "synthesizer"),
	}
}

// Synthesize requests speech for script and returns WAV bytes. The presenter
// names in cfg are the speaker labels used in the script. There is no retry;
// failures from the speech service propagate.
func (s *Synthesizer) Synthesize(ctx context.Context, script string, cfg store.BroadcastConfig) ([]byte, error) {
	logger := logging.WithContext(ctx, s.logger)
	cfg = cfg.Normalized()
	prompt := s.instructions.AudioInstruction(cfg) + "\n\n" + script
	speakers := []gemini.SpeakerVoice{
		{Speaker: cfg.MalePresenter, Voice: s.voices.Male},
		{Speaker: cfg.FemalePresenter, Voice: s.voices.Female},
	}

	started := time.Now()
	speech, err := s.speech.GenerateSpeech(ctx, prompt, speakers)
	if errors.Is(err, gemini.ErrEmptyResponse) {
		return nil, services.Wrap(services.ErrValidation, "synthesizer", "generate speech", "no audio data generated", err)
	}
	if err != nil {
		return nil, fmt.Errorf("generate speech: %w", err)
	}
	payload := strings.TrimSpace(speech.Data)
	if payload == "" {
		return nil, services.Wrap(services.ErrValidation, "synthesizer", "generate speech", "no audio data generated", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "synthesizer", "decode audio", "payload is not valid base64", err)
	}
	if len(raw) == 0 {
		return nil, services.Wrap(services.ErrValidation, "synthesizer", "decode audio", "no audio data generated", nil)
	}

	hadHeader := HasWAVHeader(raw)
	wav := EnsureWAV(raw)
	logger.Info("speech synthesized",
		logging.Int("bytes", len(wav)),
		logging.String("mime_type", speech.MimeType),
		logging.Bool("header_added", !hadHeader),
		logging.Duration("elapsed", time.Since(started)),
	)
	s.writeDebugCopy(logger, wav)
	return wav, nil
}

func (s *Synthesizer) writeDebugCopy(logger *slog.Logger, wav []byte) {
	if s.debugDir == "" {
		return
	}
	path := filepath.Join(s.debugDir, debugFileName)
	err := os.MkdirAll(s.debugDir, 0o755)
	if err == nil {
		err = os.WriteFile(path, wav, 0o644)
	}
	if err != nil {
		logging.WarnWithContext(logger, "debug audio copy failed", "debug_audio_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no diagnostic WAV for this rendition"),
			logging.String(logging.FieldErrorHint, "check audio.debug_dir permissions"),
		)
		return
	}
	logger.Debug("debug audio written", logging.String("path", path))
}
