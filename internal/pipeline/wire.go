package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"

	"noticiero/internal/audio"
	"noticiero/internal/config"
	"noticiero/internal/feeds"
	"noticiero/internal/script"
	"noticiero/internal/services"
	"noticiero/internal/services/anthropic"
	"noticiero/internal/services/gemini"
	"noticiero/internal/storage"
	"noticiero/internal/store"
)

// Build assembles a production orchestrator from cfg. Model and storage
// credentials must be present.
func Build(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil || st == nil {
		return nil, fmt.Errorf("pipeline build: config and store required")
	}
	if err := cfg.RequireGeneration(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "model credentials incomplete", err)
	}
	prompts, err := script.LoadPrompts()
	if err != nil {
		return nil, err
	}
	audioStore, err := storage.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	generator := script.NewGenerator(textGenerator(cfg), st, prompts, script.Options{
		MaxAttempts: cfg.LLM.MaxAttempts,
		Location:    cfg.Location(),
	}, logger)

	tts := gemini.NewClient(gemini.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		Model:          cfg.TTS.Model,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	synth := audio.NewSynthesizer(tts, prompts, audio.Voices{
		Male:   cfg.TTS.MaleVoice,
		Female: cfg.TTS.FemaleVoice,
	}, cfg.Audio.DebugDir, logger)

	transcoder := audio.NewTranscoder(audio.TranscodeOptions{
		Binary:     cfg.FFmpegBinary(),
		TempDir:    cfg.Paths.TempDir,
		Bitrate:    cfg.Audio.Bitrate,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}, logger)

	aggregator := feeds.NewAggregator(&http.Client{Timeout: cfg.FetchTimeout()}, cfg.Feeds.UserAgent, logger)

	return NewOrchestrator(Deps{
		Store:           st,
		Collector:       aggregator,
		Drafter:         generator,
		Synthesizer:     synth,
		Transcoder:      transcoder,
		Audio:           audioStore,
		FreshnessWindow: cfg.FreshnessWindow(),
		SignedURLTTL:    cfg.SignedURLTTL(),
	}, 0, logger), nil
}

func textGenerator(cfg *config.Config) script.TextGenerator {
	if cfg.LLM.Provider == "anthropic" {
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Anthropic.APIKey,
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.Temperature,
		})
	}
	return gemini.NewClient(gemini.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.TextModel,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}
