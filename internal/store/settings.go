package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"noticiero/internal/services"
)

// SeedSettings creates the settings row from seed unless one already exists.
func (s *Store) SeedSettings(ctx context.Context, seed BroadcastConfig) error {
	words, err := encodeWords(seed.CensoredWords)
	if err != nil {
		return err
	}
	_, err = s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO settings (id, channel_name, male_presenter, female_presenter, censored_words_json, updated_at)
         VALUES (1, ?, ?, ?, ?, ?)`,
		seed.ChannelName, seed.MalePresenter, seed.FemalePresenter, words, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// Settings returns the stored broadcast configuration as entered.
func (s *Store) Settings(ctx context.Context) (BroadcastConfig, error) {
	var (
		cfg   BroadcastConfig
		words string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT channel_name, male_presenter, female_presenter, censored_words_json FROM settings WHERE id = 1`,
	).Scan(&cfg.ChannelName, &cfg.MalePresenter, &cfg.FemalePresenter, &words)
	if err != nil {
		return BroadcastConfig{}, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal([]byte(words), &cfg.CensoredWords); err != nil {
		return BroadcastConfig{}, fmt.Errorf("decode censored words: %w", err)
	}
	if cfg.CensoredWords == nil {
		cfg.CensoredWords = []string{}
	}
	return cfg, nil
}

// UpdateSettings replaces the broadcast configuration. Channel and presenter
// names must be non-empty.
func (s *Store) UpdateSettings(ctx context.Context, cfg BroadcastConfig) (BroadcastConfig, error) {
	normalized := cfg.Normalized()
	if normalized.ChannelName == "" || normalized.MalePresenter == "" || normalized.FemalePresenter == "" {
		return BroadcastConfig{}, services.Wrap(services.ErrValidation, "store", "update settings",
			"channel name and both presenters are required", nil)
	}
	words, err := encodeWords(normalized.CensoredWords)
	if err != nil {
		return BroadcastConfig{}, err
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO settings (id, channel_name, male_presenter, female_presenter, censored_words_json, updated_at)
         VALUES (1, ?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             channel_name = excluded.channel_name,
             male_presenter = excluded.male_presenter,
             female_presenter = excluded.female_presenter,
             censored_words_json = excluded.censored_words_json,
             updated_at = excluded.updated_at`,
		normalized.ChannelName, strings.TrimSpace(cfg.MalePresenter), strings.TrimSpace(cfg.FemalePresenter), words, formatTime(time.Now()),
	)
	if err != nil {
		return BroadcastConfig{}, fmt.Errorf("update settings: %w", err)
	}
	return s.Settings(ctx)
}

func encodeWords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("encode censored words: %w", err)
	}
	return string(data), nil
}
