package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var bitratePattern = regexp.MustCompile(`^[0-9]+k$`)

// Validate ensures the configuration is structurally usable. Credentials are
// checked by the components that need them (see RequireGeneration and
// RequireStorage) so that offline commands such as feed management work
// without any API keys.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":            c.LLM.TimeoutSeconds,
		"llm.max_attempts":               c.LLM.MaxAttempts,
		"tts.timeout_seconds":            c.TTS.TimeoutSeconds,
		"feeds.freshness_hours":          c.Feeds.FreshnessHours,
		"feeds.fetch_timeout_seconds":    c.Feeds.FetchTimeoutSeconds,
		"storage.signed_url_ttl_seconds": c.Storage.SignedURLTTLSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be \"gemini\" or \"anthropic\", got %q", c.LLM.Provider)
	}
	if c.Anthropic.Temperature < 0 || c.Anthropic.Temperature > 1 {
		return errors.New("anthropic.temperature must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if !bitratePattern.MatchString(c.Audio.Bitrate) {
		return fmt.Errorf("audio.bitrate must look like 128k, got %q", c.Audio.Bitrate)
	}
	if c.Audio.Channels > 2 {
		return errors.New("audio.channels must be 1 or 2")
	}
	return nil
}

// RequireGeneration reports missing model credentials for drafting and speech synthesis.
func (c *Config) RequireGeneration() error {
	switch c.LLM.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return missingKey("anthropic.api_key", "ANTHROPIC_API_KEY")
		}
	default:
		if c.LLM.APIKey == "" {
			return missingKey("llm.api_key", "GEMINI_API_KEY")
		}
	}
	if c.TTS.APIKey == "" {
		return missingKey("tts.api_key", "GEMINI_API_KEY")
	}
	return nil
}

// RequireStorage reports missing bucket credentials.
func (c *Config) RequireStorage() error {
	if c.Storage.Endpoint == "" {
		return missingKey("storage.account_id", "CLOUDFLARE_ACCOUNT_ID")
	}
	if c.Storage.AccessKeyID == "" {
		return missingKey("storage.access_key_id", "R2_ACCESS_KEY_ID")
	}
	if c.Storage.SecretAccessKey == "" {
		return missingKey("storage.secret_access_key", "R2_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return missingKey("storage.bucket", "R2_BUCKET_NAME")
	}
	return nil
}

func missingKey(field, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%s is required. Set %s env var or edit %s (create with 'noticiero config init')", field, env, defaultPath)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
