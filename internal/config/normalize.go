package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeAnthropic()
	c.normalizeTTS()
	if err := c.normalizeAudio(); err != nil {
		return err
	}
	c.normalizeFeeds()
	c.normalizeStorage()
	c.normalizeBroadcast()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = lookupEnv("NOTICIERO_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	if value := lookupEnv("GEMINI_API_KEY"); value != "" {
		c.LLM.APIKey = value
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultGeminiBaseURL
	}
	c.LLM.TextModel = strings.TrimSpace(c.LLM.TextModel)
	if c.LLM.TextModel == "" {
		c.LLM.TextModel = defaultTextModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultMaxAttempts
	}
}

func (c *Config) normalizeAnthropic() {
	if value := lookupEnv("ANTHROPIC_API_KEY"); value != "" {
		c.Anthropic.APIKey = value
	}
	c.Anthropic.APIKey = strings.TrimSpace(c.Anthropic.APIKey)
	c.Anthropic.Model = strings.TrimSpace(c.Anthropic.Model)
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = defaultAnthropicModel
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = defaultAnthropicMaxTokens
	}
}

func (c *Config) normalizeTTS() {
	if value := lookupEnv("GEMINI_TTS_API_KEY"); value != "" {
		c.TTS.APIKey = value
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = c.LLM.APIKey
	}
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = c.LLM.BaseURL
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.MaleVoice = strings.TrimSpace(c.TTS.MaleVoice)
	if c.TTS.MaleVoice == "" {
		c.TTS.MaleVoice = defaultMaleVoice
	}
	c.TTS.FemaleVoice = strings.TrimSpace(c.TTS.FemaleVoice)
	if c.TTS.FemaleVoice == "" {
		c.TTS.FemaleVoice = defaultFemaleVoice
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeAudio() error {
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	c.Audio.Bitrate = strings.ToLower(strings.TrimSpace(c.Audio.Bitrate))
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = defaultBitrate
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaultChannels
	}
	if strings.TrimSpace(c.Audio.DebugDir) != "" {
		var err error
		if c.Audio.DebugDir, err = expandPath(c.Audio.DebugDir); err != nil {
			return fmt.Errorf("audio.debug_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeFeeds() {
	if c.Feeds.FreshnessHours <= 0 {
		c.Feeds.FreshnessHours = defaultFreshnessHours
	}
	if c.Feeds.FetchTimeoutSeconds <= 0 {
		c.Feeds.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	c.Feeds.UserAgent = strings.TrimSpace(c.Feeds.UserAgent)
	if c.Feeds.UserAgent == "" {
		c.Feeds.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeStorage() {
	if value := lookupEnv("CLOUDFLARE_ACCOUNT_ID"); value != "" {
		c.Storage.AccountID = value
	}
	if value := lookupEnv("R2_ACCESS_KEY_ID"); value != "" {
		c.Storage.AccessKeyID = value
	}
	if value := lookupEnv("R2_SECRET_ACCESS_KEY"); value != "" {
		c.Storage.SecretAccessKey = value
	}
	if value := lookupEnv("R2_BUCKET_NAME"); value != "" {
		c.Storage.Bucket = value
	}
	if value := lookupEnv("R2_REGION"); value != "" {
		c.Storage.Region = value
	}
	c.Storage.AccountID = strings.TrimSpace(c.Storage.AccountID)
	c.Storage.AccessKeyID = strings.TrimSpace(c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = strings.TrimSpace(c.Storage.SecretAccessKey)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = defaultBucket
	}
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		c.Storage.Region = defaultRegion
	}
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	if c.Storage.Endpoint == "" && c.Storage.AccountID != "" {
		c.Storage.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.Storage.AccountID)
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = fmt.Sprintf("https://%s.r2.dev", c.Storage.Bucket)
	}
	if c.Storage.SignedURLTTLSeconds <= 0 {
		c.Storage.SignedURLTTLSeconds = defaultSignedURLTTLSeconds
	}
}

func (c *Config) normalizeBroadcast() {
	c.Broadcast.ChannelName = strings.TrimSpace(c.Broadcast.ChannelName)
	c.Broadcast.MalePresenter = strings.TrimSpace(c.Broadcast.MalePresenter)
	c.Broadcast.FemalePresenter = strings.TrimSpace(c.Broadcast.FemalePresenter)
	words := make([]string, 0, len(c.Broadcast.CensoredWords))
	seen := make(map[string]struct{}, len(c.Broadcast.CensoredWords))
	for _, word := range c.Broadcast.CensoredWords {
		normalized := strings.TrimSpace(word)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		words = append(words, normalized)
	}
	c.Broadcast.CensoredWords = words
	c.Broadcast.Timezone = strings.TrimSpace(c.Broadcast.Timezone)
	if c.Broadcast.Timezone == "" {
		c.Broadcast.Timezone = defaultTimezone
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
